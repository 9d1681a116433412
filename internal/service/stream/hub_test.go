package stream

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"ImpulseSaver/internal/domain/models"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	h := NewHub(time.Second, 8, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.ServeWS(w, r)
	}))
	t.Cleanup(srv.Close)
	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitSubscribers(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Subscribers() != n {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers = %d, want %d", h.Subscribers(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(b, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return ev
}

func TestHub_BroadcastReachesSubscriber(t *testing.T) {
	h, url := startHub(t)
	conn := dial(t, url)
	waitSubscribers(t, h, 1)

	h.Broadcast(&models.ProductAnalysis{ID: "a1", ASIN: "B000000001", ImpulseScore: 42})
	ev := readEvent(t, conn)
	if ev.Type != "analysis" || ev.ASIN != "B000000001" {
		t.Fatalf("event = %+v", ev)
	}
	data, _ := ev.Data.(map[string]any)
	if data["id"] != "a1" || data["impulse_score"] != float64(42) {
		t.Fatalf("data = %+v", ev.Data)
	}
}

func TestHub_SubscribeFiltersByASIN(t *testing.T) {
	h, url := startHub(t)
	conn := dial(t, url)
	waitSubscribers(t, h, 1)

	if err := conn.WriteJSON(control{Type: "subscribe", ASIN: "b000000002"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	ack := readEvent(t, conn)
	if ack.Type != "subscribed" || ack.ASIN != "B000000002" {
		t.Fatalf("ack = %+v", ack)
	}

	h.Broadcast(&models.ProductAnalysis{ID: "x", ASIN: "B000000001"})
	h.Broadcast(&models.ProductAnalysis{ID: "y", ASIN: "B000000002"})
	ev := readEvent(t, conn)
	if ev.ASIN != "B000000002" {
		t.Fatalf("filtered subscriber got %+v", ev)
	}
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	h, url := startHub(t)
	conn := dial(t, url)
	waitSubscribers(t, h, 1)
	conn.Close()
	waitSubscribers(t, h, 0)
	// no subscribers: must not block or panic
	h.Broadcast(&models.ProductAnalysis{ID: "z", ASIN: "B000000003"})
	h.Broadcast(nil)
}
