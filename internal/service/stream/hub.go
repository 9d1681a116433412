package stream

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ImpulseSaver/internal/domain/models"
	drepo "ImpulseSaver/internal/domain/repository"
	"ImpulseSaver/pkg/logger"
)

// Event is the frame pushed to subscribers.
type Event struct {
	Type string `json:"type"`
	ASIN string `json:"asin,omitempty"`
	Data any    `json:"data,omitempty"`
}

// control is what subscribers may send: {"type":"subscribe","asin":"B0..."}.
type control struct {
	Type string `json:"type"`
	ASIN string `json:"asin"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte

	mu    sync.Mutex
	asins map[string]struct{} // empty = everything
}

func (c *client) wants(asin string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.asins) == 0 {
		return true
	}
	_, ok := c.asins[strings.ToUpper(asin)]
	return ok
}

// Hub fans completed analyses out to WebSocket subscribers.
type Hub struct {
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	writeWait    time.Duration
	sendBuffer   int
	log          *logger.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub(pingInterval time.Duration, sendBuffer int, log *logger.Logger) *Hub {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		pingInterval: pingInterval,
		writeWait:    10 * time.Second,
		sendBuffer:   sendBuffer,
		log:          log,
		clients:      make(map[*client]struct{}),
	}
}

// ServeWS upgrades the request and runs the subscriber until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{conn: conn, send: make(chan []byte, h.sendBuffer), asins: make(map[string]struct{})}
	if asin := r.URL.Query().Get("asin"); asin != "" {
		c.asins[strings.ToUpper(asin)] = struct{}{}
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info("stream: subscriber connected", logger.String("remote", r.RemoteAddr), logger.Int("subscribers", n))

	go h.writePump(c)
	h.readPump(c)
	return nil
}

// Broadcast pushes the analysis summary to every interested subscriber.
// Slow subscribers drop frames instead of blocking the analyzer.
func (h *Hub) Broadcast(a *models.ProductAnalysis) {
	if a == nil {
		return
	}
	b, err := json.Marshal(Event{Type: "analysis", ASIN: a.ASIN, Data: a.Summary()})
	if err != nil {
		h.log.Error("stream: marshal event", logger.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.wants(a.ASIN) {
			continue
		}
		select {
		case c.send <- b:
		default:
			h.log.Debug("stream: subscriber backpressure, frame dropped", logger.String("asin", a.ASIN))
		}
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every subscriber.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	return nil
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	})
	for {
		_, b, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("stream: read", logger.Error(err))
			}
			return
		}
		var m control
		if err := json.Unmarshal(b, &m); err != nil {
			// ignore junk frames
			continue
		}
		asin := strings.ToUpper(strings.TrimSpace(m.ASIN))
		if asin == "" {
			continue
		}
		c.mu.Lock()
		switch m.Type {
		case "subscribe":
			c.asins[asin] = struct{}{}
		case "unsubscribe":
			delete(c.asins, asin)
		default:
			c.mu.Unlock()
			continue
		}
		c.mu.Unlock()

		ack, _ := json.Marshal(Event{Type: m.Type + "d", ASIN: asin})
		h.mu.RLock()
		if _, ok := h.clients[c]; ok {
			select {
			case c.send <- ack:
			default:
			}
		}
		h.mu.RUnlock()
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case b, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var _ drepo.Broadcaster = (*Hub)(nil)
