package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

type target struct {
	ASIN        string `json:"asin"`
	Marketplace string `json:"marketplace"`
}

func TestParsePayload(t *testing.T) {
	cases := []struct {
		name    string
		payload interface{}
	}{
		{"value", target{ASIN: "B000000001", Marketplace: "com"}},
		{"pointer", &target{ASIN: "B000000001", Marketplace: "com"}},
		{"map", map[string]interface{}{"asin": "B000000001", "marketplace": "com"}},
		{"raw", json.RawMessage(`{"asin":"B000000001","marketplace":"com"}`)},
	}
	for _, tc := range cases {
		got, err := ParsePayload[target](tc.payload)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got.ASIN != "B000000001" || got.Marketplace != "com" {
			t.Fatalf("%s: got %+v", tc.name, got)
		}
	}
	if _, err := ParsePayload[target](42); err == nil {
		t.Fatal("expected error for unsupported payload")
	}
	if _, err := ParsePayload[target](json.RawMessage(`{`)); err == nil {
		t.Fatal("expected error for malformed json")
	}
}

func TestBackoffDoublesUpToMax(t *testing.T) {
	c := QueueConfig{RetryDelay: time.Second, MaxDelay: 5 * time.Second}.withDefaults()
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := c.backoff(i + 1); got != w {
			t.Fatalf("attempt %d: got %v want %v", i+1, got, w)
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	c := QueueConfig{RetryLimit: -1}.withDefaults()
	if c.Workers != 1 || c.RetryLimit != 0 || c.RetryDelay != 10*time.Second || c.PollInterval != time.Second {
		t.Fatalf("defaults = %+v", c)
	}
}

func TestMessageKeepsPayloadRaw(t *testing.T) {
	b, err := json.Marshal(Message{ID: "1", Type: "rescan_product", Payload: json.RawMessage(`{"asin":"B000000001"}`)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got, err := ParsePayload[target](m.Payload)
	if err != nil || got.ASIN != "B000000001" {
		t.Fatalf("payload = %+v %v", got, err)
	}
}

func TestEnqueueUnknownTypeFailsWithoutRedis(t *testing.T) {
	q := NewRedisQueue(nil, QueueConfig{}, nil)
	if err := q.Enqueue(context.Background(), "nope", target{}); err == nil {
		t.Fatal("expected error for unregistered type")
	}
	if q.key("pending") != "impulse:queue:pending" {
		t.Fatalf("key = %s", q.key("pending"))
	}
	if err := q.Stop(context.Background()); err != nil {
		t.Fatalf("stop before start: %v", err)
	}
}
