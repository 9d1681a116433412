package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

type QueueConfig struct {
	Workers      int
	RetryLimit   int           // attempts after the first failure
	RetryDelay   time.Duration // first retry delay, doubled per attempt
	MaxDelay     time.Duration
	PollInterval time.Duration // BRPOP timeout and retry promotion tick
}

func (c QueueConfig) withDefaults() QueueConfig {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.RetryLimit < 0 {
		c.RetryLimit = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 10 * time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Minute
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	return c
}

// backoff returns the delay before the given retry attempt (1-based).
func (c QueueConfig) backoff(attempt int) time.Duration {
	d := c.RetryDelay
	for i := 1; i < attempt && d < c.MaxDelay; i++ {
		d *= 2
	}
	if d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// Message is the stored envelope. Payload stays raw until a job decodes it.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
}

// ParsePayload converts a queue payload into T. Jobs receive json.RawMessage
// from the queue; in-process callers may pass T or *T directly.
func ParsePayload[T any](payload interface{}) (*T, error) {
	var out T
	switch p := payload.(type) {
	case *T:
		return p, nil
	case T:
		return &p, nil
	case json.RawMessage:
		if err := json.Unmarshal(p, &out); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return &out, nil
	case []byte:
		if err := json.Unmarshal(p, &out); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return &out, nil
	case map[string]interface{}:
		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encode payload map: %w", err)
		}
		if err := json.Unmarshal(b, &out); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return &out, nil
	default:
		return nil, fmt.Errorf("invalid payload type: %T", payload)
	}
}
