package logger

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"sort"
	"sync"
	"time"
)

// Publisher ships a batch of aggregated entries, e.g. to a Kafka topic.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type CollectionConfig struct {
	TimeInterval    time.Duration // flush period, default 30s
	CountThreshold  int           // unique entries that trigger an early flush, default 100
	Topic           string
	Publisher       Publisher
	IncludeWarnings bool
}

// AggregatedLogEntry is one distinct (level, message, fields, caller) tuple
// seen Count times between two flushes.
type AggregatedLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogCollector folds repeated log lines into counted entries and publishes
// them from a single goroutine, so batches leave in order.
type LogCollector struct {
	cfg     CollectionConfig
	now     func() time.Time
	mu      sync.Mutex
	entries map[uint64]*AggregatedLogEntry
	kick    chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func NewLogCollector(cfg *CollectionConfig) *LogCollector {
	c := &LogCollector{
		cfg:     *cfg,
		now:     time.Now,
		entries: make(map[uint64]*AggregatedLogEntry),
		kick:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	if c.cfg.TimeInterval <= 0 {
		c.cfg.TimeInterval = 30 * time.Second
	}
	if c.cfg.CountThreshold <= 0 {
		c.cfg.CountThreshold = 100
	}
	go c.run()
	return c
}

func (c *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	now := c.now()
	key := entryKey(level, message, fields, caller)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		e.Count++
		e.LastSeen = now
	} else {
		c.entries[key] = &AggregatedLogEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}
	full := len(c.entries) >= c.cfg.CountThreshold
	c.mu.Unlock()

	if full {
		select {
		case c.kick <- struct{}{}:
		default:
		}
	}
}

// Flush publishes whatever has been aggregated so far.
func (c *LogCollector) Flush() {
	batch := c.drain()
	if len(batch) == 0 || c.cfg.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.cfg.Publisher.PublishMessage(ctx, c.cfg.Topic, batch); err != nil {
		// the logger cannot log its own shipping failure
		fmt.Fprintf(os.Stderr, "log collector: publish %d entries: %v\n", len(batch), err)
	}
}

// Close performs a final flush and stops the collector.
func (c *LogCollector) Close() {
	c.once.Do(func() { close(c.done) })
	<-c.stopped
}

func (c *LogCollector) run() {
	defer close(c.stopped)
	t := time.NewTicker(c.cfg.TimeInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			c.Flush()
		case <-c.kick:
			c.Flush()
		case <-c.done:
			c.Flush()
			return
		}
	}
}

func (c *LogCollector) drain() []AggregatedLogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) == 0 {
		return nil
	}
	out := make([]AggregatedLogEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	c.entries = make(map[uint64]*AggregatedLogEntry, len(out))
	sort.Slice(out, func(i, j int) bool { return out[i].FirstSeen.Before(out[j].FirstSeen) })
	return out
}

func entryKey(level, message string, fields map[string]interface{}, caller string) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s\x00%s\x00%s", level, message, caller)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "\x00%s=%v", k, fields[k])
	}
	return h.Sum64()
}
