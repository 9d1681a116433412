package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
)

// ProducerConfig mirrors the kafka.producer section of the app config.
type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int    // -1 all, 0 none, 1 leader
	Compression  string // gzip, snappy, lz4, zstd
	MaxAttempts  int
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	BatchSize    int
	BatchBytes   int
	Linger       time.Duration
	Async        bool
}

func (c ProducerConfig) withDefaults() ProducerConfig {
	if c.Compression == "" {
		c.Compression = "gzip"
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.BatchBytes <= 0 {
		c.BatchBytes = 1 << 20
	}
	if c.Linger <= 0 {
		c.Linger = time.Second
	}
	return c
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type ProducerOption func(*Producer)

// WithProducerRegistry registers producer metrics on reg instead of the
// default registry.
func WithProducerRegistry(reg prometheus.Registerer) ProducerOption {
	return func(p *Producer) { p.reg = reg }
}

func withWriter(w messageWriter) ProducerOption {
	return func(p *Producer) { p.writer = w }
}

// Producer publishes JSON values keyed for per-product ordering. Every
// message carries a trace_id header, taken from the context when the
// caller is itself handling a traced message.
type Producer struct {
	writer messageWriter
	comp   string
	reg    prometheus.Registerer
	now    func() time.Time

	sent    *prometheus.CounterVec
	bytes   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

func NewProducer(cfg ProducerConfig, opts ...ProducerOption) (*Producer, error) {
	cfg = cfg.withDefaults()
	p := &Producer{comp: cfg.Compression, reg: prometheus.DefaultRegisterer, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.writer == nil {
		if len(cfg.Brokers) == 0 {
			return nil, fmt.Errorf("brokers are required")
		}
		comp, err := parseCompression(cfg.Compression)
		if err != nil {
			return nil, err
		}
		p.writer = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
			Compression:  comp,
			MaxAttempts:  cfg.MaxAttempts,
			WriteTimeout: cfg.WriteTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			BatchSize:    cfg.BatchSize,
			BatchBytes:   int64(cfg.BatchBytes),
			BatchTimeout: cfg.Linger,
			Async:        cfg.Async,
		}
	}
	if err := p.initMetrics(); err != nil {
		return nil, err
	}
	return p, nil
}

// Message is one record for PublishBatch. Value is JSON-encoded unless it
// is already []byte or string.
type Message struct {
	Key   []byte
	Value interface{}
}

// Publish sends a single value to topic.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	return p.PublishBatch(ctx, topic, []Message{{Key: key, Value: value}})
}

// PublishMessage publishes without a key. It satisfies logger.Publisher.
func (p *Producer) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.Publish(ctx, topic, nil, payload)
}

func (p *Producer) PublishBatch(ctx context.Context, topic string, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}
	trace := traceIDFrom(ctx)
	now := p.now()
	out := make([]kafka.Message, 0, len(messages))
	var size int
	for i, m := range messages {
		v, err := encodeValue(m.Value)
		if err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
		size += len(v)
		out = append(out, kafka.Message{
			Topic: topic,
			Key:   m.Key,
			Value: v,
			Time:  now,
			Headers: []kafka.Header{
				{Key: "trace_id", Value: []byte(trace)},
				{Key: "content_type", Value: []byte("application/json")},
			},
		})
	}

	start := time.Now()
	err := p.writer.WriteMessages(ctx, out...)
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.sent.WithLabelValues(topic, result).Add(float64(len(out)))
	p.bytes.WithLabelValues(topic, p.comp).Add(float64(size))
	p.latency.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func (p *Producer) initMetrics() error {
	p.sent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "impulse_kafka_producer_messages_total",
		Help: "Messages written to Kafka by topic and result",
	}, []string{"topic", "result"})
	p.bytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "impulse_kafka_producer_bytes_total",
		Help: "Uncompressed payload bytes written to Kafka",
	}, []string{"topic", "compression"})
	p.latency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "impulse_kafka_producer_publish_seconds",
		Help:    "WriteMessages latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})

	var err error
	if p.sent, err = register(p.reg, p.sent); err != nil {
		return err
	}
	if p.bytes, err = register(p.reg, p.bytes); err != nil {
		return err
	}
	if p.latency, err = register(p.reg, p.latency); err != nil {
		return err
	}
	return nil
}

// register returns the already registered collector when an identical one
// exists, so several producers can share a registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register producer metrics: %w", err)
	}
	return c, nil
}

func encodeValue(v interface{}) ([]byte, error) {
	switch val := v.(type) {
	case []byte:
		return val, nil
	case string:
		return []byte(val), nil
	case json.RawMessage:
		return val, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return b, nil
}

func traceIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(CtxTraceID).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

func parseCompression(s string) (kafka.Compression, error) {
	switch s {
	case "gzip":
		return kafka.Gzip, nil
	case "snappy":
		return kafka.Snappy, nil
	case "lz4":
		return kafka.Lz4, nil
	case "zstd":
		return kafka.Zstd, nil
	}
	return 0, fmt.Errorf("unknown compression %q", s)
}
