package kafka

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"

	"ImpulseSaver/pkg/logger"
)

// MessageHandler handles every message of one topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// ConsumerConfig mirrors the kafka.consumer section of the app config.
type ConsumerConfig struct {
	Brokers    []string
	GroupID    string
	Workers    int
	BufferSize int // per worker
	RetryMax   int // retries after the first attempt
	BackoffMin time.Duration
	BackoffMax time.Duration
	DLQTopic   string // failed messages go here and are committed; empty leaves them uncommitted
	MinBytes   int
	MaxBytes   int
}

func (c ConsumerConfig) withDefaults() ConsumerConfig {
	if c.GroupID == "" {
		c.GroupID = "impulsesaver"
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 64
	}
	if c.RetryMax < 0 {
		c.RetryMax = 0
	}
	if c.BackoffMin <= 0 {
		c.BackoffMin = 50 * time.Millisecond
	}
	if c.BackoffMax < c.BackoffMin {
		c.BackoffMax = c.BackoffMin
	}
	if c.MinBytes <= 0 {
		c.MinBytes = 1
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10e6
	}
	return c
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type ConsumerOption func(*Consumer)

func WithConsumerLogger(l *logger.Logger) ConsumerOption {
	return func(c *Consumer) {
		if l != nil {
			c.log = l
		}
	}
}

// WithConsumerHook wraps every handler call with hooks, run as a
// panic-safe HookChain.
func WithConsumerHook(hooks ...ConsumerHook) ConsumerOption {
	return func(c *Consumer) {
		c.hook = NewHookChain(hooks...)
	}
}

func WithConsumerRegistry(reg prometheus.Registerer) ConsumerOption {
	return func(c *Consumer) { c.reg = reg }
}

func withReaderFactory(f func(topic string) messageReader) ConsumerOption {
	return func(c *Consumer) { c.newReader = f }
}

func withDLQWriter(w messageWriter) ConsumerOption {
	return func(c *Consumer) { c.dlq = w }
}

// Consumer reads each registered topic with its own group reader and fans
// messages out to a fixed worker pool. A (topic, partition) always maps to
// the same worker, so messages of one partition are handled in order.
type Consumer struct {
	cfg       ConsumerConfig
	log       *logger.Logger
	hook      ConsumerHook
	reg       prometheus.Registerer
	newReader func(topic string) messageReader
	dlq       messageWriter

	handlers map[string]MessageHandler
	readers  map[string]messageReader
	queues   []chan kafka.Message

	stop     chan struct{}
	stopOnce sync.Once
	fetchWG  sync.WaitGroup
	workWG   sync.WaitGroup

	handled *prometheus.CounterVec
	latency *prometheus.HistogramVec
	backlog *prometheus.GaugeVec
}

func NewConsumer(cfg ConsumerConfig, opts ...ConsumerOption) (*Consumer, error) {
	cfg = cfg.withDefaults()
	c := &Consumer{
		cfg:      cfg,
		log:      logger.Nop(),
		hook:     NoopHook{},
		reg:      prometheus.DefaultRegisterer,
		handlers: make(map[string]MessageHandler),
		readers:  make(map[string]messageReader),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.newReader == nil {
		if len(cfg.Brokers) == 0 {
			return nil, fmt.Errorf("brokers are required")
		}
		c.newReader = func(topic string) messageReader {
			return kafka.NewReader(kafka.ReaderConfig{
				Brokers:     cfg.Brokers,
				Topic:       topic,
				GroupID:     cfg.GroupID,
				MinBytes:    cfg.MinBytes,
				MaxBytes:    cfg.MaxBytes,
				StartOffset: kafka.FirstOffset,
			})
		}
	}
	if c.dlq == nil && cfg.DLQTopic != "" && len(cfg.Brokers) > 0 {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Topic: cfg.DLQTopic, Balancer: &kafka.Hash{}}
	}
	if err := c.initMetrics(); err != nil {
		return nil, err
	}
	return c, nil
}

// RegisterHandler must be called before Start. The first handler for a
// topic wins.
func (c *Consumer) RegisterHandler(h MessageHandler) {
	if _, ok := c.handlers[h.Topic()]; ok {
		c.log.Warn("kafka consumer: handler already registered", logger.String("topic", h.Topic()))
		return
	}
	c.handlers[h.Topic()] = h
}

func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return fmt.Errorf("kafka consumer: no handlers registered")
	}
	c.queues = make([]chan kafka.Message, c.cfg.Workers)
	for i := range c.queues {
		c.queues[i] = make(chan kafka.Message, c.cfg.BufferSize)
		c.workWG.Add(1)
		go c.work(i, c.queues[i])
	}
	for topic := range c.handlers {
		r := c.newReader(topic)
		c.readers[topic] = r
		c.fetchWG.Add(1)
		go c.fetch(topic, r)
	}
	c.log.Info("kafka consumer: started",
		logger.String("group_id", c.cfg.GroupID),
		logger.Int("topics", len(c.handlers)),
		logger.Int("workers", c.cfg.Workers))
	return nil
}

// Stop halts fetching, drains the worker queues and closes the readers.
func (c *Consumer) Stop(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		close(c.stop)
		if err = wait(ctx, &c.fetchWG); err == nil {
			for _, q := range c.queues {
				close(q)
			}
			err = wait(ctx, &c.workWG)
		}
		for topic, r := range c.readers {
			if cerr := r.Close(); cerr != nil {
				c.log.Error("kafka consumer: close reader", logger.String("topic", topic), logger.Error(cerr))
			}
		}
		if c.dlq != nil {
			if cerr := c.dlq.Close(); cerr != nil {
				c.log.Error("kafka consumer: close dlq writer", logger.Error(cerr))
			}
		}
		if err == nil {
			c.log.Info("kafka consumer: stopped")
		}
	})
	return err
}

func wait(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("kafka consumer stop: %w", ctx.Err())
	}
}

func (c *Consumer) fetch(topic string, r messageReader) {
	defer c.fetchWG.Done()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-c.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		km, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			c.log.Error("kafka consumer: fetch", logger.String("topic", topic), logger.Error(err))
			if !sleep(c.stop, c.cfg.BackoffMax) {
				return
			}
			continue
		}
		if km.Topic == "" {
			km.Topic = topic
		}
		q := c.queues[c.route(km.Topic, km.Partition)]
		select {
		case q <- km:
			c.backlog.WithLabelValues(km.Topic).Set(float64(len(q)))
		case <-c.stop:
			return
		}
	}
}

func (c *Consumer) route(topic string, partition int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(topic))
	_, _ = h.Write([]byte(strconv.Itoa(partition)))
	return int(h.Sum32() % uint32(len(c.queues)))
}

func (c *Consumer) work(id int, q <-chan kafka.Message) {
	defer c.workWG.Done()
	for km := range q {
		c.process(km)
	}
	c.log.Debug("kafka consumer: worker exited", logger.Int("worker_id", id))
}

func (c *Consumer) process(km kafka.Message) {
	h, ok := c.handlers[km.Topic]
	if !ok {
		return
	}
	start := time.Now()
	err := c.handleWithRetry(h, km)
	result := "ok"
	if err != nil {
		result = "failed"
		c.log.Error("kafka consumer: handle failed",
			logger.String("topic", km.Topic),
			logger.Int("partition", km.Partition),
			logger.Int64("offset", km.Offset),
			logger.Error(err))
		if !c.deadLetter(km, err) {
			// left uncommitted; redelivered after a rebalance or restart
			c.handled.WithLabelValues(km.Topic, result).Inc()
			return
		}
		result = "dead_lettered"
	}
	c.handled.WithLabelValues(km.Topic, result).Inc()
	c.latency.WithLabelValues(km.Topic).Observe(time.Since(start).Seconds())
	c.commit(km)
}

func (c *Consumer) handleWithRetry(h MessageHandler, km kafka.Message) (err error) {
	for attempt := 1; ; attempt++ {
		err = c.attempt(h, km)
		if err == nil || attempt > c.cfg.RetryMax {
			return err
		}
		var herr *HookError
		if errors.As(err, &herr) && herr.Code == "ERR_EMPTY_PAYLOAD" {
			return err
		}
		if !sleep(c.stop, backoff(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)) {
			return err
		}
	}
}

func (c *Consumer) attempt(h MessageHandler, km kafka.Message) (err error) {
	ctx, msg, data, err := c.hook.BeforeHandle(context.Background(), km.Topic, km, km.Value)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = &HookError{Code: "ERR_PANIC", Err: fmt.Errorf("handler panic: %v", r)}
		}
		c.hook.AfterHandle(ctx, msg.Topic, msg, data, err)
		if err != nil {
			c.hook.OnError(ctx, msg.Topic, msg, data, err)
		}
	}()
	return h.Handle(ctx, data)
}

// deadLetter reports whether the message may be committed.
func (c *Consumer) deadLetter(km kafka.Message, cause error) bool {
	if c.dlq == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.dlq.WriteMessages(ctx, kafka.Message{
		Key:   km.Key,
		Value: km.Value,
		Headers: append(km.Headers,
			kafka.Header{Key: "source_topic", Value: []byte(km.Topic)},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
		),
	})
	if err != nil {
		c.log.Error("kafka consumer: dlq write", logger.String("dlq_topic", c.cfg.DLQTopic), logger.Error(err))
		return false
	}
	return true
}

func (c *Consumer) commit(km kafka.Message) {
	r := c.readers[km.Topic]
	if r == nil {
		return
	}
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = r.CommitMessages(ctx, km)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(backoff(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	c.log.Error("kafka consumer: commit failed",
		logger.String("topic", km.Topic),
		logger.Int64("offset", km.Offset),
		logger.Error(err))
}

func (c *Consumer) initMetrics() error {
	var err error
	if c.handled, err = register(c.reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "impulse_kafka_consumer_messages_total",
		Help: "Messages consumed by topic and outcome",
	}, []string{"topic", "result"})); err != nil {
		return err
	}
	if c.latency, err = register(c.reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "impulse_kafka_consumer_handle_seconds",
		Help:    "Handling time per message including retries",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})); err != nil {
		return err
	}
	if c.backlog, err = register(c.reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "impulse_kafka_consumer_backlog",
		Help: "Messages waiting in the worker queue that received the last fetch",
	}, []string{"topic"})); err != nil {
		return err
	}
	return nil
}

// backoff doubles from min per attempt, capped at max, minus up to 50% jitter.
func backoff(min, max time.Duration, attempt int) time.Duration {
	d := min
	for i := 1; i < attempt && d < max; i++ {
		d *= 2
	}
	if d > max {
		d = max
	}
	if half := int64(d) / 2; half > 0 {
		d -= time.Duration(rand.Int63n(half))
	}
	return d
}

func sleep(stop <-chan struct{}, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-stop:
		return false
	}
}
