package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ImpulseSaver/pkg/logger"
)

// promoteDue moves up to ARGV[2] retry entries whose score is <= ARGV[1]
// from the retry set back onto the pending list, atomically.
var promoteDue = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
for _, m in ipairs(due) do
	redis.call('ZREM', KEYS[1], m)
	redis.call('LPUSH', KEYS[2], m)
end
return #due
`)

// RedisQueue is a list-backed work queue with delayed retries and a dead
// letter list. Producers and workers may run in different processes.
type RedisQueue struct {
	log    *logger.Logger
	cfg    QueueConfig
	client *redis.Client
	prefix string

	mu      sync.RWMutex
	jobs    map[string]Job
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	now     func() time.Time
}

type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix namespaces every key of the queue.
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

func NewRedisQueue(log *logger.Logger, cfg QueueConfig, client *redis.Client, opts ...RedisQueueOption) *RedisQueue {
	if log == nil {
		log = logger.Nop()
	}
	r := &RedisQueue{
		log:    log,
		cfg:    cfg.withDefaults(),
		client: client,
		prefix: "impulse:queue",
		jobs:   make(map[string]Job),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterJob routes messages of job.Type() to job. Later registrations for
// the same type replace earlier ones.
func (r *RedisQueue) RegisterJob(job Job) {
	r.mu.Lock()
	r.jobs[job.Type()] = job
	r.mu.Unlock()
	r.log.Info("queue job registered", logger.String("job", job.Name()), logger.String("type", job.Type()))
}

// Start pings Redis and launches the workers and the retry promoter.
func (r *RedisQueue) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("queue already running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := r.client.Ping(ctx).Err()
	cancel()
	if err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	runCtx, stop := context.WithCancel(context.Background())
	r.cancel = stop
	r.running = true
	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go r.worker(runCtx, i)
	}
	r.wg.Add(1)
	go r.promoter(runCtx)

	r.log.Info("redis queue started",
		logger.Int("workers", r.cfg.Workers),
		logger.String("prefix", r.prefix),
		logger.String("addr", r.client.Options().Addr))
	return nil
}

// Stop cancels the workers and waits for in-flight messages up to ctx.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.log.Info("redis queue stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queue stop: %w", ctx.Err())
	}
}

// Enqueue pushes a message for the job registered under msgType. Enqueue
// works without Start, so a process may only produce.
func (r *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) error {
	r.mu.RLock()
	_, known := r.jobs[msgType]
	r.mu.RUnlock()
	if !known {
		return fmt.Errorf("no job registered for type %q", msgType)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	b, err := json.Marshal(Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   raw,
		Timestamp: r.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := r.client.LPush(ctx, r.key("pending"), b).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", msgType, err)
	}
	return nil
}

// Depth reports pending, retrying and dead-lettered message counts.
func (r *RedisQueue) Depth(ctx context.Context) (pending, retrying, dead int64, err error) {
	pipe := r.client.Pipeline()
	p := pipe.LLen(ctx, r.key("pending"))
	rt := pipe.ZCard(ctx, r.key("retry"))
	d := pipe.LLen(ctx, r.key("dead"))
	if _, err = pipe.Exec(ctx); err != nil {
		return 0, 0, 0, fmt.Errorf("queue depth: %w", err)
	}
	return p.Val(), rt.Val(), d.Val(), nil
}

func (r *RedisQueue) worker(ctx context.Context, id int) {
	defer r.wg.Done()
	for ctx.Err() == nil {
		res, err := r.client.BRPop(ctx, r.cfg.PollInterval, r.key("pending")).Result()
		switch {
		case err == nil:
		case errors.Is(err, redis.Nil), ctx.Err() != nil:
			continue
		default:
			r.log.Error("queue pop failed", logger.Int("worker_id", id), logger.Error(err))
			sleepCtx(ctx, time.Second)
			continue
		}
		// res is [key, value]
		var msg Message
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			r.log.Error("queue message undecodable, dropped", logger.Error(err))
			continue
		}
		r.process(ctx, msg)
	}
}

func (r *RedisQueue) process(ctx context.Context, msg Message) {
	r.mu.RLock()
	job, ok := r.jobs[msg.Type]
	r.mu.RUnlock()
	if !ok {
		r.log.Error("no job for message type", logger.String("type", msg.Type), logger.String("id", msg.ID))
		r.bury(msg)
		return
	}

	start := time.Now()
	err := job.Handle(ctx, msg.Payload)
	if err == nil {
		r.log.Debug("queue message done",
			logger.String("job", job.Name()),
			logger.String("id", msg.ID),
			logger.Duration("duration_ms", time.Since(start)))
		return
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// shutting down; put it back for the next worker
		r.retry(msg, 0)
		return
	}

	msg.Attempts++
	if msg.Attempts > r.cfg.RetryLimit {
		r.log.Error("queue message failed permanently",
			logger.String("job", job.Name()),
			logger.String("id", msg.ID),
			logger.Int("attempts", msg.Attempts),
			logger.Error(err))
		r.bury(msg)
		return
	}
	delay := r.cfg.backoff(msg.Attempts)
	r.log.Warn("queue message failed, retrying",
		logger.String("job", job.Name()),
		logger.String("id", msg.ID),
		logger.Int("attempt", msg.Attempts),
		logger.Duration("retry_in_ms", delay),
		logger.Error(err))
	r.retry(msg, delay)
}

func (r *RedisQueue) retry(msg Message, delay time.Duration) {
	b, err := json.Marshal(msg)
	if err != nil {
		r.log.Error("marshal retry", logger.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	due := float64(r.now().Add(delay).Unix())
	if err := r.client.ZAdd(ctx, r.key("retry"), redis.Z{Score: due, Member: b}).Err(); err != nil {
		r.log.Error("schedule retry failed", logger.String("id", msg.ID), logger.Error(err))
	}
}

func (r *RedisQueue) bury(msg Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.client.LPush(ctx, r.key("dead"), b).Err(); err != nil {
		r.log.Error("dead letter push failed", logger.String("id", msg.ID), logger.Error(err))
	}
}

func (r *RedisQueue) promoter(ctx context.Context) {
	defer r.wg.Done()
	t := time.NewTicker(r.cfg.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			keys := []string{r.key("retry"), r.key("pending")}
			n, err := promoteDue.Run(ctx, r.client, keys, r.now().Unix(), 100).Int()
			if err != nil && ctx.Err() == nil {
				r.log.Error("promote retries failed", logger.Error(err))
				continue
			}
			if n > 0 {
				r.log.Debug("retries promoted", logger.Int("count", n))
			}
		}
	}
}

func (r *RedisQueue) key(name string) string { return r.prefix + ":" + name }

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
