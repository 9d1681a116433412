package middleware

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"ImpulseSaver/internal/domain/models"
	domrepo "ImpulseSaver/internal/domain/repository"
)

// Sink is the downstream the pipeline writes to (the Kafka producer).
type Sink interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// EventPipeline sits between the analyzer and Kafka. It validates and
// throttles analysis events and buffers them while the broker is down.
type EventPipeline struct {
	sink     Sink
	topic    string
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan *models.ProductAnalysis
	stopCh   chan struct{}
	done     chan struct{}
	started  bool
	mu       sync.Mutex
	seenMu   sync.Mutex
	lastSeen map[string]time.Time // per-ASIN last accepted time
	backoff  time.Duration
}

type PipelineOption func(*EventPipeline)

// WithMaxRPS sets the max events per second per ASIN. Zero disables throttling.
func WithMaxRPS(n int) PipelineOption {
	return func(p *EventPipeline) {
		if n >= 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the retry buffer size used while the sink is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *EventPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithRetryBackoff sets the initial delay between flush retries.
func WithRetryBackoff(d time.Duration) PipelineOption {
	return func(p *EventPipeline) {
		if d > 0 {
			p.backoff = d
		}
	}
}

func NewEventPipeline(sink Sink, topic string, metrics domrepo.Metrics, opts ...PipelineOption) *EventPipeline {
	p := &EventPipeline{
		sink:     sink,
		topic:    topic,
		metrics:  metrics,
		maxRPS:   5,
		bufSize:  1000,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		lastSeen: make(map[string]time.Time),
		backoff:  50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.ProductAnalysis, p.bufSize)
	return p
}

// Start launches background flushing of buffered events.
func (p *EventPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		defer close(p.done)
		backoff := p.backoff
		for {
			select {
			case <-p.stopCh:
				return
			case a := <-p.bufCh:
				if a == nil {
					continue
				}
				if err := p.send(ctx, a); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.recordError("pipeline_flush")
					select {
					case <-time.After(backoff):
					case <-p.stopCh:
						return
					}
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- a:
					default:
						p.recordError("pipeline_buffer_drop")
					}
				} else {
					backoff = p.backoff
				}
			}
		}
	}()
}

// Close stops background flushing. Buffered events that were not flushed
// are dropped. The sink is owned by the caller.
func (p *EventPipeline) Close() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
	<-p.done
	return nil
}

// Buffered reports the number of events waiting for a retry.
func (p *EventPipeline) Buffered() int { return len(p.bufCh) }

// PublishAnalysis validates, throttles and forwards the analysis, buffering
// it when the sink fails.
func (p *EventPipeline) PublishAnalysis(ctx context.Context, a *models.ProductAnalysis) error {
	start := time.Now()
	if err := validateAnalysis(a); err != nil {
		p.recordError("pipeline_validate")
		return err
	}
	if !p.allow(a.Marketplace+"/"+a.ASIN, start) {
		p.recordError("pipeline_throttle")
		return nil
	}

	if err := p.send(ctx, a); err != nil {
		p.recordError("pipeline_process")
		select {
		case p.bufCh <- a:
			if p.metrics != nil {
				p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.bufCh)))
			}
		default:
			p.recordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	if p.metrics != nil {
		p.metrics.RecordLatency("pipeline_publish", time.Since(start).Seconds())
	}
	return nil
}

func (p *EventPipeline) send(ctx context.Context, a *models.ProductAnalysis) error {
	return p.sink.Publish(ctx, p.topic, []byte(a.ASIN), a)
}

func (p *EventPipeline) recordError(kind string) {
	if p.metrics != nil {
		p.metrics.RecordError(kind)
	}
}

func validateAnalysis(a *models.ProductAnalysis) error {
	if a == nil {
		return fmt.Errorf("analysis nil")
	}
	if a.ID == "" {
		return fmt.Errorf("analysis id empty")
	}
	if strings.TrimSpace(a.ASIN) == "" {
		return fmt.Errorf("asin empty")
	}
	if a.ImpulseScore < 0 || a.ImpulseScore > 100 {
		return fmt.Errorf("impulse score out of range")
	}
	return nil
}

func (p *EventPipeline) allow(key string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.seenMu.Lock()
	defer p.seenMu.Unlock()
	last := p.lastSeen[key]
	if !last.IsZero() && now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[key] = now
	return true
}

// Prune forgets throttle state for products not published within idle.
func (p *EventPipeline) Prune(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	p.seenMu.Lock()
	defer p.seenMu.Unlock()
	n := 0
	for k, last := range p.lastSeen {
		if last.Before(cutoff) {
			delete(p.lastSeen, k)
			n++
		}
	}
	return n
}

var _ domrepo.AnalysisPublisher = (*EventPipeline)(nil)
