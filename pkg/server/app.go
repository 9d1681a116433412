package server

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	mid "ImpulseSaver/internal/middleware"
	"ImpulseSaver/internal/scheduler"
	"ImpulseSaver/pkg/config"
	xhttp "ImpulseSaver/pkg/http"
	pkgkafka "ImpulseSaver/pkg/kafka"
	applogger "ImpulseSaver/pkg/logger"
	"ImpulseSaver/pkg/queue"
)

type namedCloser struct {
	name string
	c    io.Closer
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server

	consumer  *pkgkafka.Consumer
	handlers  []pkgkafka.MessageHandler
	producer  *pkgkafka.Producer
	pipeline  *mid.EventPipeline
	queue     *queue.RedisQueue
	scheduler *scheduler.Scheduler
	closers   []namedCloser
}

type AppOption func(*App)

// WithConsumer runs the Kafka consumer with the given topic handlers.
func WithConsumer(c *pkgkafka.Consumer, handlers ...pkgkafka.MessageHandler) AppOption {
	return func(a *App) {
		a.consumer = c
		a.handlers = append(a.handlers, handlers...)
	}
}

// WithProducer closes the producer after everything that publishes through it.
func WithProducer(p *pkgkafka.Producer) AppOption {
	return func(a *App) { a.producer = p }
}

func WithPipeline(p *mid.EventPipeline) AppOption {
	return func(a *App) { a.pipeline = p }
}

func WithQueue(q *queue.RedisQueue) AppOption {
	return func(a *App) { a.queue = q }
}

func WithScheduler(s *scheduler.Scheduler) AppOption {
	return func(a *App) { a.scheduler = s }
}

// WithCloser releases c on shutdown, in registration order.
func WithCloser(name string, c io.Closer) AppOption {
	return func(a *App) {
		if c != nil {
			a.closers = append(a.closers, namedCloser{name: name, c: c})
		}
	}
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, log *applogger.Logger, httpServer *xhttp.Server, opts ...AppOption) *App {
	if log == nil {
		log = applogger.Nop()
	}
	a := &App{cfg: cfg, log: log, httpServer: httpServer}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		_ = a.Shutdown(context.Background())
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Start launches every background component and the HTTP server.
func (a *App) Start(ctx context.Context) error {
	if a.pipeline != nil {
		a.pipeline.Start(ctx)
		a.log.Info("event pipeline started", applogger.String("topic", a.cfg.Kafka.Topics.Analyses))
	}

	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			return err
		}
	}

	if a.consumer != nil && len(a.handlers) > 0 {
		topics := make([]string, 0, len(a.handlers))
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
			topics = append(topics, h.Topic())
		}
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer error", applogger.Error(err))
			return err
		}
		a.log.Info("kafka consumer started", applogger.Strings("topics", topics))
	}

	if a.scheduler != nil {
		a.scheduler.Start()
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	return nil
}

// Shutdown stops intake first, then drains and releases infrastructure.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}

	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			a.log.Warn("queue stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	if a.pipeline != nil {
		if err := a.pipeline.Close(); err != nil {
			a.log.Warn("event pipeline close error", applogger.Error(err))
		}
	}

	// flush aggregated logs while the producer is still open
	a.log.RemoveCollector()
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	for _, nc := range a.closers {
		if err := nc.c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("component", nc.name), applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
