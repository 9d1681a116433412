package di

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domrepo "ImpulseSaver/internal/domain/repository"
	domsvc "ImpulseSaver/internal/domain/service"
	"ImpulseSaver/internal/handler/api"
	mid "ImpulseSaver/internal/middleware"
	internalrepo "ImpulseSaver/internal/repository"
	"ImpulseSaver/internal/scheduler"
	"ImpulseSaver/internal/service/ratelimit"
	"ImpulseSaver/internal/service/stream"
	"ImpulseSaver/internal/services/analytics"
	"ImpulseSaver/internal/services/category"
	"ImpulseSaver/internal/usecase"
	"ImpulseSaver/pkg/cache"
	pkgch "ImpulseSaver/pkg/clickhouse"
	"ImpulseSaver/pkg/config"
	xhttp "ImpulseSaver/pkg/http"
	pkgkafka "ImpulseSaver/pkg/kafka"
	applogger "ImpulseSaver/pkg/logger"
	"ImpulseSaver/pkg/metrics"
	"ImpulseSaver/pkg/queue"
	"ImpulseSaver/pkg/server"
)

const initTimeout = 10 * time.Second

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

func ProvideClassifier() domsvc.CategoryClassifier {
	return category.NewClassifier()
}

// ProvideEngine assembles the scoring components from the engine thresholds.
func ProvideEngine(cfg *config.Config, classifier domsvc.CategoryClassifier) *usecase.Engine {
	t := cfg.Engine
	return usecase.NewEngine(
		analytics.NewDealQualityScorer(t),
		analytics.NewInflationDetector(t),
		classifier,
		analytics.NewImpulseScorer(t),
		analytics.NewAlternativeRanker(t, cfg.API.AffiliateTag),
	)
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	c := cfg.ClickHouse
	client, err := pkgch.NewClient(pkgch.ClientConfig{
		Host:         c.Host,
		Port:         c.Port,
		Database:     c.Database,
		User:         c.User,
		Password:     c.Password,
		UseHTTP:      c.UseHTTP,
		AsyncInsert:  c.AsyncInsert,
		WaitForAsync: c.WaitForAsync,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		MaxExecTime:  c.MaxExecutionTime,
		BatchSize:    c.BatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvidePriceHistoryStore uses ClickHouse when available, memory otherwise.
func ProvidePriceHistoryStore(ch *pkgch.Client, log *applogger.Logger) (domrepo.PriceHistoryStore, error) {
	if ch == nil {
		log.Warn("clickhouse disabled, price history kept in memory")
		return internalrepo.NewMemoryPriceStore(), nil
	}
	store := internalrepo.NewCHPriceStore(ch, log)
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideSQLite opens the local database, or returns nil when no path is set.
func ProvideSQLite(cfg *config.Config) (*sql.DB, error) {
	if cfg.SQLite.Path == "" {
		return nil, nil
	}
	db, err := internalrepo.OpenSQLite(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	return db, nil
}

// ProvideCandidateSource serves alternatives from SQLite, seeded with the
// built-in catalog, or from the built-in catalog directly.
func ProvideCandidateSource(db *sql.DB, log *applogger.Logger) (domrepo.CandidateSource, error) {
	if db == nil {
		return internalrepo.NewStaticCatalog(), nil
	}
	c := internalrepo.NewSQLiteCatalog(db, log)
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := c.Init(ctx); err != nil {
		return nil, fmt.Errorf("candidate catalog: %w", err)
	}
	return c, nil
}

// ProvideAnalysisStore prefers Postgres and falls back to SQLite.
func ProvideAnalysisStore(cfg *config.Config, db *sql.DB) (domrepo.AnalysisStore, error) {
	var store domrepo.AnalysisStore
	switch {
	case cfg.Postgres.DSN != "":
		pg, err := internalrepo.NewPostgresAnalysisStore(cfg.Postgres.DSN, cfg.Postgres.PingAttempts, cfg.Postgres.PingDelay)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		store = pg
	case db != nil:
		store = internalrepo.NewSQLiteAnalysisStore(db)
	default:
		return nil, fmt.Errorf("analysis store: neither postgres.dsn nor sqlite.path is set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("analysis store schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	pc := cfg.Kafka.Producer
	producer, err := pkgkafka.NewProducer(pkgkafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		RequiredAcks: cfg.Kafka.RequiredAcks,
		Compression:  cfg.Kafka.Compression,
		MaxAttempts:  pc.MaxAttempts,
		WriteTimeout: pc.WriteTimeout,
		ReadTimeout:  pc.ReadTimeout,
		BatchSize:    pc.BatchSize,
		BatchBytes:   pc.BatchBytes,
		Linger:       pc.Linger,
		Async:        pc.Async,
	})
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPipeline throttles and buffers analysis events on their way to Kafka.
func ProvideEventPipeline(cfg *config.Config, producer *pkgkafka.Producer, m domrepo.Metrics) *mid.EventPipeline {
	if producer == nil {
		return nil
	}
	return mid.NewEventPipeline(producer, cfg.Kafka.Topics.Analyses, m,
		mid.WithMaxRPS(cfg.Pipeline.MaxRPS),
		mid.WithBufferSize(cfg.Pipeline.BufferSize),
	)
}

// ProvideKafkaConsumer creates a Kafka consumer, or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config, log *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	cc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:    cfg.Kafka.Brokers,
		GroupID:    cc.GroupID,
		Workers:    cc.Workers,
		BufferSize: cc.BufferSize,
		RetryMax:   cc.RetryMax,
		BackoffMin: cc.BackoffMin,
		BackoffMax: cc.BackoffMax,
		DLQTopic:   cc.DLQTopic,
		MinBytes:   cc.MinBytes,
		MaxBytes:   cc.MaxBytes,
	},
		pkgkafka.WithConsumerLogger(log),
		pkgkafka.WithConsumerHook(pkgkafka.NewTracingHook(log)),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvidePriceHistoryHandler ingests raw price records from Kafka.
func ProvidePriceHistoryHandler(cfg *config.Config, store domrepo.PriceHistoryStore, m domrepo.Metrics, log *applogger.Logger) *usecase.PriceHistoryHandler {
	return usecase.NewPriceHistoryHandler(cfg.Kafka.Topics.PriceHistory, store, m, log)
}

func ProvideHub(cfg *config.Config, log *applogger.Logger) *stream.Hub {
	return stream.NewHub(cfg.Stream.PingInterval, cfg.Stream.SendBuffer, log)
}

// ProvideRedisCache connects to Redis, or returns nil when disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// ProvideCache layers memory over Redis when Redis is enabled.
func ProvideCache(cfg *config.Config, rc *cache.RedisCache) cache.Service {
	if rc == nil {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Redis.MemorySize))
	}
	return cache.NewLayeredCache(rc, cfg.Redis.MemorySize, cfg.Redis.MemoryTTL)
}

// ProvideProductAnalyzer wires the analysis usecase to its sinks.
func ProvideProductAnalyzer(
	cfg *config.Config,
	engine *usecase.Engine,
	history domrepo.PriceHistoryStore,
	candidates domrepo.CandidateSource,
	store domrepo.AnalysisStore,
	pipeline *mid.EventPipeline,
	hub *stream.Hub,
	m domrepo.Metrics,
	log *applogger.Logger,
) *usecase.ProductAnalyzer {
	opts := []usecase.AnalyzerOption{
		usecase.WithAnalysisStore(store),
		usecase.WithBroadcaster(hub),
		usecase.WithMetrics(m),
		usecase.WithLogger(log),
		usecase.WithTimeout(cfg.API.AnalyzeTimeout),
		usecase.WithHistoryDays(cfg.API.HistoryDays),
	}
	// a nil *EventPipeline must not become a non-nil interface
	if pipeline != nil {
		opts = append(opts, usecase.WithPublisher(pipeline))
	}
	return usecase.NewProductAnalyzer(engine, history, candidates, opts...)
}

func ProvideRecentAnalyses(store domrepo.AnalysisStore, log *applogger.Logger) *usecase.RecentAnalysesUseCase {
	return usecase.NewRecentAnalysesUseCase(store, log)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.API.RateLimit.Capacity, cfg.API.RateLimit.RefillPerSec)
}

// ProvideQueue creates the Redis work queue for rescans, or nil when disabled.
func ProvideQueue(cfg *config.Config, rc *cache.RedisCache, log *applogger.Logger) *queue.RedisQueue {
	if !cfg.Queue.Enabled || rc == nil {
		return nil
	}
	return queue.NewRedisQueue(log, queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
		MaxDelay:   cfg.Queue.MaxDelay,
	}, rc.Client(), queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"))
}

// ProvideWatchlistRescan re-analyses recent products, through the queue when
// one is configured.
func ProvideWatchlistRescan(
	cfg *config.Config,
	analyzer *usecase.ProductAnalyzer,
	store domrepo.AnalysisStore,
	c cache.Service,
	q *queue.RedisQueue,
	log *applogger.Logger,
) *usecase.WatchlistRescan {
	w := usecase.NewWatchlistRescan(analyzer, store, c, cfg.Schedule.RescanLookback, cfg.Schedule.RescanLimit, log)
	if q != nil {
		q.RegisterJob(usecase.NewRescanJob(w, log))
		w.WithDispatcher(q)
	}
	return w
}

// ProvideScheduler registers the cron jobs, or returns nil when disabled.
func ProvideScheduler(cfg *config.Config, rescan *usecase.WatchlistRescan, limiter *ratelimit.Limiter, pipeline *mid.EventPipeline, log *applogger.Logger) (*scheduler.Scheduler, error) {
	if !cfg.Schedule.Enabled {
		return nil, nil
	}
	pruners := scheduler.Pruners{limiter}
	if pipeline != nil {
		pruners = append(pruners, pipeline)
	}
	s := scheduler.NewScheduler(context.Background(), rescan, pruners, 0, log)
	if err := s.RegisterAll(cfg.Schedule.RescanCron); err != nil {
		return nil, err
	}
	return s, nil
}

// ProvideHTTPHandler registers the analysis API with its health checks.
func ProvideHTTPHandler(
	cfg *config.Config,
	analyzer *usecase.ProductAnalyzer,
	recent *usecase.RecentAnalysesUseCase,
	classifier domsvc.CategoryClassifier,
	c cache.Service,
	limiter *ratelimit.Limiter,
	hub *stream.Hub,
	store domrepo.AnalysisStore,
	history domrepo.PriceHistoryStore,
	rc *cache.RedisCache,
	log *applogger.Logger,
) *api.AnalysisEchoHandler {
	opts := []api.HandlerOption{
		api.WithResponseCache(c, cfg.API.CacheTTL),
		api.WithRateLimiter(limiter),
		api.WithStream(hub),
		api.WithHealthCheck("analysis_store", store),
		api.WithHealthCheck("price_history", history),
	}
	if rc != nil {
		opts = append(opts, api.WithHealthCheck("redis", rc))
	}
	return api.NewAnalysisEchoHandler(log, analyzer, recent, classifier, opts...)
}

func ProvideHTTPServer(cfg *config.Config, h *api.AnalysisEchoHandler, log *applogger.Logger) *xhttp.Server {
	return xhttp.NewServer(h,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowRequest(cfg.Server.SlowRequest),
		xhttp.WithCORS(cfg.Server.CORSOrigins...),
		xhttp.WithLogger(log),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	priceHandler *usecase.PriceHistoryHandler,
	producer *pkgkafka.Producer,
	pipeline *mid.EventPipeline,
	q *queue.RedisQueue,
	sched *scheduler.Scheduler,
	hub *stream.Hub,
	c cache.Service,
	store domrepo.AnalysisStore,
	history domrepo.PriceHistoryStore,
	ch *pkgch.Client,
	db *sql.DB,
) *server.App {
	if cfg.LogCollector.Enabled && producer != nil {
		log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:    cfg.LogCollector.Interval,
			CountThreshold:  cfg.LogCollector.Threshold,
			Topic:           cfg.LogCollector.Topic,
			Publisher:       producer,
			IncludeWarnings: cfg.LogCollector.IncludeWarnings,
		})
	}

	opts := []server.AppOption{
		server.WithCloser("stream", hub),
		server.WithCloser("cache", c),
		server.WithCloser("analysis_store", store),
		server.WithCloser("price_history", history),
	}
	if consumer != nil {
		opts = append(opts, server.WithConsumer(consumer, priceHandler))
	}
	if producer != nil {
		opts = append(opts, server.WithProducer(producer))
	}
	if pipeline != nil {
		opts = append(opts, server.WithPipeline(pipeline))
	}
	if q != nil {
		opts = append(opts, server.WithQueue(q))
	}
	if sched != nil {
		opts = append(opts, server.WithScheduler(sched))
	}
	if ch != nil {
		opts = append(opts, server.WithCloser("clickhouse", ch))
	}
	if db != nil {
		opts = append(opts, server.WithCloser("sqlite", db))
	}
	return server.New(cfg, log, httpServer, opts...)
}
