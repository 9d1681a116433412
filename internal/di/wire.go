//go:build wireinject
// +build wireinject

package di

import (
	"ImpulseSaver/pkg/config"
	"ImpulseSaver/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideSQLite,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisCache,
		ProvideCache,
		ProvideQueue,

		// Repositories
		ProvidePriceHistoryStore,
		ProvideCandidateSource,
		ProvideAnalysisStore,

		// Engine and use cases
		ProvideClassifier,
		ProvideEngine,
		ProvideEventPipeline,
		ProvideHub,
		ProvideProductAnalyzer,
		ProvideRecentAnalyses,
		ProvidePriceHistoryHandler,
		ProvideWatchlistRescan,
		ProvideRateLimiter,
		ProvideScheduler,

		// HTTP
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
