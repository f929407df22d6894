package main

import (
	"context"

	"wallet-activity-stats/internal/adapters/primary/httpapi"
	"wallet-activity-stats/internal/adapters/secondary"
	"wallet-activity-stats/internal/application/aggregator"
	"wallet-activity-stats/internal/application/classifier"
	"wallet-activity-stats/internal/application/enrichment"
	appservice "wallet-activity-stats/internal/application/service"
	"wallet-activity-stats/internal/application/scoring"
	"wallet-activity-stats/internal/application/source"
	"wallet-activity-stats/internal/domain/service"
	"wallet-activity-stats/internal/infrastructure/blockchain"
	"wallet-activity-stats/internal/infrastructure/config"
	"wallet-activity-stats/internal/infrastructure/database"
	"wallet-activity-stats/internal/infrastructure/explorer"
	"wallet-activity-stats/internal/infrastructure/logger"
	"wallet-activity-stats/internal/infrastructure/messaging"
	"wallet-activity-stats/pkg/retry"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// provideHTTPConfig extracts HTTP configuration from main config
func provideHTTPConfig(cfg *config.Config) *config.HTTPConfig {
	return &cfg.HTTP
}

// provideRPCConfig extracts RPC configuration from main config
func provideRPCConfig(cfg *config.Config) *config.RPCConfig {
	return &cfg.RPC
}

// provideNATSConfig extracts NATS configuration from main config
func provideNATSConfig(cfg *config.Config) *config.NATSConfig {
	return &cfg.NATS
}

// provideCacheConfig extracts in-memory cache configuration from main config
func provideCacheConfig(cfg *config.Config) *config.CacheConfig {
	return &cfg.Cache
}

// provideMongoDB connects to MongoDB when the persistent enrichment cache is enabled
func provideMongoDB(cfg *config.Config) (*database.MongoDB, error) {
	if !cfg.MongoDB.Enabled {
		return nil, nil
	}
	return database.NewMongoDB(&cfg.MongoDB)
}

// provideExplorerClient builds the explorer client shared by the aggregated path
func provideExplorerClient(cfg *config.Config, log *logger.Logger) *explorer.Client {
	return explorer.NewClient(&cfg.Explorer, log)
}

// provideSource builds the dual-provider source adapter
func provideSource(client *explorer.Client, cfg *config.Config, log *logger.Logger) service.TransactionSource {
	return source.NewAdapter(client, client, &cfg.Explorer, log)
}

// provideEnrichment layers the enrichment provider over the explorer, Mongo and RPC
func provideEnrichment(client *explorer.Client, caches *enrichment.Caches, rpc service.ReceiptService, db *database.MongoDB, cfg *config.Config, log *logger.Logger) service.EnrichmentProvider {
	opts := []enrichment.Option{}
	if cfg.RPC.Enabled {
		opts = append(opts, enrichment.WithRPC(rpc))
	}
	if db != nil {
		opts = append(opts, enrichment.WithStore(secondary.NewEnrichmentCacheRepository(db)))
	}
	return enrichment.NewProvider(client, client, caches, log, opts...)
}

// provideClassifier builds the classifier from configured rule tables
func provideClassifier(enrichmentProvider service.EnrichmentProvider, cfg *config.Config, log *logger.Logger) service.TransactionClassifier {
	return classifier.NewClassifier(classifier.NewRuleSet(&cfg.Classifier), enrichmentProvider, log)
}

// provideAggregator builds the stats computer used by both the API and scoring
func provideAggregator(src service.TransactionSource, cls service.TransactionClassifier, cfg *config.Config, log *logger.Logger) service.StatsComputer {
	return aggregator.NewAggregator(src, cls, &cfg.Aggregator, log)
}

// provideScorer builds the cohort scorer
func provideScorer(stats service.StatsComputer, cfg *config.Config, log *logger.Logger) *scoring.Scorer {
	return scoring.NewScorer(stats, &cfg.Scoring, log)
}

// provideDirectScan builds the direct scan path on its own, more patient, explorer client
func provideDirectScan(client *explorer.Client, cls service.TransactionClassifier, cfg *config.Config, log *logger.Logger) *appservice.DirectScanService {
	policy := retry.DefaultPolicy()
	policy.MaxAttempts = cfg.Direct.RetryAttempts
	policy.BaseDelay = cfg.Direct.RetryBaseDelay
	direct := client.WithRetry(policy, cfg.Direct.RequestTimeout)

	fetcher := source.NewTwoPassFetcher(direct, &cfg.Direct, log)
	return appservice.NewDirectScanService(fetcher, cls, &cfg.Direct, log)
}

// provideServer builds the HTTP API
func provideServer(stats *appservice.StatsService, scorer *scoring.Scorer, direct *appservice.DirectScanService, cfg *config.HTTPConfig, log *logger.Logger) *httpapi.Server {
	return httpapi.NewServer(stats, scorer, direct, cfg, log)
}

func main() {
	app := fx.New(
		// Configuration
		fx.Provide(config.LoadConfig),
		fx.Provide(provideHTTPConfig),
		fx.Provide(provideRPCConfig),
		fx.Provide(provideNATSConfig),
		fx.Provide(provideCacheConfig),

		// Infrastructure
		fx.Provide(logger.NewLogger),
		fx.Provide(provideMongoDB),
		fx.Provide(provideExplorerClient),
		fx.Provide(enrichment.NewCaches),

		// Blockchain service
		fx.Provide(
			fx.Annotate(
				blockchain.NewEthereumService,
				fx.As(new(service.ReceiptService)),
			),
		),

		// Messaging
		fx.Provide(
			fx.Annotate(
				messaging.NewNATSClient,
				fx.As(new(service.StatsPublisher)),
			),
		),

		// Pipeline
		fx.Provide(provideSource),
		fx.Provide(provideEnrichment),
		fx.Provide(provideClassifier),
		fx.Provide(provideAggregator),
		fx.Provide(provideScorer),

		// Application services
		fx.Provide(appservice.NewStatsService),
		fx.Provide(provideDirectScan),
		fx.Provide(provideServer),

		// Lifecycle hooks
		fx.Invoke(registerHooks),
	)

	app.Run()
}

// registerHooks registers application lifecycle hooks
func registerHooks(
	lc fx.Lifecycle,
	cfg *config.Config,
	logger *logger.Logger,
	db *database.MongoDB,
	rpc service.ReceiptService,
	publisher service.StatsPublisher,
	server *httpapi.Server,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting wallet activity stats API",
				zap.String("version", "1.0.0"),
				zap.String("env", cfg.App.Env),
				zap.String("explorer", cfg.Explorer.BaseURL))

			// Create database indexes
			if db != nil {
				if err := db.CreateIndexes(ctx); err != nil {
					logger.Error("Failed to create database indexes", zap.Error(err))
					return err
				}
			}

			// RPC and NATS are optional; the API degrades without them
			if cfg.RPC.Enabled {
				if err := rpc.Connect(ctx); err != nil {
					logger.Warn("RPC fallback unavailable", zap.Error(err))
				}
			}
			if cfg.NATS.Enabled {
				if err := publisher.Connect(ctx); err != nil {
					logger.Warn("Stats events disabled, NATS connect failed", zap.Error(err))
				}
			}

			if err := server.Start(ctx); err != nil {
				logger.Error("Failed to start HTTP server", zap.Error(err))
				return err
			}

			logger.Info("Wallet activity stats API started successfully",
				zap.Int("port", cfg.HTTP.Port))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping wallet activity stats API")

			if err := server.Stop(ctx); err != nil {
				logger.Error("Error stopping HTTP server", zap.Error(err))
			}

			if rpc.IsConnected() {
				if err := rpc.Disconnect(); err != nil {
					logger.Error("Error disconnecting RPC client", zap.Error(err))
				}
			}

			if publisher.IsConnected() {
				if err := publisher.Disconnect(); err != nil {
					logger.Error("Error disconnecting NATS", zap.Error(err))
				}
			}

			// Close database connection
			if db != nil {
				if err := db.Close(ctx); err != nil {
					logger.Error("Error closing database connection", zap.Error(err))
				}
			}

			// Ignore errors on sync as this is expected on some systems
			_ = logger.Sync()

			logger.Info("Wallet activity stats API stopped")
			return nil
		},
	})
}
