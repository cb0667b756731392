package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/nssports/sportsbook-engine/internal/grading"
	"github.com/nssports/sportsbook-engine/internal/odds"
	"github.com/nssports/sportsbook-engine/internal/placement"
	"github.com/nssports/sportsbook-engine/internal/queue"
	"github.com/nssports/sportsbook-engine/internal/results"
	"github.com/nssports/sportsbook-engine/internal/rules"
	"github.com/nssports/sportsbook-engine/internal/settlement"
	"github.com/nssports/sportsbook-engine/internal/storage"
	"github.com/nssports/sportsbook-engine/pkg/cache"
	"github.com/nssports/sportsbook-engine/pkg/config"
	"github.com/nssports/sportsbook-engine/pkg/healthprobe"
	"github.com/nssports/sportsbook-engine/pkg/httpserver"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	store, err := setupStorage(ctx, cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	provider, err := setupResultsProvider(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup results provider: %w", err)
	}

	source := setupEventSource(cfg, logger)

	teasers := odds.DefaultTeaserConfigs()
	applier := settlement.NewApplier(logger)

	orchestrator := settlement.New(settlement.Config{
		Workers:        cfg.SettlementWorkers,
		MaxAttempts:    cfg.SettlementMaxAttempts,
		RetryBaseDelay: cfg.SettlementRetryBaseDelay,
		JobTimeout:     cfg.SettlementJobTimeout,
	}, store, provider, grading.New(teasers), applier, logger)

	placementService := placement.NewService(store, rules.New(teasers), teasers, applier, logger)

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Placement:     placementService,
		Store:         store,
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		store:         store,
		source:        source,
		orchestrator:  orchestrator,
		placement:     placementService,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Store, error) {
	if cfg.StorageMode == "postgres" {
		pg, err := storage.NewPostgres(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres store: %w", err)
		}
		err = pg.Migrate(ctx)
		if err != nil {
			return nil, fmt.Errorf("migrate schema: %w", err)
		}
		return pg, nil
	}

	return storage.NewMemory(logger), nil
}

func setupResultsProvider(cfg *config.Config, logger *zap.Logger) (results.Provider, error) {
	resultCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 100000, // 10x expected max items (10k cached results)
		MaxCost:     10000,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create result cache: %w", err)
	}

	return results.NewCachedProvider(results.NewHTTPProvider(cfg.ResultsFeedURL), resultCache), nil
}

func setupEventSource(cfg *config.Config, logger *zap.Logger) queue.EventSource {
	if cfg.QueueMode == "kafka" {
		return queue.NewKafkaSource(queue.KafkaConfig{
			Brokers: strings.Split(cfg.KafkaBrokers, ","),
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
			Buffer:  64,
		}, logger)
	}

	return queue.NewChannelSource(64)
}
