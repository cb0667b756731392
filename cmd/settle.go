package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/nssports/sportsbook-engine/internal/grading"
	"github.com/nssports/sportsbook-engine/internal/odds"
	"github.com/nssports/sportsbook-engine/internal/results"
	"github.com/nssports/sportsbook-engine/internal/settlement"
	"github.com/nssports/sportsbook-engine/internal/storage"
	"github.com/nssports/sportsbook-engine/pkg/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra boilerplate
var settleCmd = &cobra.Command{
	Use:   "settle [gameID...]",
	Short: "Settle all open bets touching the given games",
	Long: `One-shot settlement pass for operators. Fetches final results for the
given games from the results feed and settles every open bet touching them,
without consuming from the queue. Useful for replaying a missed event or
clearing bets parked for review after the upstream data was corrected.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSettle,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(settleCmd)
}

func runSettle(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := newStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	teasers := odds.DefaultTeaserConfigs()
	orchestrator := settlement.New(settlement.Config{
		Workers:        cfg.SettlementWorkers,
		MaxAttempts:    cfg.SettlementMaxAttempts,
		RetryBaseDelay: cfg.SettlementRetryBaseDelay,
		JobTimeout:     cfg.SettlementJobTimeout,
	}, store, results.NewHTTPProvider(cfg.ResultsFeedURL), grading.New(teasers), settlement.NewApplier(logger), logger)

	ctx := context.Background()
	for _, gameID := range args {
		err = orchestrator.HandleGameFinished(ctx, gameID)
		if err != nil {
			return fmt.Errorf("settle game %s: %w", gameID, err)
		}
		logger.Info("game-settled", zap.String("game-id", gameID))
	}

	return nil
}

// newStore opens the store named by STORAGE_MODE. The memory store is only
// useful for the long-running service, but it keeps local smoke tests cheap.
func newStore(cfg *config.Config, logger *zap.Logger) (storage.Store, error) {
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
		return pg, nil
	}
	return storage.NewMemory(logger), nil
}
