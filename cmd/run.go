package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/nssports/sportsbook-engine/internal/app"
	"github.com/nssports/sportsbook-engine/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the sportsbook engine",
	Long: `Starts the sportsbook engine, which will:
1. Serve the bet placement and account API over HTTP
2. Consume game-finished events from the configured queue
3. Grade and settle every open bet touching a finished game
4. Apply payouts, refunds, and losses to user ledgers`,
	RunE: runEngine,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
}

func runEngine(cmd *cobra.Command, args []string) error {
	// Load .env if present
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

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
