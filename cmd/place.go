package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/nssports/sportsbook-engine/internal/odds"
	"github.com/nssports/sportsbook-engine/internal/placement"
	"github.com/nssports/sportsbook-engine/internal/rules"
	"github.com/nssports/sportsbook-engine/internal/settlement"
	"github.com/nssports/sportsbook-engine/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var placeFile string

//nolint:gochecknoglobals // Cobra boilerplate
var placeCmd = &cobra.Command{
	Use:   "place",
	Short: "Place a bet from a JSON request file",
	Long: `Places a single ticket directly against the configured store, bypassing
the HTTP API. Reads a placement request from the file given by --file and
prints the resulting receipt. Intended for operator use against postgres.`,
	RunE: runPlace,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(placeCmd)
	placeCmd.Flags().StringVarP(&placeFile, "file", "f", "", "Path to the placement request JSON (required)")
	_ = placeCmd.MarkFlagRequired("file")
}

func runPlace(cmd *cobra.Command, args []string) error {
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

	raw, err := os.ReadFile(placeFile)
	if err != nil {
		return fmt.Errorf("read request file: %w", err)
	}

	var req placement.Request
	err = json.Unmarshal(raw, &req)
	if err != nil {
		return fmt.Errorf("parse request file: %w", err)
	}

	store, err := newStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	teasers := odds.DefaultTeaserConfigs()
	svc := placement.NewService(store, rules.New(teasers), teasers, settlement.NewApplier(logger), logger)

	receipt, err := svc.Place(context.Background(), req)
	if err != nil {
		return fmt.Errorf("place bet: %w", err)
	}

	out, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}
	fmt.Println(string(out))

	return nil
}
