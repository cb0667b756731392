package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "sportsbook",
	Short: "Sportsbook bet construction and settlement engine",
	Long: `Sportsbook engine that accepts single and multi-leg wagers, expands
combinatorial products (round robins, teasers, if-bets, action reverses),
and settles tickets against final game results.

The service exposes an HTTP API for placement and account queries, consumes
game-finished events from a queue, and grades every open bet touching a
finished game against the results feed.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
