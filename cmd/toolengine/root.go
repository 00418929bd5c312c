package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/opsconductor/toolengine/internal/config"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "toolengine",
	Short: "Tool selection and execution engine",
	Long: `toolengine serves a versioned tool catalog, ranks candidate tools
for free-text planner intents, executes tools under timeout and redaction
constraints, and records an asynchronous audit trail.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with SIGINT/SIGTERM cancellation.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"path to the configuration file (defaults apply when omitted)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves configuration for a command invocation. A missing
// file falls back to validated defaults.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoader(config.NewValidator())
	if configFile == "" {
		return loader.LoadWithDefaults("")
	}
	return loader.Load(configFile)
}
