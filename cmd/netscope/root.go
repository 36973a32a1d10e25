package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"netscope/internal/logging"
)

var logger *zap.Logger

var rootCmd = &cobra.Command{
	Use:   "netscope",
	Short: "Host network traffic monitor",
	Long: `netscope captures this host's network traffic, maps packets to the
applications that produced them, resolves destinations and records
everything to a local SQLite database. A running monitor exposes a
REST API that the other subcommands query.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(logging.FromEnv())
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logging.Sync(logger)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
