package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shift_handover/internal/config"
	"shift_handover/internal/logging"
	"shift_handover/internal/store"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "handover",
	Short: "Shift handover log for network operations controllers",
	Long: "handover keeps the shared fault log, planned works and notes of an operations shift\n" +
		"and composes the end-of-shift summary sent to the next shift.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "handover.yaml", "path to the YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(summaryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

// openStore connects to the shared store, or falls back to a process-local
// one when no database is configured.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (store.Store, error) {
	if !cfg.SyncEnabled() {
		log.Warn("DATABASE_URL not set, records are kept in memory and not shared")
		return store.NewMemory(), nil
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	st, err := store.OpenPostgres(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return st, nil
}
