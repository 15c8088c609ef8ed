// Command checker runs exactly one check cycle and exits, for use from an
// external scheduler (systemd timer, Kubernetes CronJob, cron).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/heartbeat/internal/app"
	"github.com/hamed0406/heartbeat/internal/config"
	"github.com/hamed0406/heartbeat/internal/logging"
	"github.com/hamed0406/heartbeat/internal/scheduler"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:          "heartbeat-checker",
	Short:        "Run one heartbeat check cycle",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", os.Getenv("HEARTBEAT_CONFIG"), "config file path (optional)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("store_open_failed", zap.Error(err))
		return err
	}
	defer closeStore()

	checker := scheduler.NewChecker(store, app.NewSender(cfg, logger), logger)
	trigger, err := scheduler.NewTrigger(checker, store, scheduler.TriggerConfig{
		Schedule:     "@every 1m", // unused; RunOnce ignores the schedule
		CycleTimeout: cfg.CycleTimeout(),
	}, logger)
	if err != nil {
		return err
	}
	if err := trigger.RunOnce(ctx); err != nil {
		logger.Error("check_cycle_failed", zap.Error(err))
		return err
	}
	return nil
}
