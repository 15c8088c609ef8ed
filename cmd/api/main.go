package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/heartbeat/internal/app"
	"github.com/hamed0406/heartbeat/internal/config"
	"github.com/hamed0406/heartbeat/internal/httpapi"
	apimw "github.com/hamed0406/heartbeat/internal/httpapi/middleware"
	"github.com/hamed0406/heartbeat/internal/logging"
	"github.com/hamed0406/heartbeat/internal/scheduler"
)

var (
	configFile string
	addr       string
)

var rootCmd = &cobra.Command{
	Use:          "heartbeat-api",
	Short:        "Heartbeat API - receives pings and runs the check cycle",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", os.Getenv("HEARTBEAT_CONFIG"), "config file path (optional)")
	rootCmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides API_ADDR)")
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
	if addr != "" {
		cfg.Addr = addr
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

	api := httpapi.NewServer(logger, store, store)
	api.TrustProxy = cfg.TrustProxyHeaders
	keys := apimw.Keys{Ingest: cfg.IngestAPIKeys, Admin: cfg.AdminAPIKeys}
	if len(keys.Ingest) == 0 && len(keys.Admin) == 0 {
		logger.Warn("auth_disabled", zap.String("note", "no API keys configured; every route is open"))
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(keys, cfg.AllowedOrigins, cfg.PublicRPM, cfg.PublicBurst, cfg.AdminRPM, cfg.AdminBurst),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("api_listen", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logger.Info("api_shutdown")
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.TriggerEnabled() {
		checker := scheduler.NewChecker(store, app.NewSender(cfg, logger), logger)
		trigger, err := scheduler.NewTrigger(checker, store, scheduler.TriggerConfig{
			Schedule:     cfg.CheckSchedule,
			CycleTimeout: cfg.CycleTimeout(),
		}, logger)
		if err != nil {
			stop()
			return multierr.Append(err, g.Wait())
		}
		g.Go(func() error { return trigger.Run(gctx) })
	} else {
		logger.Info("check_trigger_disabled")
	}

	return g.Wait()
}
