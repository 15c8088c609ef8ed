// Package app builds the long-lived dependencies shared by the binaries.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hamed0406/heartbeat/internal/config"
	"github.com/hamed0406/heartbeat/internal/notify"
	"github.com/hamed0406/heartbeat/internal/repo"
	"github.com/hamed0406/heartbeat/internal/repo/memory"
	"github.com/hamed0406/heartbeat/internal/repo/postgres"
	"github.com/hamed0406/heartbeat/internal/repo/sqlite"
)

// OpenStore connects to the backend named by cfg.DatabaseURL and applies the
// schema. The returned close func is always non-nil.
func OpenStore(ctx context.Context, cfg config.Config, log *zap.Logger) (repo.Store, func(), error) {
	backend, dsn, err := config.SplitDatabaseURL(cfg.DatabaseURL)
	if err != nil {
		return nil, func() {}, err
	}

	switch backend {
	case config.BackendPostgres:
		pg, err := postgres.New(ctx, dsn, log)
		if err != nil {
			return nil, func() {}, fmt.Errorf("postgres: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, func() {}, fmt.Errorf("postgres migrate: %w", err)
		}
		log.Info("store_ready", zap.String("backend", backend))
		return pg, pg.Close, nil

	case config.BackendSQLite:
		lite, err := sqlite.Open(ctx, dsn, log)
		if err != nil {
			return nil, func() {}, err
		}
		if err := lite.Migrate(ctx); err != nil {
			_ = lite.Close()
			return nil, func() {}, fmt.Errorf("sqlite migrate: %w", err)
		}
		log.Info("store_ready", zap.String("backend", backend), zap.String("path", dsn))
		return lite, func() { _ = lite.Close() }, nil

	default:
		log.Warn("store_ready", zap.String("backend", backend),
			zap.String("note", "in-memory store; monitors are lost on restart"))
		return memory.New(), func() {}, nil
	}
}

// NewSender builds the retrying sender for the configured sink. Without
// Telegram credentials notifications are only logged.
func NewSender(cfg config.Config, log *zap.Logger) *notify.Sender {
	if cfg.Telegram.BotToken == "" {
		log.Warn("telegram_disabled", zap.String("note", "notifications are written to the log only"))
		return notify.NewSender(notify.LogSink{Logger: log}, "", log)
	}
	tg := notify.NewTelegram(cfg.Telegram.APIBase, cfg.Telegram.BotToken)
	return notify.NewSender(tg, cfg.Telegram.ChatID, log)
}
