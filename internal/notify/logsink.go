package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes messages to the log instead of delivering them. Used when
// no Telegram credentials are configured.
type LogSink struct {
	Logger *zap.Logger
}

func (s LogSink) SendMessage(ctx context.Context, chatID, text, parseMode string) (*Response, error) {
	s.Logger.Info("notification_logged", zap.String("text", text))
	return &Response{OK: true}, nil
}
