package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const ParseModeMarkdownV2 = "MarkdownV2"

// DefaultDelays are the waits before each delivery attempt.
var DefaultDelays = []time.Duration{0, 500 * time.Millisecond, 2 * time.Second, 5 * time.Second}

// Response is what the sink reports for one message.
type Response struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// Sink delivers a single message. Implementations do not retry.
type Sink interface {
	SendMessage(ctx context.Context, chatID, text, parseMode string) (*Response, error)
}

// APIError means the sink answered but rejected the message.
type APIError struct {
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return "sink rejected message"
	}
	return "sink rejected message: " + e.Description
}

// DeliveryError is returned once every attempt has failed.
type DeliveryError struct {
	Attempts int
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

type Sender struct {
	Sink   Sink
	ChatID string
	Delays []time.Duration
	// Sleep waits for d or until ctx is done; nil means a real timer.
	Sleep  func(ctx context.Context, d time.Duration) error
	Logger *zap.Logger
}

func NewSender(sink Sink, chatID string, log *zap.Logger) *Sender {
	return &Sender{Sink: sink, ChatID: chatID, Delays: DefaultDelays, Logger: log}
}

// SendWithRetry tries each delay in turn and returns on the first accepted message.
func (s *Sender) SendWithRetry(ctx context.Context, text string) error {
	delays := s.Delays
	if len(delays) == 0 {
		delays = DefaultDelays
	}
	sleep := s.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var lastErr error
	attempts := 0
	for i, d := range delays {
		if d > 0 {
			if err := sleep(ctx, d); err != nil {
				break
			}
		}
		attempts++
		lastErr = s.attempt(ctx, text)
		if lastErr == nil {
			return nil
		}
		log.Warn("notify_attempt_failed",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", len(delays)),
			zap.Error(lastErr))
	}
	if lastErr == nil {
		lastErr = ctx.Err()
	}
	return &DeliveryError{Attempts: attempts, Err: lastErr}
}

func (s *Sender) attempt(ctx context.Context, text string) error {
	resp, err := s.Sink.SendMessage(ctx, s.ChatID, text, ParseModeMarkdownV2)
	if err != nil {
		return err
	}
	if resp == nil || !resp.OK {
		desc := ""
		if resp != nil {
			desc = resp.Description
		}
		return &APIError{Description: desc}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsRejected reports whether err came from the sink refusing the message
// rather than from the transport.
func IsRejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
