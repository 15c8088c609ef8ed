package httpapi

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/heartbeat/internal/notify"
	"github.com/hamed0406/heartbeat/internal/scheduler"
)

type recordingSink struct{ texts []string }

func (s *recordingSink) SendMessage(ctx context.Context, chatID, text, parseMode string) (*notify.Response, error) {
	s.texts = append(s.texts, text)
	return &notify.Response{OK: true}, nil
}

// Ping, miss the window, get alerted, ping again, get the recovery.
func TestHeartbeatLifecycle(t *testing.T) {
	f := setup(t)
	sink := &recordingSink{}
	sender := notify.NewSender(sink, "chat", zap.NewNop())
	checker := scheduler.NewChecker(f.store, sender, zap.NewNop()).
		WithClock(func() time.Time { return time.Unix(f.now, 0) })
	ctx := context.Background()

	if resp, _ := f.do(t, http.MethodGet, "/heartbeat/backup?interval=5m", "ing_test"); resp.StatusCode != http.StatusOK {
		t.Fatalf("ping: %d", resp.StatusCode)
	}

	// still inside the window
	f.now += 200
	if err := checker.RunCycle(ctx); err != nil {
		t.Fatal(err)
	}
	if len(sink.texts) != 0 {
		t.Fatalf("alert before due: %q", sink.texts)
	}

	f.now += 400 // 600s after the ping, 300s late
	if err := checker.RunCycle(ctx); err != nil {
		t.Fatal(err)
	}
	if len(sink.texts) != 1 || !strings.Contains(sink.texts[0], "OVERDUE: `backup`") || !strings.Contains(sink.texts[0], "5m late") {
		t.Fatalf("overdue alert: %q", sink.texts)
	}
	if _, body := f.do(t, http.MethodGet, "/api/monitors/backup", "adm_test"); body["status"] != "overdue" || body["alert_count"] != float64(1) {
		t.Fatalf("monitor after alert: %v", body)
	}

	// a second cycle inside the hour stays quiet
	f.now += 60
	_ = checker.RunCycle(ctx)
	if len(sink.texts) != 1 {
		t.Fatalf("unexpected repeat: %q", sink.texts)
	}

	f.do(t, http.MethodGet, "/heartbeat/backup", "ing_test")
	if err := checker.RunCycle(ctx); err != nil {
		t.Fatal(err)
	}
	if len(sink.texts) != 2 || !strings.Contains(sink.texts[1], "RECOVERED: `backup` \\(was down 1m\\)") {
		t.Fatalf("recovery: %q", sink.texts)
	}
	_, body := f.do(t, http.MethodGet, "/api/monitors/backup", "adm_test")
	if body["status"] != "ok" || body["last_alerted_at"] != nil || body["alert_count"] != nil {
		t.Fatalf("monitor after recovery: %v", body)
	}
}
