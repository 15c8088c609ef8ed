package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/heartbeat/internal/domain"
	"github.com/hamed0406/heartbeat/internal/metrics"
	"github.com/hamed0406/heartbeat/internal/notify"
	"github.com/hamed0406/heartbeat/internal/repo"
)

// stateWriteTimeout bounds the alert-state write that follows a delivered
// message. It runs detached from the cycle deadline.
const stateWriteTimeout = 5 * time.Second

// Notifier delivers one formatted message, retrying internally.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string) error
}

// Checker runs check cycles: it alerts on overdue monitors, repeats the alert
// hourly while they stay overdue and announces recovery once pings resume.
type Checker struct {
	store    repo.CheckStore
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewChecker(store repo.CheckStore, notifier Notifier, log *zap.Logger) *Checker {
	return &Checker{store: store, notifier: notifier, log: log, now: time.Now}
}

// WithClock replaces the wall clock; used by tests.
func (c *Checker) WithClock(now func() time.Time) *Checker {
	c.now = now
	return c
}

type cycleStats struct {
	overdue, paused, first, repeat, recovered, failed int
}

func (s cycleStats) fields() []zap.Field {
	return []zap.Field{
		zap.Int("overdue", s.overdue),
		zap.Int("paused", s.paused),
		zap.Int("first_alerts", s.first),
		zap.Int("repeat_alerts", s.repeat),
		zap.Int("recovered", s.recovered),
		zap.Int("send_failures", s.failed),
	}
}

// RunCycle performs one reconciliation pass. Storage errors abort the cycle;
// delivery failures are logged and leave the stored alert state untouched so
// the next cycle tries again.
func (c *Checker) RunCycle(ctx context.Context) (err error) {
	start := time.Now()
	now := c.now().Unix()
	var stats cycleStats

	defer func() {
		metrics.CycleDuration.Observe(time.Since(start).Seconds())
		result := "ok"
		switch {
		case err == nil:
		case ctx.Err() != nil:
			result = "timeout"
		default:
			result = "error"
		}
		metrics.CyclesTotal.WithLabelValues(result).Inc()
		metrics.OverdueMonitors.Set(float64(stats.overdue))
	}()

	c.log.Debug("check_cycle_start", zap.Int64("now", now))

	overdue, err := c.store.QueryOverdue(ctx, now)
	if err != nil {
		return fmt.Errorf("query overdue: %w", err)
	}
	alerted, err := c.store.QueryAlerted(ctx)
	if err != nil {
		return fmt.Errorf("query alerted: %w", err)
	}

	overdueSet := make(map[string]struct{}, len(overdue))
	for i := range overdue {
		if err := ctx.Err(); err != nil {
			return c.interrupted(err, stats)
		}
		m := &overdue[i]
		if m.IsPaused() {
			stats.paused++
			continue
		}
		overdueSet[m.Slug] = struct{}{}
		stats.overdue++

		var (
			kind  string
			text  string
			count uint32
		)
		switch {
		case !m.Alerted():
			kind, count = "first", 1
			text = notify.FormatOverdue(m.Slug, m.IntervalSecs, m.LastPing, now)
		case now-*m.LastAlertedAt >= domain.RepeatAlertSecs:
			kind, count = "repeat", m.AlertCountOrZero()+1
			text = notify.FormatRepeat(m.Slug, uint64(max(now-m.NextDue, 0)))
		default:
			continue
		}

		if err := c.notifier.SendWithRetry(ctx, text); err != nil {
			stats.failed++
			metrics.AlertsFailedTotal.WithLabelValues(kind).Inc()
			c.log.Warn("alert_send_failed",
				zap.String("slug", m.Slug), zap.String("kind", kind), zap.Error(err))
			continue
		}
		metrics.AlertsSentTotal.WithLabelValues(kind).Inc()

		wctx, cancel := stateCtx(ctx)
		err := c.store.UpdateAlertState(wctx, m.Slug, now, count)
		cancel()
		if err != nil {
			return fmt.Errorf("update alert state %s: %w", m.Slug, err)
		}
		if kind == "first" {
			stats.first++
			c.log.Info("alert_first_sent", zap.String("slug", m.Slug), zap.Int64("next_due", m.NextDue))
		} else {
			stats.repeat++
			c.log.Info("alert_repeat_sent", zap.String("slug", m.Slug), zap.Uint32("alert_count", count))
		}
	}

	for i := range alerted {
		if err := ctx.Err(); err != nil {
			return c.interrupted(err, stats)
		}
		m := &alerted[i]
		if _, still := overdueSet[m.Slug]; still || m.IsPaused() {
			continue
		}

		downtime := uint64(max(now-*m.LastAlertedAt, 0))
		if err := c.notifier.SendWithRetry(ctx, notify.FormatRecovery(m.Slug, downtime)); err != nil {
			stats.failed++
			metrics.AlertsFailedTotal.WithLabelValues("recovery").Inc()
			c.log.Warn("alert_send_failed",
				zap.String("slug", m.Slug), zap.String("kind", "recovery"), zap.Error(err))
			continue
		}
		metrics.AlertsSentTotal.WithLabelValues("recovery").Inc()

		wctx, cancel := stateCtx(ctx)
		err := c.store.ClearAlertState(wctx, m.Slug)
		cancel()
		if err != nil {
			return fmt.Errorf("clear alert state %s: %w", m.Slug, err)
		}
		stats.recovered++
		c.log.Info("monitor_recovered", zap.String("slug", m.Slug), zap.Uint64("downtime_secs", downtime))
	}

	c.log.Info("check_cycle_done", append(stats.fields(), zap.Duration("took", time.Since(start)))...)
	return nil
}

// stateCtx keeps a message that already went out from being re-sent because
// the cycle deadline expired before its state was recorded.
func stateCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), stateWriteTimeout)
}

func (c *Checker) interrupted(err error, stats cycleStats) error {
	c.log.Warn("check_cycle_interrupted", append(stats.fields(), zap.Error(err))...)
	return err
}
