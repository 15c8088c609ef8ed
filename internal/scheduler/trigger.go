package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/heartbeat/internal/metrics"
	"github.com/hamed0406/heartbeat/internal/repo"
)

// Cycler is anything that can run one check cycle.
type Cycler interface {
	RunCycle(ctx context.Context) error
}

type TriggerConfig struct {
	Schedule     string        // cron spec, e.g. "@every 1m" or "*/5 * * * *"
	CycleTimeout time.Duration // wall-clock budget for one cycle
}

// Trigger fires check cycles on a cron schedule. Overlapping ticks are skipped,
// and after each cycle monitors past their retention window are removed.
type Trigger struct {
	cron    *cron.Cron
	cycler  Cycler
	expirer repo.Expirer
	cfg     TriggerConfig
	log     *zap.Logger
	now     func() time.Time
	baseCtx context.Context
}

func NewTrigger(cycler Cycler, expirer repo.Expirer, cfg TriggerConfig, log *zap.Logger) (*Trigger, error) {
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = 50 * time.Second
	}
	cl := cronLogger{log.Sugar()}
	t := &Trigger{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		cycler:  cycler,
		expirer: expirer,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
		baseCtx: context.Background(),
	}
	if _, err := t.cron.AddFunc(cfg.Schedule, t.tick); err != nil {
		return nil, fmt.Errorf("check schedule %q: %w", cfg.Schedule, err)
	}
	return t, nil
}

// Run starts the schedule and blocks until ctx is done, then waits for a
// running cycle to finish.
func (t *Trigger) Run(ctx context.Context) error {
	t.baseCtx = ctx
	t.cron.Start()
	t.log.Info("check_trigger_started", zap.String("schedule", t.cfg.Schedule),
		zap.Duration("cycle_timeout", t.cfg.CycleTimeout))

	<-ctx.Done()

	stopped := t.cron.Stop()
	<-stopped.Done()
	t.log.Info("check_trigger_stopped")
	return nil
}

func (t *Trigger) tick() {
	if err := t.RunOnce(t.baseCtx); err != nil {
		t.log.Error("check_cycle_failed", zap.Error(err))
	}
}

// RunOnce runs one cycle under the cycle timeout followed by retention cleanup.
func (t *Trigger) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.CycleTimeout)
	defer cancel()

	cycleErr := t.cycler.RunCycle(ctx)
	if ctx.Err() != nil {
		return cycleErr
	}

	var expireErr error
	if t.expirer != nil {
		n, err := t.expirer.DeleteExpired(ctx, t.now().Unix())
		if err != nil {
			expireErr = fmt.Errorf("delete expired: %w", err)
		} else if n > 0 {
			metrics.ExpiredMonitorsTotal.Add(float64(n))
		}
	}
	return multierr.Combine(cycleErr, expireErr)
}

// cronLogger routes cron's internal logging into zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("cron_"+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("cron_"+msg, append(keysAndValues, "error", err)...)
}
