package domain

import "time"

const (
	// CheckPartition is the constant partition value every monitor carries so the
	// overdue scan is a single range query over (check_partition, next_due).
	CheckPartition = "CHECK"

	DefaultIntervalSecs uint64 = 300

	// TTLSecs is how long a monitor survives without any ping.
	TTLSecs int64 = 90 * 24 * 60 * 60

	// RepeatAlertSecs is the minimum gap between alerts for a monitor that stays overdue.
	RepeatAlertSecs int64 = 3600
)

// Monitor is the persisted state of one watched job.
type Monitor struct {
	Slug           string  `json:"slug"`
	IntervalSecs   uint64  `json:"interval_secs"`
	LastPing       int64   `json:"last_ping"`
	NextDue        int64   `json:"next_due"`
	CheckPartition string  `json:"check_partition"`
	LastAlertedAt  *int64  `json:"last_alerted_at,omitempty"` // nil = no active alert
	AlertCount     *uint32 `json:"alert_count,omitempty"`
	CreatedAt      int64   `json:"created_at"`
	Paused         *bool   `json:"paused,omitempty"`
	ExpiresAt      int64   `json:"expires_at"`
}

// NewPing builds the monitor row written when a ping arrives at now (epoch seconds).
func NewPing(slug Slug, intervalSecs uint64, now int64) Monitor {
	return Monitor{
		Slug:           slug.String(),
		IntervalSecs:   intervalSecs,
		LastPing:       now,
		NextDue:        now + int64(intervalSecs),
		CheckPartition: CheckPartition,
		CreatedAt:      now,
		ExpiresAt:      now + TTLSecs,
	}
}

// NewFail is like NewPing but forces the monitor overdue immediately.
func NewFail(slug Slug, intervalSecs uint64, now int64) Monitor {
	m := NewPing(slug, intervalSecs, now)
	m.NextDue = 0
	return m
}

func (m *Monitor) IsPaused() bool { return m.Paused != nil && *m.Paused }

func (m *Monitor) Alerted() bool { return m.LastAlertedAt != nil }

func (m *Monitor) AlertCountOrZero() uint32 {
	if m.AlertCount == nil {
		return 0
	}
	return *m.AlertCount
}

func (m *Monitor) Status(now int64) Status { return DeriveStatus(m, now) }

// NextDueTime is NextDue as a UTC time.
func (m *Monitor) NextDueTime() time.Time { return time.Unix(m.NextDue, 0).UTC() }

type Status string

const (
	StatusOK      Status = "ok"
	StatusOverdue Status = "overdue"
	StatusPaused  Status = "paused"
)

// DeriveStatus applies the fixed precedence: paused, then overdue, then ok.
func DeriveStatus(m *Monitor, now int64) Status {
	switch {
	case m.IsPaused():
		return StatusPaused
	case m.NextDue < now:
		return StatusOverdue
	default:
		return StatusOK
	}
}
