package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/hamed0406/heartbeat/internal/domain"
)

// ErrNotFound is returned by management operations on a slug that has no monitor.
var ErrNotFound = errors.New("monitor not found")

// StorageError wraps a transport or serialization failure from a store backend.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

// Wrap returns nil for a nil err, otherwise a *StorageError for op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// Ports (interfaces) — every backend implements all of them through Store.

// MonitorStore is what the heartbeat ingestion path uses.
type MonitorStore interface {
	// Upsert overwrites the mutable ping fields and keeps created_at if the row
	// exists. Alert fields and paused are left untouched.
	Upsert(ctx context.Context, m *domain.Monitor) error
	// Get returns nil, nil if there's no monitor for slug.
	Get(ctx context.Context, slug string) (*domain.Monitor, error)
}

// CheckStore is what the check cycle uses.
type CheckStore interface {
	// QueryOverdue returns every monitor in the check partition with next_due < now.
	// Paused monitors are included.
	QueryOverdue(ctx context.Context, now int64) ([]domain.Monitor, error)
	// QueryAlerted returns every monitor with last_alerted_at set.
	QueryAlerted(ctx context.Context) ([]domain.Monitor, error)
	UpdateAlertState(ctx context.Context, slug string, now int64, alertCount uint32) error
	ClearAlertState(ctx context.Context, slug string) error
}

// AdminStore is what the management API uses. Delete and SetPaused return
// ErrNotFound for unknown slugs.
type AdminStore interface {
	List(ctx context.Context) ([]domain.Monitor, error) // sorted by slug
	Delete(ctx context.Context, slug string) error
	SetPaused(ctx context.Context, slug string, paused bool) error
}

// Expirer removes monitors whose expires_at has passed.
type Expirer interface {
	DeleteExpired(ctx context.Context, now int64) (int64, error)
}

type Store interface {
	MonitorStore
	CheckStore
	AdminStore
	Expirer
}
