// Package sqlite is a single-file repo.Store for small deployments that do
// not want to run Postgres.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/hamed0406/heartbeat/internal/domain"
	"github.com/hamed0406/heartbeat/internal/repo"
)

var _ repo.Store = (*Store)(nil)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS monitors (
  slug            TEXT PRIMARY KEY,
  interval_secs   INTEGER NOT NULL,
  last_ping       INTEGER NOT NULL,
  next_due        INTEGER NOT NULL,
  check_partition TEXT    NOT NULL,
  last_alerted_at INTEGER NULL,
  alert_count     INTEGER NULL,
  created_at      INTEGER NOT NULL,
  paused          INTEGER NULL,
  expires_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_monitors_due     ON monitors (check_partition, next_due);
CREATE INDEX IF NOT EXISTS idx_monitors_alerted ON monitors (slug) WHERE last_alerted_at IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_monitors_expires ON monitors (expires_at);
`

const columns = `slug, interval_secs, last_ping, next_due, check_partition,
       last_alerted_at, alert_count, created_at, paused, expires_at`

type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens (creating if needed) the database file at path.
func Open(ctx context.Context, path string, log *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer at a time; sqlite serialises writes anyway
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Upsert(ctx context.Context, m *domain.Monitor) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO monitors
		  (slug, interval_secs, last_ping, next_due, check_partition, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
		  interval_secs   = excluded.interval_secs,
		  last_ping       = excluded.last_ping,
		  next_due        = excluded.next_due,
		  check_partition = excluded.check_partition,
		  expires_at      = excluded.expires_at`,
		m.Slug, int64(m.IntervalSecs), m.LastPing, m.NextDue, m.CheckPartition, m.CreatedAt, m.ExpiresAt,
	)
	return repo.Wrap("upsert", err)
}

func (s *Store) Get(ctx context.Context, slug string) (*domain.Monitor, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM monitors WHERE slug = ?`, slug)
	m, err := scanMonitor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, repo.Wrap("get", err)
	}
	return m, nil
}

func (s *Store) QueryOverdue(ctx context.Context, now int64) ([]domain.Monitor, error) {
	return s.query(ctx, "query overdue",
		`SELECT `+columns+` FROM monitors
		  WHERE check_partition = ? AND next_due < ?
		  ORDER BY next_due`, domain.CheckPartition, now)
}

func (s *Store) QueryAlerted(ctx context.Context) ([]domain.Monitor, error) {
	return s.query(ctx, "query alerted",
		`SELECT `+columns+` FROM monitors WHERE last_alerted_at IS NOT NULL ORDER BY slug`)
}

func (s *Store) UpdateAlertState(ctx context.Context, slug string, now int64, alertCount uint32) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE monitors SET last_alerted_at = ?, alert_count = ? WHERE slug = ?`,
		now, int64(alertCount), slug)
	return repo.Wrap("update alert state", err)
}

func (s *Store) ClearAlertState(ctx context.Context, slug string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE monitors SET last_alerted_at = NULL, alert_count = NULL WHERE slug = ?`, slug)
	return repo.Wrap("clear alert state", err)
}

func (s *Store) List(ctx context.Context) ([]domain.Monitor, error) {
	return s.query(ctx, "list", `SELECT `+columns+` FROM monitors ORDER BY slug`)
}

func (s *Store) Delete(ctx context.Context, slug string) error {
	return s.execOne(ctx, "delete", `DELETE FROM monitors WHERE slug = ?`, slug)
}

func (s *Store) SetPaused(ctx context.Context, slug string, paused bool) error {
	return s.execOne(ctx, "set paused", `UPDATE monitors SET paused = ? WHERE slug = ?`, paused, slug)
}

func (s *Store) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM monitors WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, repo.Wrap("delete expired", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, repo.Wrap("delete expired", err)
	}
	if n > 0 {
		s.log.Info("monitors_expired", zap.Int64("count", n))
	}
	return n, nil
}

// execOne runs a statement that must touch exactly one existing row.
func (s *Store) execOne(ctx context.Context, op, q string, args ...any) error {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return repo.Wrap(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return repo.Wrap(op, err)
	}
	if n == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) query(ctx context.Context, op, q string, args ...any) ([]domain.Monitor, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, repo.Wrap(op, err)
	}
	defer rows.Close()

	var out []domain.Monitor
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, repo.Wrap(op, err)
		}
		out = append(out, *m)
	}
	return out, repo.Wrap(op, rows.Err())
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMonitor(row scanner) (*domain.Monitor, error) {
	var (
		m          domain.Monitor
		interval   int64
		alertedAt  sql.NullInt64
		alertCount sql.NullInt64
		paused     sql.NullBool
	)
	if err := row.Scan(&m.Slug, &interval, &m.LastPing, &m.NextDue, &m.CheckPartition,
		&alertedAt, &alertCount, &m.CreatedAt, &paused, &m.ExpiresAt); err != nil {
		return nil, err
	}
	m.IntervalSecs = uint64(interval)
	if alertedAt.Valid {
		v := alertedAt.Int64
		m.LastAlertedAt = &v
	}
	if alertCount.Valid {
		v := uint32(alertCount.Int64)
		m.AlertCount = &v
	}
	if paused.Valid {
		v := paused.Bool
		m.Paused = &v
	}
	return &m, nil
}
