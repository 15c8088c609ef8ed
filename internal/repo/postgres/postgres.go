package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/heartbeat/internal/domain"
	"github.com/hamed0406/heartbeat/internal/repo"
)

var _ repo.Store = (*Store)(nil)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS monitors (
  slug            TEXT PRIMARY KEY,
  interval_secs   BIGINT  NOT NULL,
  last_ping       BIGINT  NOT NULL,
  next_due        BIGINT  NOT NULL,
  check_partition TEXT    NOT NULL,
  last_alerted_at BIGINT  NULL,
  alert_count     INTEGER NULL,
  created_at      BIGINT  NOT NULL,
  paused          BOOLEAN NULL,
  expires_at      BIGINT  NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_monitors_due     ON monitors (check_partition, next_due);
CREATE INDEX IF NOT EXISTS idx_monitors_alerted ON monitors (slug) WHERE last_alerted_at IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_monitors_expires ON monitors (expires_at);
`

const columns = `slug, interval_secs, last_ping, next_due, check_partition,
       last_alerted_at, alert_count, created_at, paused, expires_at`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

// Migrate creates the monitors table and its indexes if they are missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// ---- MonitorStore ----

func (s *Store) Upsert(ctx context.Context, m *domain.Monitor) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO monitors
		  (slug, interval_secs, last_ping, next_due, check_partition, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (slug) DO UPDATE SET
		  interval_secs   = EXCLUDED.interval_secs,
		  last_ping       = EXCLUDED.last_ping,
		  next_due        = EXCLUDED.next_due,
		  check_partition = EXCLUDED.check_partition,
		  expires_at      = EXCLUDED.expires_at`,
		m.Slug, int64(m.IntervalSecs), m.LastPing, m.NextDue, m.CheckPartition, m.CreatedAt, m.ExpiresAt,
	)
	return repo.Wrap("upsert", err)
}

func (s *Store) Get(ctx context.Context, slug string) (*domain.Monitor, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+columns+` FROM monitors WHERE slug = $1`, slug)
	m, err := scanMonitor(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, repo.Wrap("get", err)
	}
	return m, nil
}

// ---- CheckStore ----

func (s *Store) QueryOverdue(ctx context.Context, now int64) ([]domain.Monitor, error) {
	return s.query(ctx, "query overdue",
		`SELECT `+columns+`
		   FROM monitors
		  WHERE check_partition = $1 AND next_due < $2
		  ORDER BY next_due`, domain.CheckPartition, now)
}

func (s *Store) QueryAlerted(ctx context.Context) ([]domain.Monitor, error) {
	return s.query(ctx, "query alerted",
		`SELECT `+columns+` FROM monitors WHERE last_alerted_at IS NOT NULL ORDER BY slug`)
}

func (s *Store) UpdateAlertState(ctx context.Context, slug string, now int64, alertCount uint32) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE monitors SET last_alerted_at = $2, alert_count = $3 WHERE slug = $1`,
		slug, now, int64(alertCount))
	return repo.Wrap("update alert state", err)
}

func (s *Store) ClearAlertState(ctx context.Context, slug string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE monitors SET last_alerted_at = NULL, alert_count = NULL WHERE slug = $1`, slug)
	return repo.Wrap("clear alert state", err)
}

// ---- AdminStore ----

func (s *Store) List(ctx context.Context) ([]domain.Monitor, error) {
	return s.query(ctx, "list", `SELECT `+columns+` FROM monitors ORDER BY slug`)
}

func (s *Store) Delete(ctx context.Context, slug string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM monitors WHERE slug = $1`, slug)
	if err != nil {
		return repo.Wrap("delete", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) SetPaused(ctx context.Context, slug string, paused bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE monitors SET paused = $2 WHERE slug = $1`, slug, paused)
	if err != nil {
		return repo.Wrap("set paused", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// ---- Expirer ----

func (s *Store) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM monitors WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, repo.Wrap("delete expired", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		s.log.Info("monitors_expired", zap.Int64("count", n))
	}
	return tag.RowsAffected(), nil
}

func (s *Store) query(ctx context.Context, op, sql string, args ...any) ([]domain.Monitor, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, repo.Wrap(op, err)
	}
	defer rows.Close()

	var out []domain.Monitor
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, repo.Wrap(op, fmt.Errorf("scan monitor: %w", err))
		}
		out = append(out, *m)
	}
	return out, repo.Wrap(op, rows.Err())
}

func scanMonitor(row pgx.Row) (*domain.Monitor, error) {
	var (
		m          domain.Monitor
		interval   int64
		alertCount *int64
	)
	if err := row.Scan(&m.Slug, &interval, &m.LastPing, &m.NextDue, &m.CheckPartition,
		&m.LastAlertedAt, &alertCount, &m.CreatedAt, &m.Paused, &m.ExpiresAt); err != nil {
		return nil, err
	}
	m.IntervalSecs = uint64(interval)
	if alertCount != nil {
		v := uint32(*alertCount)
		m.AlertCount = &v
	}
	return &m, nil
}
