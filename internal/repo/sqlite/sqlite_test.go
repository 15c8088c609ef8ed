package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hamed0406/heartbeat/internal/domain"
	"github.com/hamed0406/heartbeat/internal/repo"
	"github.com/hamed0406/heartbeat/internal/repo/repotest"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "heartbeat.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestSQLiteStore_Contract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repo.Store { return openTemp(t) })
}

func TestSQLiteStore_MigrateIsIdempotent(t *testing.T) {
	s := openTemp(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "heartbeat.db")

	s, err := Open(ctx, path, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	slug, _ := domain.ParseSlug("nightly")
	m := domain.NewPing(slug, 3600, 1000)
	if err := s.Upsert(ctx, &m); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	s2, err := Open(ctx, path, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	got, err := s2.Get(ctx, "nightly")
	if err != nil || got == nil {
		t.Fatalf("get after reopen: %+v %v", got, err)
	}
	if got.NextDue != 4600 || got.IntervalSecs != 3600 {
		t.Fatalf("unexpected row %+v", got)
	}
}
