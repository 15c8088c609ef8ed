// Package repotest holds the behaviour every repo.Store backend must share.
// Backend packages call Run from their own tests.
package repotest

import (
	"context"
	"errors"
	"testing"

	"github.com/hamed0406/heartbeat/internal/domain"
	"github.com/hamed0406/heartbeat/internal/repo"
)

func ping(t *testing.T, raw string, interval uint64, now int64) *domain.Monitor {
	t.Helper()
	slug, err := domain.ParseSlug(raw)
	if err != nil {
		t.Fatalf("slug %q: %v", raw, err)
	}
	m := domain.NewPing(slug, interval, now)
	return &m
}

func slugs(ms []domain.Monitor) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Slug)
	}
	return out
}

func has(ms []domain.Monitor, slug string) bool {
	for _, m := range ms {
		if m.Slug == slug {
			return true
		}
	}
	return false
}

// Run exercises the full store contract against a fresh, empty store.
func Run(t *testing.T, newStore func(t *testing.T) repo.Store) {
	t.Run("UpsertPreservesCreatedAt", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		if err := s.Upsert(ctx, ping(t, "svc-a", 300, 1000)); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		if err := s.Upsert(ctx, ping(t, "svc-a", 600, 2000)); err != nil {
			t.Fatalf("upsert 2: %v", err)
		}
		got, err := s.Get(ctx, "svc-a")
		if err != nil || got == nil {
			t.Fatalf("get: %+v %v", got, err)
		}
		if got.CreatedAt != 1000 {
			t.Fatalf("created_at overwritten: %d", got.CreatedAt)
		}
		if got.LastPing != 2000 || got.IntervalSecs != 600 || got.NextDue != 2600 {
			t.Fatalf("mutable fields not overwritten: %+v", got)
		}
		if got.ExpiresAt != 2000+domain.TTLSecs {
			t.Fatalf("expires_at=%d", got.ExpiresAt)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		got, err := newStore(t).Get(context.Background(), "nope")
		if err != nil || got != nil {
			t.Fatalf("want nil,nil got %+v %v", got, err)
		}
	})

	t.Run("UpsertKeepsAlertAndPausedFields", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		_ = s.Upsert(ctx, ping(t, "svc-a", 300, 1000))
		if err := s.UpdateAlertState(ctx, "svc-a", 1500, 2); err != nil {
			t.Fatal(err)
		}
		if err := s.SetPaused(ctx, "svc-a", true); err != nil {
			t.Fatal(err)
		}
		_ = s.Upsert(ctx, ping(t, "svc-a", 300, 1600))

		got, _ := s.Get(ctx, "svc-a")
		if got.LastAlertedAt == nil || *got.LastAlertedAt != 1500 || got.AlertCountOrZero() != 2 {
			t.Fatalf("alert fields lost on upsert: %+v", got)
		}
		if !got.IsPaused() {
			t.Fatalf("paused lost on upsert")
		}
	})

	t.Run("QueryOverdue", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		_ = s.Upsert(ctx, ping(t, "early", 300, 1000))   // due 1300
		_ = s.Upsert(ctx, ping(t, "on-time", 300, 1200)) // due 1500
		_ = s.Upsert(ctx, ping(t, "later", 300, 2000))   // due 2300
		failed := ping(t, "failed", 300, 2000)
		failed.NextDue = 0
		_ = s.Upsert(ctx, failed)
		_ = s.Upsert(ctx, ping(t, "paused", 300, 1000))
		_ = s.SetPaused(ctx, "paused", true)

		got, err := s.QueryOverdue(ctx, 1500)
		if err != nil {
			t.Fatal(err)
		}
		for _, want := range []string{"early", "failed", "paused"} {
			if !has(got, want) {
				t.Fatalf("missing %s in overdue %v", want, slugs(got))
			}
		}
		if has(got, "on-time") || has(got, "later") {
			t.Fatalf("next_due >= now must not be overdue: %v", slugs(got))
		}

		// moving next_due forward takes the monitor out of the range
		_ = s.Upsert(ctx, ping(t, "early", 300, 1490))
		got, _ = s.QueryOverdue(ctx, 1500)
		if has(got, "early") {
			t.Fatalf("re-pinged monitor still overdue: %v", slugs(got))
		}
	})

	t.Run("AlertStateLifecycle", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		_ = s.Upsert(ctx, ping(t, "svc-a", 300, 1000))
		_ = s.Upsert(ctx, ping(t, "svc-b", 300, 1000))

		alerted, err := s.QueryAlerted(ctx)
		if err != nil || len(alerted) != 0 {
			t.Fatalf("want no alerted, got %v %v", slugs(alerted), err)
		}

		if err := s.UpdateAlertState(ctx, "svc-a", 1400, 1); err != nil {
			t.Fatal(err)
		}
		alerted, _ = s.QueryAlerted(ctx)
		if len(alerted) != 1 || alerted[0].Slug != "svc-a" {
			t.Fatalf("unexpected alerted: %v", slugs(alerted))
		}
		if *alerted[0].LastAlertedAt != 1400 || *alerted[0].AlertCount != 1 {
			t.Fatalf("alert fields: %+v", alerted[0])
		}

		if err := s.ClearAlertState(ctx, "svc-a"); err != nil {
			t.Fatal(err)
		}
		got, _ := s.Get(ctx, "svc-a")
		if got.LastAlertedAt != nil || got.AlertCount != nil {
			t.Fatalf("alert fields not cleared: %+v", got)
		}
		alerted, _ = s.QueryAlerted(ctx)
		if len(alerted) != 0 {
			t.Fatalf("still alerted: %v", slugs(alerted))
		}
	})

	t.Run("ListDeletePause", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		for _, sl := range []string{"charlie", "alpha", "bravo"} {
			_ = s.Upsert(ctx, ping(t, sl, 300, 1000))
		}
		list, err := s.List(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if got := slugs(list); len(got) != 3 || got[0] != "alpha" || got[1] != "bravo" || got[2] != "charlie" {
			t.Fatalf("list not sorted by slug: %v", got)
		}

		if err := s.SetPaused(ctx, "bravo", true); err != nil {
			t.Fatal(err)
		}
		m, _ := s.Get(ctx, "bravo")
		if !m.IsPaused() {
			t.Fatalf("bravo should be paused")
		}
		if err := s.SetPaused(ctx, "bravo", false); err != nil {
			t.Fatal(err)
		}
		m, _ = s.Get(ctx, "bravo")
		if m.IsPaused() {
			t.Fatalf("bravo should be resumed")
		}

		if err := s.Delete(ctx, "alpha"); err != nil {
			t.Fatal(err)
		}
		if m, _ := s.Get(ctx, "alpha"); m != nil {
			t.Fatalf("alpha not deleted")
		}
		if overdue, _ := s.QueryOverdue(ctx, 1_000_000); has(overdue, "alpha") {
			t.Fatalf("deleted monitor still indexed")
		}

		if err := s.Delete(ctx, "alpha"); !errors.Is(err, repo.ErrNotFound) {
			t.Fatalf("delete missing: want ErrNotFound got %v", err)
		}
		if err := s.SetPaused(ctx, "ghost", true); !errors.Is(err, repo.ErrNotFound) {
			t.Fatalf("pause missing: want ErrNotFound got %v", err)
		}
	})

	t.Run("DeleteExpired", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		_ = s.Upsert(ctx, ping(t, "old", 300, 1000))
		_ = s.Upsert(ctx, ping(t, "fresh", 300, 5000))

		n, err := s.DeleteExpired(ctx, 1000+domain.TTLSecs)
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Fatalf("want 1 expired, got %d", n)
		}
		if m, _ := s.Get(ctx, "old"); m != nil {
			t.Fatalf("old should be gone")
		}
		if m, _ := s.Get(ctx, "fresh"); m == nil {
			t.Fatalf("fresh should remain")
		}
	})
}
