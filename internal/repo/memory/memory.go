package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/hamed0406/heartbeat/internal/domain"
	"github.com/hamed0406/heartbeat/internal/repo"
)

var _ repo.Store = (*Store)(nil)

type dueKey struct {
	nextDue int64
	slug    string
}

func compareDue(a, b dueKey) int {
	if c := cmp.Compare(a.nextDue, b.nextDue); c != 0 {
		return c
	}
	return cmp.Compare(a.slug, b.slug)
}

// Store keeps monitors in a map plus a (next_due, slug) sorted index so the
// overdue query is a prefix scan rather than a walk over every monitor.
type Store struct {
	mu       sync.RWMutex
	monitors map[string]*domain.Monitor
	due      []dueKey
}

func New() *Store {
	return &Store{
		monitors: make(map[string]*domain.Monitor),
		due:      make([]dueKey, 0, 128),
	}
}

func (s *Store) indexRemove(k dueKey) {
	if i, ok := slices.BinarySearchFunc(s.due, k, compareDue); ok {
		s.due = slices.Delete(s.due, i, i+1)
	}
}

func (s *Store) indexInsert(k dueKey) {
	i, ok := slices.BinarySearchFunc(s.due, k, compareDue)
	if !ok {
		s.due = slices.Insert(s.due, i, k)
	}
}

func (s *Store) Upsert(ctx context.Context, m *domain.Monitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.monitors[m.Slug]
	if !ok {
		cp := *m
		cp.LastAlertedAt, cp.AlertCount, cp.Paused = nil, nil, nil
		s.monitors[m.Slug] = &cp
		s.indexInsert(dueKey{cp.NextDue, cp.Slug})
		return nil
	}

	s.indexRemove(dueKey{cur.NextDue, cur.Slug})
	cur.IntervalSecs = m.IntervalSecs
	cur.LastPing = m.LastPing
	cur.NextDue = m.NextDue
	cur.CheckPartition = m.CheckPartition
	cur.ExpiresAt = m.ExpiresAt
	s.indexInsert(dueKey{cur.NextDue, cur.Slug})
	return nil
}

func (s *Store) Get(ctx context.Context, slug string) (*domain.Monitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.monitors[slug]
	if !ok {
		return nil, nil
	}
	return clone(m), nil
}

func (s *Store) QueryOverdue(ctx context.Context, now int64) ([]domain.Monitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Monitor
	for _, k := range s.due {
		if k.nextDue >= now {
			break
		}
		m := s.monitors[k.slug]
		if m.CheckPartition != domain.CheckPartition {
			continue
		}
		out = append(out, *clone(m))
	}
	return out, nil
}

func (s *Store) QueryAlerted(ctx context.Context) ([]domain.Monitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Monitor
	for _, m := range s.monitors {
		if m.LastAlertedAt != nil {
			out = append(out, *clone(m))
		}
	}
	slices.SortFunc(out, func(a, b domain.Monitor) int { return cmp.Compare(a.Slug, b.Slug) })
	return out, nil
}

func (s *Store) UpdateAlertState(ctx context.Context, slug string, now int64, alertCount uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.monitors[slug]
	if !ok {
		// matches an update against a missing item in the SQL stores: a no-op
		return nil
	}
	m.LastAlertedAt = &now
	m.AlertCount = &alertCount
	return nil
}

func (s *Store) ClearAlertState(ctx context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.monitors[slug]; ok {
		m.LastAlertedAt = nil
		m.AlertCount = nil
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]domain.Monitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Monitor, 0, len(s.monitors))
	for _, m := range s.monitors {
		out = append(out, *clone(m))
	}
	slices.SortFunc(out, func(a, b domain.Monitor) int { return cmp.Compare(a.Slug, b.Slug) })
	return out, nil
}

func (s *Store) Delete(ctx context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.monitors[slug]
	if !ok {
		return repo.ErrNotFound
	}
	s.indexRemove(dueKey{m.NextDue, m.Slug})
	delete(s.monitors, slug)
	return nil
}

func (s *Store) SetPaused(ctx context.Context, slug string, paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.monitors[slug]
	if !ok {
		return repo.ErrNotFound
	}
	m.Paused = &paused
	return nil
}

func (s *Store) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for slug, m := range s.monitors {
		if m.ExpiresAt <= now {
			s.indexRemove(dueKey{m.NextDue, m.Slug})
			delete(s.monitors, slug)
			n++
		}
	}
	return n, nil
}

func clone(m *domain.Monitor) *domain.Monitor {
	cp := *m
	if m.LastAlertedAt != nil {
		v := *m.LastAlertedAt
		cp.LastAlertedAt = &v
	}
	if m.AlertCount != nil {
		v := *m.AlertCount
		cp.AlertCount = &v
	}
	if m.Paused != nil {
		v := *m.Paused
		cp.Paused = &v
	}
	return &cp
}
