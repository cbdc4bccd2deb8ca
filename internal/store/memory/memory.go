// Package memory is an in-process store used for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"spending/internal/core"
	"spending/internal/store"
)

type Store struct {
	mu        sync.Mutex
	nextID    int64
	items     []core.Activity
	snapshots map[int64]core.SpendSnapshot
}

func New(seed ...core.Activity) *Store {
	s := &Store{snapshots: map[int64]core.SpendSnapshot{}}
	for _, a := range seed {
		s.nextID++
		a.ID = s.nextID
		s.items = append(s.items, a)
	}
	return s
}

// CreateActivity stores the activity and assigns the next ID.
func (s *Store) CreateActivity(_ context.Context, a core.Activity) (core.Activity, error) {
	if err := a.Validate(); err != nil {
		return core.Activity{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	a.ID = s.nextID
	s.items = append(s.items, a)
	return a, nil
}

// ListActivities returns one page of the account's activities, newest first.
func (s *Store) ListActivities(_ context.Context, accountID int64, offset, limit int) ([]core.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var owned []core.Activity
	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].AccountID == accountID {
			owned = append(owned, s.items[i])
		}
	}
	if offset >= len(owned) {
		return []core.Activity{}, nil
	}
	end := len(owned)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return owned[offset:end], nil
}

// ListCandidates applies the same coarse date predicate as the SQL backends.
func (s *Store) ListCandidates(_ context.Context, accountID int64, w core.Window, category core.Category) ([]core.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Activity{}
	for _, a := range s.items {
		if a.AccountID != accountID || !a.Overlaps(w) {
			continue
		}
		if category != "" && a.Category != category {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SaveSnapshot(_ context.Context, snap core.SpendSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap.ByCategory = append([]core.CategoryAmount(nil), snap.ByCategory...)
	s.snapshots[snap.AccountID] = snap
	return nil
}

func (s *Store) LatestSnapshot(_ context.Context, accountID int64) (core.SpendSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[accountID]
	if !ok {
		return core.SpendSnapshot{}, store.ErrNotFound
	}
	return snap, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

var _ store.Backend = (*Store)(nil)
