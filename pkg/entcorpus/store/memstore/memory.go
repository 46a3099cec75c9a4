package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/entcorpus/pkg/entcorpus/internalerr"
	"github.com/cognicore/entcorpus/pkg/entcorpus/redirect"
	"github.com/cognicore/entcorpus/pkg/entcorpus/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu        sync.RWMutex
	redirects map[string][]redirect.Pair
	runs      map[string]store.Run
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		redirects: make(map[string][]redirect.Pair),
		runs:      make(map[string]store.Run),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveRedirects implements store.Store.
func (s *Store) SaveRedirects(ctx context.Context, dump string, pairs []redirect.Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redirects[dump] = append([]redirect.Pair(nil), pairs...)
	return nil
}

// LoadRedirects implements store.Store.
func (s *Store) LoadRedirects(ctx context.Context, dump string) ([]redirect.Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pairs, ok := s.redirects[dump]
	if !ok {
		return nil, fmt.Errorf("%w: redirect snapshot for %s", internalerr.ErrNotFound, dump)
	}
	return append([]redirect.Pair(nil), pairs...), nil
}

// StartRun implements store.Store.
func (s *Store) StartRun(ctx context.Context, r store.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[r.ID]; ok {
		return fmt.Errorf("%w: run %s already exists", internalerr.ErrInvalidInput, r.ID)
	}
	r.Status = store.RunRunning
	s.runs[r.ID] = r
	return nil
}

// FinishRun implements store.Store.
func (s *Store) FinishRun(ctx context.Context, r store.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[r.ID]; !ok {
		return fmt.Errorf("%w: run %s", internalerr.ErrNotFound, r.ID)
	}
	s.runs[r.ID] = r
	return nil
}

// GetRun implements store.Store.
func (s *Store) GetRun(ctx context.Context, id string) (store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return store.Run{}, fmt.Errorf("%w: run %s", internalerr.ErrNotFound, id)
	}
	return r, nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]store.Run, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, r)
	}
	// ULIDs sort by creation time.
	sort.Slice(runs, func(i, j int) bool { return runs[i].ID > runs[j].ID })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

var _ store.Store = (*Store)(nil)
