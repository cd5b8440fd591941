package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/techtrends/pkg/domain"
)

// Store implements ports.CheckpointStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.WorkflowState
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.WorkflowState),
	}
}

// Save keeps an isolated copy of the state.
func (s *Store) Save(ctx context.Context, runID string, state *domain.WorkflowState) error {
	snap := state.Snapshot()
	snap.ProgressCallback = nil // not serializable in the other stores either

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[runID] = snap
	return nil
}

// Load returns a copy so callers cannot mutate the stored snapshot.
func (s *Store) Load(ctx context.Context, runID string) (*domain.WorkflowState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.data[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}

	ret := state.Snapshot()
	return &ret, nil
}

// Delete removes the state.
func (s *Store) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, runID)
	return nil
}

// List returns stored run IDs in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]string, 0, len(s.data))
	for id := range s.data {
		runs = append(runs, id)
	}
	sort.Strings(runs)
	return runs, nil
}
