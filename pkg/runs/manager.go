package runs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/techtrends/internal/logging"
	"github.com/aretw0/techtrends/pkg/domain"
	"github.com/aretw0/techtrends/pkg/ports"
)

// lockEntry holds the mutex and the number of goroutines waiting on it.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates run access. Unused lock entries are reclaimed by reference counting.
type Manager struct {
	store ports.CheckpointStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL bounds how long a distributed lock survives a crashed holder.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager over store.
func NewManager(store ports.CheckpointStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: ports.DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) acquire(runID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[runID]
	if !ok {
		entry = &lockEntry{}
		m.locks[runID] = entry
	}
	entry.refs++
	return entry
}

func (m *Manager) release(runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[runID]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, runID)
	}
}

// activeLocks reports how many lock entries are held in memory.
func (m *Manager) activeLocks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

// WithLock executes fn while holding the lock for runID.
// Calls are not reentrant: fn must not call WithLock for the same run.
func (m *Manager) WithLock(ctx context.Context, runID string, fn func(context.Context) error) error {
	entry := m.acquire(runID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(runID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, runID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("failed to release distributed lock, it will expire",
					"run_id", runID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Load retrieves a run.
func (m *Manager) Load(ctx context.Context, runID string) (*domain.WorkflowState, error) {
	var state *domain.WorkflowState
	err := m.WithLock(ctx, runID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, runID)
		return err
	})
	return state, err
}

// Save persists a run.
func (m *Manager) Save(ctx context.Context, runID string, state *domain.WorkflowState) error {
	return m.WithLock(ctx, runID, func(ctx context.Context) error {
		return m.store.Save(ctx, runID, state)
	})
}

// Delete removes a run. Unknown runs report domain.ErrRunNotFound.
func (m *Manager) Delete(ctx context.Context, runID string) error {
	return m.WithLock(ctx, runID, func(ctx context.Context) error {
		if _, err := m.store.Load(ctx, runID); err != nil {
			return err
		}
		return m.store.Delete(ctx, runID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying checkpoint store.
func (m *Manager) Store() ports.CheckpointStore {
	return m.store
}

// Summary is the listing view of a run.
type Summary struct {
	RunID       string           `json:"run_id"`
	Status      domain.Status    `json:"status"`
	Terminated  bool             `json:"terminated"`
	Fields      []domain.Tag     `json:"fields,omitempty"`
	Format      domain.Format    `json:"format,omitempty"`
	FailedStage domain.StageName `json:"failed_stage,omitempty"`
	Error       string           `json:"error,omitempty"`
	OutputPath  string           `json:"output_path,omitempty"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Summarize converts a state into its listing view.
func Summarize(s *domain.WorkflowState) Summary {
	return Summary{
		RunID:       s.RunID,
		Status:      s.Status,
		Terminated:  s.Terminated,
		Fields:      s.Fields,
		Format:      s.Format,
		FailedStage: s.FailedStage,
		Error:       s.Error,
		OutputPath:  s.OutputPath,
		UpdatedAt:   s.UpdatedAt,
	}
}

// Summaries loads every run, most recently updated first.
// Runs deleted while listing are skipped.
func (m *Manager) Summaries(ctx context.Context) ([]Summary, error) {
	ids, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		s, err := m.store.Load(ctx, id)
		if errors.Is(err, domain.ErrRunNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", id, err)
		}
		sum := Summarize(s)
		if sum.RunID == "" {
			sum.RunID = id
		}
		out = append(out, sum)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}
