package techtrends

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/techtrends/internal/logging"
	"github.com/aretw0/techtrends/internal/prompts"
	"github.com/aretw0/techtrends/internal/runtime"
	"github.com/aretw0/techtrends/internal/stages"
	"github.com/aretw0/techtrends/pkg/adapters/search"
	"github.com/aretw0/techtrends/pkg/domain"
	"github.com/aretw0/techtrends/pkg/ports"
	"github.com/aretw0/techtrends/pkg/runs"
)

// Collaborators are the external services the stages call.
// Generator, Searcher and Converter are required; Retriever and Publisher are optional.
type Collaborators struct {
	Generator ports.Generator
	Searcher  ports.Searcher
	Retriever ports.Retriever
	Converter ports.Converter
	Publisher ports.Publisher
}

// Workflow is the high-level entry point of the library.
// It wraps the internal runtime and keeps the state prepared by Setup until Run consumes it.
type Workflow struct {
	rt     *stages.Runtime
	engine *runtime.Engine
	runs   *runs.Manager
	logger *slog.Logger
	hooks  domain.LifecycleHooks
	store  ports.CheckpointStore
	newID  func() string

	searchInterval time.Duration
	collaborators  Collaborators

	mu      sync.Mutex
	pending *domain.WorkflowState
	last    *domain.WorkflowState
}

// Option defines a functional option for configuring the Workflow.
type Option func(*Workflow)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(w *Workflow) {
		w.hooks = w.hooks.Merge(hooks)
	}
}

// WithCheckpointStore enables snapshots after every stage and makes runs resumable.
func WithCheckpointStore(store ports.CheckpointStore) Option {
	return func(w *Workflow) {
		w.store = store
	}
}

// WithRunManager shares a run manager (and its locks) between workflows.
// Its store is used for checkpoints.
func WithRunManager(m *runs.Manager) Option {
	return func(w *Workflow) {
		w.runs = m
		if m != nil {
			w.store = m.Store()
		}
	}
}

// WithPrompts replaces the built-in prompt library.
func WithPrompts(lib *prompts.Library) Option {
	return func(w *Workflow) {
		w.rt.Prompts = lib
	}
}

// WithClock sets the clock used to stamp output file names.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) {
		w.rt.Now = now
	}
}

// WithSearchInterval widens the spacing between search calls. Values below
// search.DefaultInterval are raised to it. A Searcher that is already a
// *search.Throttled is used as given.
func WithSearchInterval(d time.Duration) Option {
	return func(w *Workflow) {
		w.searchInterval = d
	}
}

// WithRunIDGenerator overrides the run ID source.
func WithRunIDGenerator(fn func() string) Option {
	return func(w *Workflow) {
		if fn != nil {
			w.newID = fn
		}
	}
}

// New creates a Workflow. Missing collaborators are reported by Run.
func New(c Collaborators, opts ...Option) *Workflow {
	w := &Workflow{
		rt:             &stages.Runtime{},
		logger:         logging.NewNop(),
		newID:          uuid.NewString,
		searchInterval: search.DefaultInterval,
		collaborators:  c,
	}
	for _, opt := range opts {
		opt(w)
	}

	if c.Searcher != nil {
		if _, ok := c.Searcher.(*search.Throttled); !ok {
			interval := w.searchInterval
			if interval < search.DefaultInterval {
				interval = search.DefaultInterval
			}
			c.Searcher = search.Throttle(c.Searcher, interval)
		}
	}

	w.rt.Generator = c.Generator
	w.rt.Searcher = c.Searcher
	w.rt.Retriever = c.Retriever
	w.rt.Converter = c.Converter
	w.rt.Publisher = c.Publisher
	w.rt.Logger = w.logger.With("component", "stages")

	if w.runs == nil && w.store != nil {
		w.runs = runs.NewManager(w.store, runs.WithLogger(w.logger))
	}

	engineOpts := []runtime.EngineOption{
		runtime.WithLogger(w.logger.With("component", "engine")),
		runtime.WithLifecycleHooks(w.hooks),
		runtime.WithErrorHandler(stages.ErrorHandler(w.rt)),
	}
	if w.store != nil {
		engineOpts = append(engineOpts, runtime.WithCheckpointStore(w.store))
	}
	w.engine = runtime.NewEngine(stages.Pipeline(w.rt), engineOpts...)

	return w
}

// Setup validates the parameters and prepares a fresh run.
// Calling it again replaces the prepared run.
func (w *Workflow) Setup(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	state := domain.NewState(w.newID(), p)

	w.mu.Lock()
	w.pending = &state
	w.mu.Unlock()
	return nil
}

// Run executes the prepared run and returns the output file path.
// Without a prior Setup it returns a *domain.NotInitializedError. A run that
// terminates through the error path returns a *domain.RunError carrying the
// recorded message. Once execution starts the prepared state is consumed.
func (w *Workflow) Run(ctx context.Context, progress ProgressFunc) (string, error) {
	w.mu.Lock()
	pending := w.pending
	if pending == nil {
		w.mu.Unlock()
		return "", &domain.NotInitializedError{}
	}
	if err := w.validateCollaborators(*pending); err != nil {
		w.mu.Unlock()
		return "", err
	}
	w.pending = nil
	w.mu.Unlock()

	state := pending.Snapshot()
	if progress != nil {
		state.ProgressCallback = progress
	}
	return w.execute(ctx, state)
}

// Resume continues a checkpointed run after its last completed stage.
func (w *Workflow) Resume(ctx context.Context, runID string, progress ProgressFunc) (string, error) {
	if w.runs == nil {
		return "", &domain.ConfigurationError{Key: "checkpoint store", Reason: "resume needs a checkpoint store"}
	}
	var (
		path   string
		runErr error
	)
	err := w.runs.WithLock(ctx, runID, func(ctx context.Context) error {
		stored, err := w.runs.Store().Load(ctx, runID)
		if err != nil {
			return err
		}
		if err := w.validateCollaborators(*stored); err != nil {
			return err
		}
		state := stored.Snapshot()
		state.ProgressCallback = progress
		path, runErr = w.run(ctx, state)
		return nil
	})
	if err != nil {
		return "", err
	}
	return path, runErr
}

func (w *Workflow) execute(ctx context.Context, state domain.WorkflowState) (string, error) {
	if w.runs == nil {
		return w.run(ctx, state)
	}
	var (
		path   string
		runErr error
	)
	err := w.runs.WithLock(ctx, state.RunID, func(ctx context.Context) error {
		path, runErr = w.run(ctx, state)
		return nil
	})
	if err != nil {
		return "", err
	}
	return path, runErr
}

func (w *Workflow) run(ctx context.Context, state domain.WorkflowState) (string, error) {
	final, err := w.engine.Execute(ctx, state)

	w.mu.Lock()
	snap := final.Snapshot()
	snap.ProgressCallback = nil
	w.last = &snap
	w.mu.Unlock()

	if err != nil {
		return "", err
	}
	return final.OutputPath, nil
}

func (w *Workflow) validateCollaborators(state domain.WorkflowState) error {
	switch {
	case w.collaborators.Generator == nil:
		return &domain.ConfigurationError{Key: "generator", Reason: "no generation collaborator configured"}
	case w.collaborators.Searcher == nil:
		return &domain.ConfigurationError{Key: "searcher", Reason: "no search collaborator configured"}
	case w.collaborators.Converter == nil:
		return &domain.ConfigurationError{Key: "converter", Reason: "no conversion collaborator configured"}
	case state.RAGEnabled && len(state.RAGDocuments) > 0 && w.collaborators.Retriever == nil:
		return &domain.ConfigurationError{Key: "retriever", Reason: "reference documents given but no retrieval collaborator configured"}
	}
	return nil
}

// State returns the prepared state, or the last executed one once Run returned.
func (w *Workflow) State() (domain.WorkflowState, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case w.pending != nil:
		return w.pending.Snapshot(), true
	case w.last != nil:
		return w.last.Snapshot(), true
	}
	return domain.WorkflowState{}, false
}

// Graph describes the workflow for inspection and Mermaid export.
func (w *Workflow) Graph() domain.Graph {
	return w.engine.Graph()
}

// Stages returns the stage names in execution order.
func (w *Workflow) Stages() []domain.StageName {
	return w.engine.Stages()
}

// Runs returns the run manager, nil when no checkpoint store is configured.
func (w *Workflow) Runs() *runs.Manager {
	return w.runs
}

// Params holds the arguments of Setup.
type Params = domain.Params

// ProgressFunc receives human readable progress messages.
type ProgressFunc = domain.ProgressFunc

