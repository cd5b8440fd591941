package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/techtrends/pkg/domain"
	"github.com/aretw0/techtrends/pkg/ports"
)

// Engine is the core workflow runner.
// It executes stages strictly in order and applies the same routing decision
// after each of them.
type Engine struct {
	stages       []ports.Stage
	errorHandler ports.Stage
	hooks        domain.LifecycleHooks
	store        ports.CheckpointStore
	logger       *slog.Logger
	now          func() time.Time
}

// EngineOption defines a functional option for configuring the Engine.
type EngineOption func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithCheckpointStore enables snapshots after every stage.
func WithCheckpointStore(store ports.CheckpointStore) EngineOption {
	return func(e *Engine) {
		e.store = store
	}
}

// WithErrorHandler sets the stage executed when the router diverts to the error path.
func WithErrorHandler(stage ports.Stage) EngineOption {
	return func(e *Engine) {
		e.errorHandler = stage
	}
}

// NewEngine creates a new engine running stages in the given order.
func NewEngine(stages []ports.Stage, opts ...EngineOption) *Engine {
	e := &Engine{
		stages: stages,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Stages returns the names of the configured stages in execution order.
func (e *Engine) Stages() []domain.StageName {
	names := make([]domain.StageName, len(e.stages))
	for i, s := range e.stages {
		names[i] = s.Name()
	}
	return names
}

// Execute drives the state to a terminal state.
// A state produced by an earlier, interrupted execution resumes after the
// last stage that completed. The returned error is a *domain.RunError when
// the run terminated through the error path.
func (e *Engine) Execute(ctx context.Context, state domain.WorkflowState) (domain.WorkflowState, error) {
	if state.Terminated {
		return state, fmt.Errorf("%w: %s", domain.ErrRunTerminated, state.RunID)
	}

	current := state.Snapshot()
	logger := e.logger.With("run_id", current.RunID)

	if current.HasError() {
		// Interrupted between the failing stage and the error handler.
		return e.fail(ctx, logger, current)
	}

	start, err := e.resumeIndex(current.Status)
	if err != nil {
		return current, err
	}

	if start == 0 {
		current.Progress("Starting workflow...")
		logger.InfoContext(ctx, "workflow started", "fields", current.Fields, "format", current.Format)
	} else {
		logger.InfoContext(ctx, "workflow resumed", "status", current.Status, "next_stage", e.stageAt(start))
	}

	for _, stage := range e.stages[start:] {
		current = e.runStage(ctx, logger, stage, current)

		if Route(current) == domain.RouteError {
			return e.fail(ctx, logger, current)
		}
	}

	return e.complete(ctx, logger, current)
}

func (e *Engine) stageAt(i int) domain.StageName {
	if i < len(e.stages) {
		return e.stages[i].Name()
	}
	return ""
}

// resumeIndex maps a status to the index of the next stage to execute.
func (e *Engine) resumeIndex(status domain.Status) (int, error) {
	if status == "" || status == domain.StatusInitialized {
		return 0, nil
	}
	for i, s := range e.stages {
		if s.Name().Done() == status {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("cannot resume from status %q", status)
}

func (e *Engine) runStage(ctx context.Context, logger *slog.Logger, stage ports.Stage, current domain.WorkflowState) domain.WorkflowState {
	name := stage.Name()
	e.emitStageEnter(ctx, current.RunID, name)
	logger.DebugContext(ctx, "stage started", "stage", name)

	started := time.Now()
	next := stage.Run(ctx, current.Snapshot())
	elapsed := time.Since(started)

	next = preserveInputs(current, next)
	next.History = append(next.History, name)
	next.UpdatedAt = e.now()

	if next.HasError() && next.FailedStage == "" {
		next.FailedStage = name
	}

	e.emitStageLeave(ctx, current.RunID, name, elapsed, next.HasError())
	if next.HasError() {
		logger.WarnContext(ctx, "stage failed", "stage", name, "duration", elapsed, "error", next.Error)
	} else {
		logger.InfoContext(ctx, "stage complete", "stage", name, "duration", elapsed, "status", next.Status)
	}

	e.checkpoint(ctx, logger, next)
	return next
}

// preserveInputs restores the fields a stage does not own.
func preserveInputs(prev, next domain.WorkflowState) domain.WorkflowState {
	next.RunID = prev.RunID
	next.Fields = prev.Fields
	next.Format = prev.Format
	next.Language = prev.Language
	next.Depth = prev.Depth
	next.RAGEnabled = prev.RAGEnabled
	next.RAGDocuments = prev.RAGDocuments
	next.CreatedAt = prev.CreatedAt
	next.ProgressCallback = prev.ProgressCallback
	next.Terminated = false
	return next
}

func (e *Engine) fail(ctx context.Context, logger *slog.Logger, current domain.WorkflowState) (domain.WorkflowState, error) {
	if e.errorHandler != nil {
		handled := e.runErrorHandler(ctx, current)
		current = handled
	}

	current.Status = domain.StatusError
	current.Terminated = true
	current.UpdatedAt = e.now()

	logger.ErrorContext(ctx, "workflow terminated", "stage", current.FailedStage, "error", current.Error)
	e.checkpoint(ctx, logger, current)
	e.emitTerminate(ctx, current)

	return current, &domain.RunError{
		RunID:   current.RunID,
		Stage:   current.FailedStage,
		Message: current.Error,
	}
}

// runErrorHandler executes the error handler without letting it rewrite the failure.
func (e *Engine) runErrorHandler(ctx context.Context, current domain.WorkflowState) domain.WorkflowState {
	name := e.errorHandler.Name()
	e.emitStageEnter(ctx, current.RunID, name)
	started := time.Now()

	handled := e.errorHandler.Run(ctx, current.Snapshot())
	handled = preserveInputs(current, handled)
	handled.Error = current.Error
	handled.FailedStage = current.FailedStage
	handled.History = append(handled.History, name)

	e.emitStageLeave(ctx, current.RunID, name, time.Since(started), true)
	return handled
}

func (e *Engine) complete(ctx context.Context, logger *slog.Logger, current domain.WorkflowState) (domain.WorkflowState, error) {
	current.Terminated = true
	current.UpdatedAt = e.now()

	current.Progress(fmt.Sprintf("Workflow completed: %s", current.OutputPath))
	logger.InfoContext(ctx, "workflow completed", "output_path", current.OutputPath)

	e.checkpoint(ctx, logger, current)
	e.emitTerminate(ctx, current)
	return current, nil
}

// checkpoint persists a snapshot. Failures never affect the run.
func (e *Engine) checkpoint(ctx context.Context, logger *slog.Logger, state domain.WorkflowState) {
	if e.store == nil || state.RunID == "" {
		return
	}
	snap := state.Snapshot()
	if err := e.store.Save(ctx, state.RunID, &snap); err != nil {
		logger.WarnContext(ctx, "checkpoint failed", "status", state.Status, "error", err)
	}
}
