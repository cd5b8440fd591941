package stages

import (
	"context"

	"github.com/aretw0/techtrends/pkg/domain"
)

// HandleError reports the failure. It runs once, after the router diverts.
type HandleError struct {
	rt *Runtime
}

// Name implements ports.Stage.
func (s *HandleError) Name() domain.StageName { return domain.StageHandleError }

// Run implements ports.Stage.
func (s *HandleError) Run(ctx context.Context, state domain.WorkflowState) domain.WorkflowState {
	state.Progress("Error: " + state.Error)
	s.rt.logger().ErrorContext(ctx, "workflow failed",
		"run_id", state.RunID,
		"stage", state.FailedStage,
		"error", state.Error,
	)
	state.Status = domain.StatusError
	return state
}
