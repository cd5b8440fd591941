package ports

import (
	"context"

	"github.com/aretw0/techtrends/pkg/domain"
)

// Stage is one transformation of the workflow state.
// Implementations must never return an error: failures are recorded in the
// returned state so the router can observe them.
type Stage interface {
	Name() domain.StageName
	Run(ctx context.Context, state domain.WorkflowState) domain.WorkflowState
}

// StageFunc adapts a function to the Stage interface.
type StageFunc struct {
	ID domain.StageName
	Fn func(ctx context.Context, state domain.WorkflowState) domain.WorkflowState
}

// Name implements Stage.
func (f StageFunc) Name() domain.StageName { return f.ID }

// Run implements Stage.
func (f StageFunc) Run(ctx context.Context, state domain.WorkflowState) domain.WorkflowState {
	return f.Fn(ctx, state)
}
