package runtime

import (
	"context"
	"time"

	"github.com/aretw0/techtrends/pkg/domain"
)

func (e *Engine) emitStageEnter(ctx context.Context, runID string, stage domain.StageName) {
	if e.hooks.OnStageEnter == nil {
		return
	}
	e.hooks.OnStageEnter(ctx, &domain.StageEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventStageEnter, RunID: runID},
		Stage:     stage,
	})
}

func (e *Engine) emitStageLeave(ctx context.Context, runID string, stage domain.StageName, d time.Duration, isError bool) {
	if e.hooks.OnStageLeave == nil {
		return
	}
	e.hooks.OnStageLeave(ctx, &domain.StageEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventStageLeave, RunID: runID},
		Stage:     stage,
		Duration:  d,
		IsError:   isError,
	})
}

func (e *Engine) emitTerminate(ctx context.Context, state domain.WorkflowState) {
	if e.hooks.OnTerminate == nil {
		return
	}
	e.hooks.OnTerminate(ctx, &domain.TerminateEvent{
		EventBase:  domain.EventBase{Timestamp: e.now(), Type: domain.EventTerminate, RunID: state.RunID},
		Status:     state.Status,
		Succeeded:  !state.HasError(),
		FailedAt:   state.FailedStage,
		OutputPath: state.OutputPath,
	})
}
