package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStageEnter EventType = "stage_enter"
	EventStageLeave EventType = "stage_leave"
	EventTerminate  EventType = "terminate"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// StageEvent represents entry or exit from a stage.
type StageEvent struct {
	EventBase
	Stage    StageName     `json:"stage"`
	Duration time.Duration `json:"duration,omitempty"` // Leave only
	IsError  bool          `json:"is_error,omitempty"` // Leave only
}

// TerminateEvent is emitted once a run reaches a terminal state.
type TerminateEvent struct {
	EventBase
	Status     Status    `json:"status"`
	Succeeded  bool      `json:"succeeded"`
	FailedAt   StageName `json:"failed_at,omitempty"`
	OutputPath string    `json:"output_path,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStageEnter func(context.Context, *StageEvent)
	OnStageLeave func(context.Context, *StageEvent)
	OnTerminate  func(context.Context, *TerminateEvent)
}

// Merge returns hooks that invoke h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStageEnter: chainStage(h.OnStageEnter, other.OnStageEnter),
		OnStageLeave: chainStage(h.OnStageLeave, other.OnStageLeave),
		OnTerminate: func(ctx context.Context, e *TerminateEvent) {
			if h.OnTerminate != nil {
				h.OnTerminate(ctx, e)
			}
			if other.OnTerminate != nil {
				other.OnTerminate(ctx, e)
			}
		},
	}
}

func chainStage(a, b func(context.Context, *StageEvent)) func(context.Context, *StageEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *StageEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
