package ports

import (
	"context"

	"github.com/aretw0/techtrends/pkg/domain"
)

// CheckpointStore defines the interface for persisting run snapshots.
// This allows a failed or interrupted run to be inspected and resumed.
type CheckpointStore interface {
	// Save persists the state for a given run ID.
	Save(ctx context.Context, runID string, state *domain.WorkflowState) error

	// Load retrieves the state for a given run ID.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Load(ctx context.Context, runID string) (*domain.WorkflowState, error)

	// Delete removes the state for a given run ID.
	Delete(ctx context.Context, runID string) error

	// List returns the IDs of all stored runs.
	List(ctx context.Context) ([]string, error)
}
