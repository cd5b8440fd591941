package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/techtrends/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractState(runID string) *domain.WorkflowState {
	s := domain.NewState(runID, domain.Params{
		Fields:   []domain.Tag{domain.TagAI, domain.TagEnergy},
		Format:   domain.FormatMarkdown,
		Language: domain.LanguageEnglish,
		Depth:    domain.DepthDeep,
	})
	return &s
}

// RunCheckpointStoreContract runs a suite of tests to verify that a CheckpointStore
// implementation adheres to the defined interface contract.
func RunCheckpointStoreContract(t *testing.T, store CheckpointStore) {
	ctx := context.Background()
	runID := "contract-test-run-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := contractState(runID)
		state.Status = domain.StatusPlanDone
		state.AnalysisPlan = &domain.AnalysisPlan{
			Fields:   state.Fields,
			Language: state.Language,
			Depth:    state.Depth,
			Plan:     "PLAN",
		}
		state.History = []domain.StageName{domain.StagePlan}

		require.NoError(t, store.Save(ctx, runID, state), "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.RunID, loaded.RunID)
		assert.Equal(t, domain.StatusPlanDone, loaded.Status)
		assert.Equal(t, state.Fields, loaded.Fields)
		require.NotNil(t, loaded.AnalysisPlan)
		assert.Equal(t, "PLAN", loaded.AnalysisPlan.Plan)
		assert.Equal(t, []domain.StageName{domain.StagePlan}, loaded.History)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		state := contractState(runID)
		state.Status = domain.StatusError
		state.Error = "plan stage: generation: boom"
		state.Terminated = true
		require.NoError(t, store.Save(ctx, runID, state))

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusError, loaded.Status)
		assert.Equal(t, state.Error, loaded.Error)
		assert.True(t, loaded.Terminated)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, runID, contractState(runID)))

		require.NoError(t, store.Delete(ctx, runID), "Delete should not return error")

		_, err := store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		require.NoError(t, store.Save(ctx, id1, contractState(id1)))
		require.NoError(t, store.Save(ctx, id2, contractState(id2)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		runs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, id1)
		assert.Contains(t, runs, id2)
	})
}
