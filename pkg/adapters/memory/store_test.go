package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/techtrends/pkg/adapters/memory"
	"github.com/aretw0/techtrends/pkg/domain"
	"github.com/aretw0/techtrends/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunCheckpointStoreContract(t, store)
}

func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	state := domain.NewState("r1", domain.Params{Fields: []domain.Tag{domain.TagAI}})
	require.NoError(t, store.Save(ctx, "r1", &state))

	loaded, err := store.Load(ctx, "r1")
	require.NoError(t, err)
	loaded.Fields[0] = domain.TagBiotech

	again, err := store.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.TagAI, again.Fields[0])
}
