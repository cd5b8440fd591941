package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/techtrends/pkg/adapters/memory"
	"github.com/aretw0/techtrends/pkg/domain"
	"github.com/aretw0/techtrends/pkg/persistence/middleware"
	"github.com/aretw0/techtrends/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func sampleState() *domain.WorkflowState {
	s := domain.NewState("run-1", domain.Params{
		Fields:   []domain.Tag{domain.TagAI},
		Format:   domain.FormatMarkdown,
		Language: domain.LanguageKorean,
		Depth:    domain.DepthStandard,
	})
	s.Status = domain.StatusReportDone
	s.Report = "confidential findings"
	return &s
}

func TestEncryption_Contract(t *testing.T) {
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	ports.RunCheckpointStoreContract(t, mw(memory.NewStore()))
}

func TestEncryption_HidesContent(t *testing.T) {
	inner := memory.NewStore()
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	secure := mw(inner)
	ctx := context.Background()

	require.NoError(t, secure.Save(ctx, "run-1", sampleState()))

	stored, err := inner.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, stored.Report)
	assert.Empty(t, stored.Fields)
	assert.NotEmpty(t, stored.Sealed)
	assert.Equal(t, domain.StatusReportDone, stored.Status, "status stays readable")

	loaded, err := secure.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "confidential findings", loaded.Report)
	assert.Equal(t, []domain.Tag{domain.TagAI}, loaded.Fields)
	assert.Empty(t, loaded.Sealed)
}

func TestEncryption_KeyRotation(t *testing.T) {
	inner := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)
	ctx := context.Background()

	mwOld, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})
	require.NoError(t, err)
	require.NoError(t, mwOld(inner).Save(ctx, "run-1", sampleState()))

	mwNew, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	require.NoError(t, err)
	loaded, err := mwNew(inner).Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "confidential findings", loaded.Report)

	mwWrong, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: newKey})
	require.NoError(t, err)
	_, err = mwWrong(inner).Load(ctx, "run-1")
	assert.ErrorContains(t, err, "decrypt")
}

func TestEncryption_RejectsPlainCheckpoint(t *testing.T) {
	inner := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, inner.Save(ctx, "run-1", sampleState()))

	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	_, err = mw(inner).Load(ctx, "run-1")
	assert.ErrorIs(t, err, middleware.ErrNotSealed)
}

func TestEncryption_KeyValidation(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")})
	assert.ErrorIs(t, err, middleware.ErrKeySize)

	key := generateKey(t)
	decoded, err := middleware.DecodeKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, decoded)

	_, err = middleware.DecodeKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, middleware.ErrKeySize)
}

func TestRedaction_MasksSecrets(t *testing.T) {
	inner := memory.NewStore()
	mw, err := middleware.NewRedactionMiddleware(middleware.DefaultSecretPatterns)
	require.NoError(t, err)
	store := mw(inner)
	ctx := context.Background()

	state := sampleState()
	state.Error = "plan stage: generation: status 401: Incorrect API key provided: sk-abcdefghijklmnop1234"
	require.NoError(t, store.Save(ctx, "run-1", state))

	loaded, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "plan stage: generation: status 401: Incorrect API key provided: ***", loaded.Error)
	assert.Contains(t, state.Error, "sk-abcdefghijklmnop1234", "caller state is untouched")
}

func TestChain_Order(t *testing.T) {
	inner := memory.NewStore()
	redact, err := middleware.NewRedactionMiddleware(middleware.DefaultSecretPatterns)
	require.NoError(t, err)
	encrypt, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	store := middleware.Chain(inner, redact, encrypt)
	ctx := context.Background()

	state := sampleState()
	state.Report = "key sk-abcdefghijklmnop1234"
	require.NoError(t, store.Save(ctx, "run-1", state))

	loaded, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "key ***", loaded.Report)
}
