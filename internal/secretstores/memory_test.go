package secretstores_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretsplit/internal/secretstores"
	"github.com/systmms/secretsplit/tests/testutil"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := secretstores.NewMemoryStore("memory")
	defer func() { _ = store.Close() }()

	testutil.RunPersistenceContractTests(t, testutil.PersistenceTestCase{
		Name:  "memory",
		Store: store,
	})
}

func TestMemoryStore_CloseDestroysPayloads(t *testing.T) {
	ctx := context.Background()
	store := secretstores.NewMemoryStore("memory")
	coord := testutil.NewTestCoordinate(t, 1)

	require.NoError(t, store.Write(ctx, coord, "hunter2"))
	require.NoError(t, store.Write(ctx, coord.Next(), "hunter3"))
	assert.Equal(t, 2, store.Len())

	require.NoError(t, store.Close())
	assert.Equal(t, 0, store.Len())

	_, found, err := store.Read(ctx, coord)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStore_OverwriteKeepsOneEntry(t *testing.T) {
	ctx := context.Background()
	store := secretstores.NewMemoryStore("memory")
	defer func() { _ = store.Close() }()
	coord := testutil.NewTestCoordinate(t, 1)

	for _, payload := range []string{"a", "b", "c"} {
		require.NoError(t, store.Write(ctx, coord, payload))
	}
	assert.Equal(t, 1, store.Len())
}

func TestNoopStore(t *testing.T) {
	ctx := context.Background()
	store := secretstores.NewNoopStore("none")
	coord := testutil.NewTestCoordinate(t, 1)

	assert.Equal(t, "none", store.Name())
	require.NoError(t, store.Write(ctx, coord, "hunter2"))

	payload, found, err := store.Read(ctx, coord)
	require.NoError(t, err)
	assert.False(t, found, "noop store never retains payloads")
	assert.Empty(t, payload)
	assert.NoError(t, store.Close())
}
