package secretstores_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretsplit/internal/secretstores"
	"github.com/systmms/secretsplit/pkg/secretstore"
	"github.com/systmms/secretsplit/tests/fakes"
	"github.com/systmms/secretsplit/tests/testutil"
)

func newGCPStore(t *testing.T, cfg secretstores.GCPSecretManagerConfig) (*secretstores.GCPSecretManagerStore, *fakes.FakeGCPSecretManagerClient) {
	t.Helper()

	fake := fakes.NewFakeGCPSecretManagerClient()
	if cfg.ProjectID == "" {
		cfg.ProjectID = "test-project"
	}
	store, err := secretstores.NewGCPSecretManagerStore(context.Background(), "gcp", cfg,
		secretstores.WithSecretManagerClient(fake))
	require.NoError(t, err)
	return store, fake
}

func TestGCPSecretManagerStore_Contract(t *testing.T) {
	store, _ := newGCPStore(t, secretstores.GCPSecretManagerConfig{})

	testutil.RunPersistenceContractTests(t, testutil.PersistenceTestCase{
		Name:  "gcp",
		Store: store,
	})
}

func TestGCPSecretManagerStore_Write(t *testing.T) {
	ctx := context.Background()
	store, fake := newGCPStore(t, secretstores.GCPSecretManagerConfig{
		TTL:    24 * time.Hour,
		Labels: map[string]string{"owner": "platform"},
	})
	coord := testutil.NewTestCoordinate(t, 1)
	secretName := "projects/test-project/secrets/" + coord.Full()

	require.NoError(t, store.Write(ctx, coord, "first"))
	require.NoError(t, store.Write(ctx, coord, "second"))

	t.Run("one secret per coordinate", func(t *testing.T) {
		require.Len(t, fake.CreateRequests, 2)
		assert.Equal(t, "projects/test-project", fake.CreateRequests[0].Parent)
		assert.Equal(t, coord.Full(), fake.CreateRequests[0].SecretId)
		assert.Len(t, fake.Secrets, 1)
		assert.Equal(t, 2, fake.VersionCount(secretName), "a rewrite adds a version")
	})

	t.Run("labels and ttl", func(t *testing.T) {
		secret := fake.CreateRequests[0].GetSecret()
		assert.Equal(t, map[string]string{"owner": "platform"}, secret.GetLabels())
		assert.Equal(t, 24*time.Hour, secret.GetTtl().AsDuration())
		assert.NotNil(t, secret.GetReplication().GetAutomatic())
	})
}

func TestGCPSecretManagerStore_Errors(t *testing.T) {
	ctx := context.Background()
	store, fake := newGCPStore(t, secretstores.GCPSecretManagerConfig{})
	coord := testutil.NewTestCoordinate(t, 1)
	secretName := "projects/test-project/secrets/" + coord.Full()

	fake.AddError(secretName, fakes.GCPPermissionDeniedError("caller lacks secretmanager.versions.access"))

	_, found, err := store.Read(ctx, coord)
	require.Error(t, err, "permission denied must not be reported as absent")
	assert.False(t, found)

	var storeErr *secretstore.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "gcp", storeErr.Store)
	assert.Equal(t, "read", storeErr.Op)

	err = store.Write(ctx, coord, "hunter2")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "hunter2")
}

func TestGCPSecretManagerStore_Validate(t *testing.T) {
	store, fake := newGCPStore(t, secretstores.GCPSecretManagerConfig{})

	require.NoError(t, store.Validate(context.Background()), "an empty project is valid")

	fake.ListSecretsErr = fakes.GCPUnavailableError()
	assert.Error(t, store.Validate(context.Background()))

	require.NoError(t, store.Close())
	assert.True(t, fake.Closed)
}
