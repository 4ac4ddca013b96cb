package secretstores_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretsplit/internal/secretstores"
	"github.com/systmms/secretsplit/pkg/secretstore"
	"github.com/systmms/secretsplit/tests/fakes"
	"github.com/systmms/secretsplit/tests/testutil"
)

func newVaultStore(t *testing.T, cfg secretstores.VaultConfig) (*secretstores.VaultStore, *fakes.FakeVaultLogical) {
	t.Helper()

	fake := fakes.NewFakeVaultLogical()
	store, err := secretstores.NewVaultStore("vault", cfg, secretstores.WithVaultLogical(fake))
	require.NoError(t, err)
	return store, fake
}

func TestVaultStore_Contract(t *testing.T) {
	for _, version := range []int{1, 2} {
		store, _ := newVaultStore(t, secretstores.VaultConfig{Mount: "kv", KVVersion: version})

		t.Run(map[int]string{1: "kv1", 2: "kv2"}[version], func(t *testing.T) {
			testutil.RunPersistenceContractTests(t, testutil.PersistenceTestCase{
				Name:  "vault",
				Store: store,
			})
		})
	}
}

func TestVaultStore_Paths(t *testing.T) {
	tests := []struct {
		name     string
		cfg      secretstores.VaultConfig
		wantPath string
	}{
		{
			name:     "defaults to kv2 under secret/",
			cfg:      secretstores.VaultConfig{},
			wantPath: "secret/data/",
		},
		{
			name:     "kv2 with prefix",
			cfg:      secretstores.VaultConfig{Mount: "/apps/", Prefix: "/airbyte/"},
			wantPath: "apps/data/airbyte/",
		},
		{
			name:     "kv1",
			cfg:      secretstores.VaultConfig{Mount: "kv", KVVersion: 1, Prefix: "team-a/"},
			wantPath: "kv/team-a/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, fake := newVaultStore(t, tt.cfg)
			coord := testutil.NewTestCoordinate(t, 1)

			require.NoError(t, store.Write(context.Background(), coord, "hunter2"))

			fields, ok := fake.Data[tt.wantPath+coord.Full()]
			require.True(t, ok, "expected a write to %s", tt.wantPath+coord.Full())
			assert.Equal(t, map[string]interface{}{"value": "hunter2"}, fields)
		})
	}
}

func TestVaultStore_SoftDeletedIsAbsent(t *testing.T) {
	ctx := context.Background()
	store, fake := newVaultStore(t, secretstores.VaultConfig{})
	coord := testutil.NewTestCoordinate(t, 1)

	require.NoError(t, store.Write(ctx, coord, "hunter2"))
	fake.DeleteLatest("secret/data/" + coord.Full())

	_, found, err := store.Read(ctx, coord)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestVaultStore_MalformedSecret(t *testing.T) {
	ctx := context.Background()
	store, fake := newVaultStore(t, secretstores.VaultConfig{KVVersion: 1})
	coord := testutil.NewTestCoordinate(t, 1)
	path := "secret/" + coord.Full()

	fake.Data[path] = map[string]interface{}{"password": "hunter2"}
	_, _, err := store.Read(ctx, coord)
	testutil.AssertErrorContains(t, err, `no "value" field`)

	fake.Data[path] = map[string]interface{}{"value": 42}
	_, _, err = store.Read(ctx, coord)
	testutil.AssertErrorContains(t, err, "not a string")
}

func TestVaultStore_Errors(t *testing.T) {
	ctx := context.Background()
	store, fake := newVaultStore(t, secretstores.VaultConfig{})
	coord := testutil.NewTestCoordinate(t, 1)
	fake.Errors["secret/data/"+coord.Full()] = errors.New("permission denied")

	_, found, err := store.Read(ctx, coord)
	require.Error(t, err)
	assert.False(t, found)

	var storeErr *secretstore.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "vault", storeErr.Store)

	t.Run("Validate", func(t *testing.T) {
		require.NoError(t, store.Validate(ctx))

		fake.TokenErr = errors.New("permission denied")
		testutil.AssertErrorContains(t, store.Validate(ctx), "vault token lookup failed")
	})
}

func TestNewVaultStore_InvalidKVVersion(t *testing.T) {
	_, err := secretstores.NewVaultStore("vault", secretstores.VaultConfig{KVVersion: 3},
		secretstores.WithVaultLogical(fakes.NewFakeVaultLogical()))
	testutil.AssertErrorContains(t, err, "kv_version must be 1 or 2")
}
