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

func newAkeylessStore(t *testing.T, cfg secretstores.AkeylessConfig) (*secretstores.AkeylessStore, *fakes.FakeAkeylessClient) {
	t.Helper()

	fake := fakes.NewFakeAkeylessClient()
	store, err := secretstores.NewAkeylessStore("akeyless", cfg, secretstores.WithAkeylessClient(fake))
	require.NoError(t, err)
	return store, fake
}

func TestAkeylessStore_Contract(t *testing.T) {
	store, _ := newAkeylessStore(t, secretstores.AkeylessConfig{Prefix: "/airbyte/"})

	testutil.RunPersistenceContractTests(t, testutil.PersistenceTestCase{
		Name:  "akeyless",
		Store: store,
	})
}

func TestAkeylessStore_Paths(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		wantPath string
	}{
		{name: "no prefix", prefix: "", wantPath: "/"},
		{name: "bare folder", prefix: "airbyte", wantPath: "/airbyte/"},
		{name: "nested folder", prefix: "/team-a/airbyte/", wantPath: "/team-a/airbyte/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, fake := newAkeylessStore(t, secretstores.AkeylessConfig{Prefix: tt.prefix})
			coord := testutil.NewTestCoordinate(t, 1)

			require.NoError(t, store.Write(context.Background(), coord, "hunter2"))

			value, ok := fake.Secrets[tt.wantPath+coord.Full()]
			require.True(t, ok, "expected a write to %s", tt.wantPath+coord.Full())
			assert.Equal(t, "hunter2", value)
		})
	}
}

func TestAkeylessStore_WriteCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	store, fake := newAkeylessStore(t, secretstores.AkeylessConfig{})
	coord := testutil.NewTestCoordinate(t, 1)

	require.NoError(t, store.Write(ctx, coord, "first"))
	assert.Equal(t, 1, fake.CreateCallCount)
	assert.Equal(t, 0, fake.UpdateCallCount)

	require.NoError(t, store.Write(ctx, coord, "second"))
	assert.Equal(t, 2, fake.CreateCallCount)
	assert.Equal(t, 1, fake.UpdateCallCount)
	assert.Equal(t, 2, fake.Versions["/"+coord.Full()])

	payload, found, err := store.Read(ctx, coord)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "second", payload)
}

func TestAkeylessStore_TokenIsCached(t *testing.T) {
	ctx := context.Background()
	store, fake := newAkeylessStore(t, secretstores.AkeylessConfig{})
	coord := testutil.NewTestCoordinate(t, 1)

	require.NoError(t, store.Write(ctx, coord, "hunter2"))
	_, _, err := store.Read(ctx, coord)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.AuthCallCount)

	require.NoError(t, store.Close())
	_, _, err = store.Read(ctx, coord)
	require.NoError(t, err)
	assert.Equal(t, 2, fake.AuthCallCount)
}

func TestAkeylessStore_Errors(t *testing.T) {
	ctx := context.Background()
	coord := testutil.NewTestCoordinate(t, 1)

	t.Run("read failure is not absent", func(t *testing.T) {
		store, fake := newAkeylessStore(t, secretstores.AkeylessConfig{})
		fake.GetErr = fakes.ErrFakeAkeylessUnauthorized

		_, found, err := store.Read(ctx, coord)
		require.Error(t, err)
		assert.False(t, found)

		var storeErr *secretstore.StoreError
		require.True(t, errors.As(err, &storeErr))
		assert.Equal(t, "akeyless", storeErr.Store)
	})

	t.Run("auth failure", func(t *testing.T) {
		store, fake := newAkeylessStore(t, secretstores.AkeylessConfig{})
		fake.AuthErr = fakes.ErrFakeAkeylessUnauthorized

		_, found, err := store.Read(ctx, coord)
		testutil.AssertErrorContains(t, err, "akeyless authentication failed")
		assert.False(t, found)

		err = store.Write(ctx, coord, "hunter2")
		testutil.AssertErrorContains(t, err, "akeyless authentication failed")
		assert.NotContains(t, err.Error(), "hunter2")
		assert.Zero(t, fake.CreateCallCount)
	})

	t.Run("Validate", func(t *testing.T) {
		store, fake := newAkeylessStore(t, secretstores.AkeylessConfig{})
		require.NoError(t, store.Validate(ctx))

		require.NoError(t, store.Close())
		fake.AuthErr = fakes.ErrFakeAkeylessUnauthorized
		testutil.AssertErrorContains(t, store.Validate(ctx), "akeyless validation failed")
	})
}

func TestNewAkeylessStore_AccessType(t *testing.T) {
	tests := []struct {
		name    string
		cfg     secretstores.AkeylessConfig
		wantErr string
	}{
		{
			name:    "access key required by default",
			cfg:     secretstores.AkeylessConfig{AccessID: "p-123"},
			wantErr: "access_key is required",
		},
		{
			name:    "unknown access type",
			cfg:     secretstores.AkeylessConfig{AccessID: "p-123", AccessType: "saml"},
			wantErr: "unsupported akeyless access_type: saml",
		},
		{
			name: "cloud identity needs no key",
			cfg:  secretstores.AkeylessConfig{AccessID: "p-123", AccessType: "aws_iam"},
		},
		{
			name: "access key",
			cfg:  secretstores.AkeylessConfig{AccessID: "p-123", AccessKey: "key", GatewayURL: "https://gw.example.com/api/v2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := secretstores.NewAkeylessStore("akeyless", tt.cfg)
			if tt.wantErr != "" {
				testutil.AssertErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "akeyless", store.Name())
		})
	}
}
