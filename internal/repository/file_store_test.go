package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretsplit/internal/config"
	"github.com/systmms/secretsplit/internal/secretstores"
	"github.com/systmms/secretsplit/tests/testutil"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		input   string
		want    Kind
		wantErr bool
	}{
		{"source", KindSource, false},
		{"destination", KindDestination, false},
		{"Source", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseKind(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileConfigStore(t *testing.T) {
	ctx := context.Background()
	store := NewFileConfigStore(filepath.Join(t.TempDir(), "connections"))

	t.Run("missing connection", func(t *testing.T) {
		_, err := store.GetConnection(ctx, KindSource, uuid.New())
		assert.ErrorIs(t, err, ErrConnectionNotFound)
	})

	t.Run("list of missing directory is empty", func(t *testing.T) {
		conns, err := store.ListConnections(ctx, KindDestination)
		require.NoError(t, err)
		assert.Empty(t, conns)
	})

	t.Run("put and list", func(t *testing.T) {
		ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
		for i, name := range []string{"zeta", "alpha", "mid"} {
			require.NoError(t, store.PutConnection(ctx, &Connection{
				ID:            ids[i],
				WorkspaceID:   testWorkspace,
				Kind:          KindDestination,
				Name:          name,
				Configuration: map[string]any{"bucket": name},
			}))
		}

		conns, err := store.ListConnections(ctx, KindDestination)
		require.NoError(t, err)
		require.Len(t, conns, 3)
		assert.Equal(t, "alpha", conns[0].Name)
		assert.Equal(t, "mid", conns[1].Name)
		assert.Equal(t, "zeta", conns[2].Name)

		sources, err := store.ListConnections(ctx, KindSource)
		require.NoError(t, err)
		assert.Empty(t, sources, "kinds are stored separately")
	})

	t.Run("files are private", func(t *testing.T) {
		id := uuid.New()
		require.NoError(t, store.PutConnection(ctx, &Connection{ID: id, Kind: KindSource, Name: "s"}))

		info, err := os.Stat(filepath.Join(store.Dir(), "sources", id.String()+".json"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("file layout", func(t *testing.T) {
		id := uuid.MustParse("44444444-4444-4444-8444-444444444444")
		require.NoError(t, store.PutConnection(ctx, &Connection{
			ID:            id,
			WorkspaceID:   testWorkspace,
			Kind:          KindSource,
			Name:          "warehouse",
			Configuration: map[string]any{"password": map[string]any{"_secret": "workspace_x_secret_y_v1"}},
		}))

		testutil.AssertJSONFile(t, filepath.Join(store.Dir(), "sources", id.String()+".json"), map[string]any{
			"id":            id.String(),
			"workspaceId":   testWorkspace.String(),
			"kind":          "source",
			"name":          "warehouse",
			"configuration": map[string]any{"password": map[string]any{"_secret": "workspace_x_secret_y_v1"}},
		})
	})

	t.Run("invalid connection", func(t *testing.T) {
		assert.Error(t, store.PutConnection(ctx, &Connection{ID: uuid.New(), Kind: "pipeline"}))
		assert.Error(t, store.PutConnection(ctx, &Connection{Kind: KindSource}))
	})

	t.Run("corrupt file", func(t *testing.T) {
		id := uuid.New()
		dir := filepath.Join(store.Dir(), "sources")
		require.NoError(t, os.WriteFile(filepath.Join(dir, id.String()+".json"), []byte("{not json"), 0600))

		_, err := store.GetConnection(ctx, KindSource, id)
		testutil.AssertErrorContains(t, err, "invalid JSON")
	})
}

func TestOpenStores(t *testing.T) {
	ctx := context.Background()
	registry := secretstores.NewRegistry()

	t.Run("default ephemeral store", func(t *testing.T) {
		cfg := &config.Config{Definition: testutil.NewTestConfig(t).
			WithSecretStore("main", "memory", nil).
			WithLongLivedStore("main").
			Build()}

		stores, err := OpenStores(ctx, cfg, registry)
		require.NoError(t, err)
		defer func() { _ = stores.Close() }()

		assert.Equal(t, "main", stores.LongLived.Name())
		assert.Equal(t, config.DefaultEphemeralStoreName, stores.Ephemeral.Name())
		assert.NotSame(t, stores.LongLived, stores.Ephemeral)
		assert.False(t, stores.Inline)
	})

	t.Run("shared store", func(t *testing.T) {
		cfg := &config.Config{Definition: testutil.NewTestConfig(t).
			WithSecretStore("main", "memory", nil).
			WithLongLivedStore("main").
			WithEphemeralStore("main").
			Build()}

		stores, err := OpenStores(ctx, cfg, registry)
		require.NoError(t, err)
		assert.Same(t, stores.LongLived, stores.Ephemeral)
		assert.NoError(t, stores.Close())
	})

	t.Run("noop keeps secrets inline", func(t *testing.T) {
		cfg := &config.Config{Definition: testutil.NewTestConfig(t).
			WithSecretStore("none", "noop", nil).
			Build()}

		stores, err := OpenStores(ctx, cfg, registry)
		require.NoError(t, err)
		defer func() { _ = stores.Close() }()
		assert.True(t, stores.Inline)
	})

	t.Run("unknown store type", func(t *testing.T) {
		cfg := &config.Config{Definition: testutil.NewTestConfig(t).
			WithSecretStore("main", "bitwarden", nil).
			Build()}

		_, err := OpenStores(ctx, cfg, registry)
		testutil.AssertErrorContains(t, err, "unknown secret store type")
	})
}
