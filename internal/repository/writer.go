package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/systmms/secretsplit/internal/logging"
	"github.com/systmms/secretsplit/pkg/secrets"
	"github.com/systmms/secretsplit/pkg/secretstore"
)

// serviceAccountFieldSchema marks the single "value" field of a one-field
// wrapper as secret, so service account credentials go through the same
// split path as connection secrets.
var serviceAccountFieldSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"value": map[string]any{secrets.SecretAnnotation: true},
	},
}

// Writer persists configurations, writing their secrets first.
type Writer struct {
	configs ConfigStore
	stores  *Stores
	logger  *logging.Logger
	gen     secrets.IDGenerator

	// Split updates of one coordinate base must not interleave.
	mu sync.Mutex
}

// NewWriter creates a Writer. A nil logger discards output.
func NewWriter(configs ConfigStore, stores *Stores, logger *logging.Logger) *Writer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Writer{configs: configs, stores: stores, logger: logger, gen: uuid.New}
}

// WithIDGenerator replaces the secret id source.
func (w *Writer) WithIDGenerator(gen secrets.IDGenerator) *Writer {
	w.gen = gen
	return w
}

// WriteConnection validates conn's full configuration against schema,
// splits it, writes the secrets to the long-lived store and persists the
// partial configuration. Tombstoned connections skip validation.
//
// When a partial configuration already exists, unchanged secrets keep their
// coordinates and changed ones move to the next version of the same base.
// The persisted connection is returned.
func (w *Writer) WriteConnection(ctx context.Context, conn *Connection, schema any) (*Connection, error) {
	if !conn.Tombstone {
		if err := secrets.Validate(conn.Configuration, schema); err != nil {
			return nil, fmt.Errorf("%s %s: %w", conn.Kind, conn.ID, err)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	stored := *conn
	if w.stores.Inline {
		w.logger.Debug("Secret persistence disabled, storing %s %s with inline secrets", conn.Kind, conn.ID)
		if err := w.configs.PutConnection(ctx, &stored); err != nil {
			return nil, err
		}
		return &stored, nil
	}

	existing, err := w.configs.GetConnection(ctx, conn.Kind, conn.ID)
	if err != nil && !errors.Is(err, ErrConnectionNotFound) {
		return nil, err
	}

	var split secrets.SplitSecretConfig
	if existing != nil {
		split, err = secrets.SplitUpdate(ctx, w.gen, conn.WorkspaceID,
			existing.Configuration, conn.Configuration, schema, w.stores.LongLived)
	} else {
		split, err = secrets.Split(w.gen, conn.WorkspaceID, conn.Configuration, schema)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to split %s %s: %w", conn.Kind, conn.ID, err)
	}

	if err := secrets.WriteSecrets(ctx, w.stores.LongLived, split.Secrets); err != nil {
		return nil, err
	}
	for _, coord := range split.Secrets.Coordinates() {
		w.logger.Debug("Wrote secret %s to %s", coord, w.stores.LongLived.Name())
	}

	stored.Configuration = split.PartialConfig
	if err := w.configs.PutConnection(ctx, &stored); err != nil {
		return nil, err
	}

	w.logger.Info("Saved %s %s (%d secrets written)", conn.Kind, conn.ID, len(split.Secrets))
	return &stored, nil
}

// SplitEphemeral splits a one-off configuration into the ephemeral store
// and returns the partial configuration. Nothing is persisted besides the
// secrets.
func (w *Writer) SplitEphemeral(ctx context.Context, workspaceID uuid.UUID, fullConfig, schema any) (any, error) {
	if w.stores.Inline {
		return fullConfig, nil
	}

	split, err := secrets.Split(w.gen, workspaceID, fullConfig, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to split configuration: %w", err)
	}
	if err := secrets.WriteSecrets(ctx, w.stores.Ephemeral, split.Secrets); err != nil {
		return nil, err
	}

	w.logger.Debug("Wrote %d secrets to %s", len(split.Secrets), w.stores.Ephemeral.Name())
	return split.PartialConfig, nil
}

// WriteServiceAccount stores sa's JSON credential and HMAC key under the
// service_account_json_ and service_account_hmac_ coordinate bases and
// persists the service account with references in their place.
func (w *Writer) WriteServiceAccount(ctx context.Context, sa *ServiceAccount) (*ServiceAccount, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	stored := *sa
	if w.stores.Inline {
		if err := w.configs.PutServiceAccount(ctx, &stored); err != nil {
			return nil, err
		}
		return &stored, nil
	}

	existing, err := w.configs.GetServiceAccount(ctx, sa.WorkspaceID)
	if err != nil && !errors.Is(err, ErrServiceAccountNotFound) {
		return nil, err
	}

	var oldJSON, oldHMAC any
	if existing != nil {
		oldJSON, oldHMAC = existing.JSONCredential, existing.HMACKey
	}

	stored.JSONCredential, err = w.splitServiceAccountField(ctx, secretstore.ServiceAccountJSONPrefix,
		sa.WorkspaceID, oldJSON, sa.JSONCredential)
	if err != nil {
		return nil, fmt.Errorf("service account json credential: %w", err)
	}

	stored.HMACKey, err = w.splitServiceAccountField(ctx, secretstore.ServiceAccountHMACPrefix,
		sa.WorkspaceID, oldHMAC, sa.HMACKey)
	if err != nil {
		return nil, fmt.Errorf("service account hmac key: %w", err)
	}

	if err := w.configs.PutServiceAccount(ctx, &stored); err != nil {
		return nil, err
	}

	w.logger.Info("Saved service account for workspace %s", sa.WorkspaceID)
	return &stored, nil
}

func (w *Writer) splitServiceAccountField(ctx context.Context, prefix string, workspaceID uuid.UUID, old, value any) (any, error) {
	var oldWrapper any
	if old != nil {
		oldWrapper = map[string]any{"value": old}
	}

	split, err := secrets.SplitUpdateWithPrefix(ctx, w.gen, prefix, workspaceID,
		oldWrapper, map[string]any{"value": value}, serviceAccountFieldSchema, w.stores.LongLived)
	if err != nil {
		return nil, err
	}
	if err := secrets.WriteSecrets(ctx, w.stores.LongLived, split.Secrets); err != nil {
		return nil, err
	}

	partial, ok := split.PartialConfig.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected partial configuration %T", split.PartialConfig)
	}
	return partial["value"], nil
}
