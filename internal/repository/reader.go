package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/systmms/secretsplit/internal/logging"
	"github.com/systmms/secretsplit/pkg/secrets"
	"github.com/systmms/secretsplit/pkg/secretstore"
)

// Reader loads persisted configurations and restores their secrets.
type Reader struct {
	configs  ConfigStore
	stores   *Stores
	logger   *logging.Logger
	hydrator secrets.Hydrator
}

// NewReader creates a Reader. A nil logger discards output.
func NewReader(configs ConfigStore, stores *Stores, logger *logging.Logger) *Reader {
	if logger == nil {
		logger = logging.Discard()
	}

	var hydrator secrets.Hydrator = secrets.NoOpHydrator{}
	if !stores.Inline {
		hydrator = secrets.NewRealHydrator(stores.LongLived)
	}

	return &Reader{configs: configs, stores: stores, logger: logger, hydrator: hydrator}
}

// GetConnectionWithSecrets returns a connection with its full
// configuration. A reference whose secret is absent fails with
// *secrets.MissingSecretError.
func (r *Reader) GetConnectionWithSecrets(ctx context.Context, kind Kind, id uuid.UUID) (*Connection, error) {
	conn, err := r.configs.GetConnection(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	full, err := r.hydrator.Hydrate(ctx, conn.Configuration)
	if err != nil {
		return nil, fmt.Errorf("failed to hydrate %s %s: %w", kind, id, err)
	}
	conn.Configuration = full
	return conn, nil
}

// GetConnectionMasked returns a connection with every secret masked, for
// display. Secrets missing from the store are shown masked as well instead
// of failing the read.
func (r *Reader) GetConnectionMasked(ctx context.Context, kind Kind, id uuid.UUID, schema any) (*Connection, error) {
	conn, err := r.configs.GetConnection(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	if !r.stores.Inline {
		lenient := secretstore.ReadFunc(func(ctx context.Context, coord secretstore.Coordinate) (string, bool, error) {
			payload, found, err := r.stores.LongLived.Read(ctx, coord)
			if err != nil {
				return "", false, err
			}
			if !found {
				r.logger.Warn("Secret %s of %s %s is missing from %s", coord, kind, id, r.stores.LongLived.Name())
				return secrets.SecretsMask, true, nil
			}
			return payload, true, nil
		})

		full, err := secrets.Combine(ctx, conn.Configuration, lenient)
		if err != nil {
			return nil, fmt.Errorf("failed to hydrate %s %s: %w", kind, id, err)
		}
		conn.Configuration = full
	}

	conn.Configuration = secrets.MaskSecrets(conn.Configuration, schema)
	return conn, nil
}

// GetServiceAccount returns a workspace's service account with its JSON
// credential and HMAC key restored. A credential stored as a JSON object is
// returned decoded.
func (r *Reader) GetServiceAccount(ctx context.Context, workspaceID uuid.UUID) (*ServiceAccount, error) {
	sa, err := r.configs.GetServiceAccount(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if r.stores.Inline {
		return sa, nil
	}

	if sa.JSONCredential != nil {
		sa.JSONCredential, err = r.hydrator.HydrateSecretCoordinate(ctx, sa.JSONCredential)
		if err != nil {
			return nil, fmt.Errorf("service account json credential: %w", err)
		}
	}
	if sa.HMACKey != nil {
		sa.HMACKey, err = r.hydrator.HydrateSecretCoordinate(ctx, sa.HMACKey)
		if err != nil {
			return nil, fmt.Errorf("service account hmac key: %w", err)
		}
	}
	return sa, nil
}
