package repository

import (
	"context"
	"errors"

	"github.com/systmms/secretsplit/internal/config"
	"github.com/systmms/secretsplit/internal/secretstores"
	"github.com/systmms/secretsplit/pkg/secretstore"
)

// Stores bundles the secret stores a repository uses.
type Stores struct {
	// LongLived holds connection and service account secrets.
	LongLived secretstore.Persistence

	// Ephemeral holds secrets of one-off configurations.
	Ephemeral secretstore.Persistence

	// Inline keeps secrets inside persisted configurations. Set when secret
	// persistence is disabled.
	Inline bool
}

// OpenStores builds the long-lived and ephemeral stores selected by cfg.
func OpenStores(ctx context.Context, cfg *config.Config, registry *secretstores.Registry) (*Stores, error) {
	longName, longCfg, err := cfg.LongLivedStore()
	if err != nil {
		return nil, err
	}
	ephName, ephCfg, err := cfg.EphemeralStore()
	if err != nil {
		return nil, err
	}

	longLived, err := registry.Create(ctx, longName, longCfg)
	if err != nil {
		return nil, err
	}

	var ephemeral secretstore.Persistence = longLived
	if ephName != longName {
		eph, err := registry.Create(ctx, ephName, ephCfg)
		if err != nil {
			_ = longLived.Close()
			return nil, err
		}
		ephemeral = eph
	}

	if cfg.Logger != nil {
		cfg.Logger.Debug("Using secret store %s (%s) for connections and %s (%s) for one-off configurations",
			longName, longCfg.Type, ephName, ephCfg.Type)
	}

	return &Stores{
		LongLived: longLived,
		Ephemeral: ephemeral,
		Inline:    longCfg.Type == secretstores.TypeNoop,
	}, nil
}

// Close closes both stores.
func (s *Stores) Close() error {
	errs := []error{s.LongLived.Close()}
	if s.Ephemeral != s.LongLived {
		errs = append(errs, s.Ephemeral.Close())
	}
	return errors.Join(errs...)
}
