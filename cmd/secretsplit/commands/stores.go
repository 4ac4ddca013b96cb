package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/secretsplit/internal/config"
	"github.com/systmms/secretsplit/internal/secretstores"
)

// NewStoresCommand creates the stores command group.
func NewStoresCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stores",
		Short: "Inspect and prepare configured secret stores",
	}

	cmd.AddCommand(
		newStoresListCommand(cfg),
		newStoresTypesCommand(),
		newStoresValidateCommand(cfg),
		newStoresMigrateCommand(cfg),
	)

	return cmd
}

func newStoresListCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured secret stores and their roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(context.Background(), cfg); err != nil {
				return err
			}

			roles := storeRoles(cfg)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "NAME\tTYPE\tROLE")
			for _, name := range cfg.SecretStoreNames() {
				storeCfg, _ := cfg.GetSecretStore(name)
				role := strings.Join(roles[name], ",")
				if role == "" {
					role = "-"
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", name, storeCfg.Type, role)
			}
			return w.Flush()
		},
	}
}

func newStoresTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List supported secret store types",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, t := range secretstores.NewRegistry().SupportedTypes() {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
}

func newStoresValidateCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [store...]",
		Short: "Check connectivity of secret stores",
		Long:  `Validate the named stores, or every configured store when none are named.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if err := loadConfig(ctx, cfg); err != nil {
				return err
			}

			names := args
			if len(names) == 0 {
				names = cfg.SecretStoreNames()
			}

			registry := secretstores.NewRegistry()
			var failed int
			for _, name := range names {
				if err := validateStore(ctx, cfg, registry, name); err != nil {
					failed++
					cfg.Logger.Error("%s: %v", name, err)
					continue
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", name)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d secret stores failed validation", failed, len(names))
			}
			return nil
		},
	}
}

func newStoresMigrateCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [store...]",
		Short: "Create the schema of stores that need one",
		Long: `Create the secrets table of sql stores. Stores without a schema are
skipped. Defaults to the long-lived store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if err := loadConfig(ctx, cfg); err != nil {
				return err
			}

			names := args
			if len(names) == 0 {
				name, _, err := cfg.LongLivedStore()
				if err != nil {
					return err
				}
				names = []string{name}
			}

			registry := secretstores.NewRegistry()
			for _, name := range names {
				storeCfg, err := cfg.GetSecretStore(name)
				if err != nil {
					return err
				}
				store, err := registry.Create(ctx, name, storeCfg)
				if err != nil {
					return err
				}

				supported, err := store.Migrate(ctx)
				_ = store.Close()
				if err != nil {
					return err
				}
				if !supported {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "- %s (%s): nothing to migrate\n", name, storeCfg.Type)
					continue
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ %s (%s): migrated\n", name, storeCfg.Type)
			}
			return nil
		},
	}
}

func validateStore(ctx context.Context, cfg *config.Config, registry *secretstores.Registry, name string) error {
	storeCfg, err := cfg.GetSecretStore(name)
	if err != nil {
		return err
	}
	store, err := registry.Create(ctx, name, storeCfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return store.Validate(ctx)
}

// storeRoles maps store names to the roles the configuration gives them.
func storeRoles(cfg *config.Config) map[string][]string {
	roles := make(map[string][]string)
	if name, _, err := cfg.LongLivedStore(); err == nil {
		roles[name] = append(roles[name], "long-lived")
	}
	if name, _, err := cfg.EphemeralStore(); err == nil {
		roles[name] = append(roles[name], "ephemeral")
	}
	return roles
}
