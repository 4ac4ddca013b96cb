package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/systmms/secretsplit/internal/config"
	"github.com/systmms/secretsplit/internal/repository"
	"github.com/systmms/secretsplit/pkg/secrets"
)

// NewSplitCommand creates the split command.
func NewSplitCommand(cfg *config.Config) *cobra.Command {
	var (
		schemaFile string
		longLived  bool
	)

	cmd := &cobra.Command{
		Use:   "split [config.json]",
		Short: "Split secrets out of a configuration",
		Long: `Write every secret field of a full configuration to a secret store and
print the partial configuration, with {"_secret": "<coordinate>"} references
in place of the secrets.

Secrets go to the ephemeral store unless --long-lived is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			schema, err := readJSONInput(cmd, schemaFile)
			if err != nil {
				return err
			}
			doc, err := readJSONInput(cmd, inputArg(args))
			if err != nil {
				return err
			}

			stores, configs, err := openRepository(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = stores.Close() }()

			workspaceID, err := cfg.WorkspaceID()
			if err != nil {
				return err
			}

			target := *stores
			if longLived {
				target.Ephemeral = target.LongLived
			}

			partial, err := repository.NewWriter(configs, &target, cfg.Logger).
				SplitEphemeral(ctx, workspaceID, doc, schema)
			if err != nil {
				return redactError(err, doc, schema)
			}
			return printJSON(cmd, partial)
		},
	}

	cmd.Flags().StringVar(&schemaFile, "schema", "", "Connector JSON schema")
	cmd.Flags().BoolVar(&longLived, "long-lived", false, "Write secrets to the long-lived store")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}

// NewHydrateCommand creates the hydrate command.
func NewHydrateCommand(cfg *config.Config) *cobra.Command {
	var ephemeral bool

	cmd := &cobra.Command{
		Use:   "hydrate [partial.json]",
		Short: "Restore the secrets of a partial configuration",
		Long: `Replace every {"_secret": "<coordinate>"} reference in a partial
configuration with the secret it points to and print the full configuration.

The output contains secrets in clear text.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			doc, err := readJSONInput(cmd, inputArg(args))
			if err != nil {
				return err
			}

			stores, _, err := openRepository(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = stores.Close() }()

			var hydrator secrets.Hydrator = secrets.NoOpHydrator{}
			switch {
			case ephemeral:
				hydrator = secrets.NewRealHydrator(stores.Ephemeral)
			case !stores.Inline:
				hydrator = secrets.NewRealHydrator(stores.LongLived)
			}

			full, err := hydrator.Hydrate(ctx, doc)
			if err != nil {
				return err
			}
			return printJSON(cmd, full)
		},
	}

	cmd.Flags().BoolVar(&ephemeral, "ephemeral", false, "Read secrets from the ephemeral store")

	return cmd
}
