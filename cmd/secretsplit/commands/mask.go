package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/secretsplit/internal/config"
	"github.com/systmms/secretsplit/pkg/secrets"
)

// NewMaskCommand creates the mask command.
func NewMaskCommand(cfg *config.Config) *cobra.Command {
	var schemaFile string

	cmd := &cobra.Command{
		Use:   "mask [config.json]",
		Short: "Print a configuration with its secrets masked",
		Long: `Replace every field the connector schema marks with airbyte_secret
by ` + secrets.SecretsMask + ` and print the result.

The configuration is read from the given file, or from stdin when omitted.
No secret store is contacted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := readJSONInput(cmd, schemaFile)
			if err != nil {
				return err
			}
			doc, err := readJSONInput(cmd, inputArg(args))
			if err != nil {
				return err
			}

			cfg.Logger.Debug("Masking %d secret paths", len(secrets.SecretPaths(schema)))
			return printJSON(cmd, secrets.MaskSecrets(doc, schema))
		},
	}

	cmd.Flags().StringVar(&schemaFile, "schema", "", "Connector JSON schema")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}

// NewPathsCommand creates the paths command.
func NewPathsCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "paths [schema.json]",
		Short: "List the JSON paths a schema marks as secret",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := readJSONInput(cmd, inputArg(args))
			if err != nil {
				return err
			}

			paths := secrets.SecretPaths(schema)
			if len(paths) == 0 {
				cfg.Logger.Warn("Schema declares no secret fields")
				return nil
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}
