package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/systmms/secretsplit/internal/config"
	dserrors "github.com/systmms/secretsplit/internal/errors"
	"github.com/systmms/secretsplit/internal/repository"
)

// NewConnectionsCommand creates the connections command group.
func NewConnectionsCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connections",
		Short: "Store and read source and destination configurations",
		Long: `Connections are persisted as partial configurations under configDir.
Their secrets live in the long-lived secret store.`,
	}

	cmd.AddCommand(
		newConnectionsWriteCommand(cfg),
		newConnectionsGetCommand(cfg),
		newConnectionsListCommand(cfg),
	)

	return cmd
}

func newConnectionsWriteCommand(cfg *config.Config) *cobra.Command {
	var (
		kind       string
		id         string
		name       string
		schemaFile string
		tombstone  bool
	)

	cmd := &cobra.Command{
		Use:   "write [config.json]",
		Short: "Validate, split and persist a connection",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			connKind, err := repository.ParseKind(kind)
			if err != nil {
				return err
			}
			connID := uuid.New()
			if id != "" {
				if connID, err = parseConnectionID(id); err != nil {
					return err
				}
			}

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

			stored, err := repository.NewWriter(configs, stores, cfg.Logger).WriteConnection(ctx, &repository.Connection{
				ID:            connID,
				WorkspaceID:   workspaceID,
				Kind:          connKind,
				Name:          name,
				Tombstone:     tombstone,
				Configuration: doc,
			}, schema)
			if err != nil {
				return redactError(err, doc, schema)
			}
			return printJSON(cmd, stored)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(repository.KindSource), "Connection kind (source or destination)")
	cmd.Flags().StringVar(&id, "id", "", "Connection id (generated when omitted)")
	cmd.Flags().StringVar(&name, "name", "", "Connection name")
	cmd.Flags().StringVar(&schemaFile, "schema", "", "Connector JSON schema")
	cmd.Flags().BoolVar(&tombstone, "tombstone", false, "Mark the connection deleted")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}

func newConnectionsGetCommand(cfg *config.Config) *cobra.Command {
	var (
		kind       string
		id         string
		schemaFile string
		reveal     bool
	)

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print a connection, masked unless --reveal is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if !reveal && schemaFile == "" {
				return dserrors.UserError{
					Message:    "--schema is required to mask a connection",
					Suggestion: "Pass the connector schema with --schema, or --reveal to print secrets in clear text",
				}
			}

			connKind, err := repository.ParseKind(kind)
			if err != nil {
				return err
			}
			connID, err := parseConnectionID(id)
			if err != nil {
				return err
			}

			stores, configs, err := openRepository(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = stores.Close() }()

			reader := repository.NewReader(configs, stores, cfg.Logger)

			var conn *repository.Connection
			if reveal {
				conn, err = reader.GetConnectionWithSecrets(ctx, connKind, connID)
			} else {
				var schema any
				if schema, err = readJSONInput(cmd, schemaFile); err != nil {
					return err
				}
				conn, err = reader.GetConnectionMasked(ctx, connKind, connID, schema)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, conn)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(repository.KindSource), "Connection kind (source or destination)")
	cmd.Flags().StringVar(&id, "id", "", "Connection id")
	cmd.Flags().StringVar(&schemaFile, "schema", "", "Connector JSON schema, used for masking")
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print secrets in clear text")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newConnectionsListCommand(cfg *config.Config) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List connections of one kind",
		RunE: func(cmd *cobra.Command, args []string) error {
			connKind, err := repository.ParseKind(kind)
			if err != nil {
				return err
			}
			if err := loadConfig(context.Background(), cfg); err != nil {
				return err
			}

			conns, err := repository.NewFileConfigStore(cfg.ConfigDir()).ListConnections(context.Background(), connKind)
			if err != nil {
				return err
			}
			if len(conns) == 0 {
				cfg.Logger.Info("No %s connections in %s", connKind, cfg.ConfigDir())
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTATUS")
			for _, c := range conns {
				status := "active"
				if c.Tombstone {
					status = "deleted"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Name, status)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(repository.KindSource), "Connection kind (source or destination)")

	return cmd
}

func parseConnectionID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, dserrors.UserError{
			Message:    fmt.Sprintf("Invalid connection id %q", id),
			Suggestion: "Connection ids are UUIDs; list them with 'secretsplit connections list'",
			Err:        err,
		}
	}
	return parsed, nil
}
