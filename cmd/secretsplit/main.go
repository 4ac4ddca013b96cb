package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/systmms/secretsplit/cmd/secretsplit/commands"
	"github.com/systmms/secretsplit/internal/config"
	dserrors "github.com/systmms/secretsplit/internal/errors"
	"github.com/systmms/secretsplit/internal/logging"
	"github.com/systmms/secretsplit/internal/secure"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	err := run()
	secure.Purge()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", dserrors.SimplifyError(err))
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		configFile  string
		noColor     bool
		debug       bool
		metricsFile string
	)

	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "secretsplit",
		Short: "Split connector configurations into secret-free configs and stored secrets",
		Long: `secretsplit separates the secret fields of connector configurations,
as marked by their JSON schema, from the rest of the configuration. Secrets
are written to a secret store under versioned coordinates and replaced by
references; hydration restores them.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Path = configFile
			cfg.Logger = logging.New(debug, noColor)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if metricsFile == "" {
				return nil
			}
			return prometheus.WriteToTextfile(metricsFile, prometheus.DefaultGatherer)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write store operation metrics to this file in Prometheus text format")

	rootCmd.AddCommand(
		commands.NewMaskCommand(cfg),
		commands.NewPathsCommand(cfg),
		commands.NewSplitCommand(cfg),
		commands.NewHydrateCommand(cfg),
		commands.NewConnectionsCommand(cfg),
		commands.NewStoresCommand(cfg),
		commands.NewDoctorCommand(cfg),
	)

	return rootCmd.Execute()
}
