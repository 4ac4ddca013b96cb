package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/secretsplit/internal/config"
	"github.com/systmms/secretsplit/internal/secretstores"
)

func NewDoctorCommand(cfg *config.Config) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check secret store connectivity and configuration",
		Long: `Verify that secretsplit is properly configured.

This command checks:
- Configuration file validity and environment overrides
- The workspace id and the long-lived store selection
- Authentication and connectivity of every secret store`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg.Logger.Info("Checking secretsplit configuration...")
			if err := loadConfig(ctx, cfg); err != nil {
				cfg.Logger.Error("Configuration error: %v", err)
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg.Logger.Info("✓ Configuration loaded successfully")

			if _, err := cfg.WorkspaceID(); err != nil {
				cfg.Logger.Warn("%v", err)
			}
			if cfg.PersistenceDisabled() {
				cfg.Logger.Warn("Long-lived store is noop: secrets stay inline in stored configurations")
			}

			roles := storeRoles(cfg)
			if name, _, err := cfg.LongLivedStore(); err != nil {
				cfg.Logger.Warn("%v", err)
			} else {
				cfg.Logger.Debug("Long-lived store: %s", name)
			}

			registry := secretstores.NewRegistry()
			results := make([]StoreHealth, 0, len(cfg.SecretStoreNames()))
			for _, name := range cfg.SecretStoreNames() {
				storeCfg, _ := cfg.GetSecretStore(name)
				health := StoreHealth{
					Name:   name,
					Type:   storeCfg.Type,
					Roles:  roles[name],
					Status: "checking",
				}

				if err := validateStore(ctx, cfg, registry, name); err != nil {
					health.Status = "error"
					health.Error = err.Error()
					health.Suggestions = getSuggestions(storeCfg.Type, err)
				} else {
					health.Status = "healthy"
					health.Message = "Store is ready"
				}
				results = append(results, health)
			}

			out := cmd.OutOrStdout()
			displayHealthResults(out, results, verbose)

			healthy := 0
			for _, result := range results {
				if result.Status == "healthy" {
					healthy++
				}
			}

			_, _ = fmt.Fprintf(out, "\nSummary: %d/%d stores healthy\n", healthy, len(results))
			if healthy < len(results) {
				return fmt.Errorf("some secret stores are not healthy")
			}

			cfg.Logger.Info("✓ All systems operational!")
			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show suggestions for unhealthy stores")

	return cmd
}

// StoreHealth represents the health status of a secret store
type StoreHealth struct {
	Name        string
	Type        string
	Roles       []string
	Status      string // healthy, error, checking
	Error       string
	Message     string
	Suggestions []string
}

// displayHealthResults shows store health in a formatted table
func displayHealthResults(out io.Writer, results []StoreHealth, verbose bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "STORE\tTYPE\tROLE\tSTATUS\tMESSAGE\n")
	_, _ = fmt.Fprintf(w, "-----\t----\t----\t------\t-------\n")

	for _, result := range results {
		message := result.Message
		if result.Error != "" {
			message = result.Error
		}

		status := result.Status
		switch result.Status {
		case "healthy":
			status = "✓ " + status
		case "error":
			status = "✗ " + status
		default:
			status = "? " + status
		}

		role := strings.Join(result.Roles, ",")
		if role == "" {
			role = "-"
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			result.Name, result.Type, role, status, message)
	}
	_ = w.Flush()

	if !verbose {
		return
	}
	for _, result := range results {
		if result.Status == "error" && len(result.Suggestions) > 0 {
			_, _ = fmt.Fprintf(out, "\n%s (%s) suggestions:\n", result.Name, result.Type)
			for _, suggestion := range result.Suggestions {
				_, _ = fmt.Fprintf(out, "  • %s\n", suggestion)
			}
		}
	}
}

// getSuggestions returns helpful suggestions for store errors
func getSuggestions(storeType string, err error) []string {
	msg := strings.ToLower(err.Error())
	suggestions := make([]string, 0)

	switch storeType {
	case secretstores.TypeAWSSecretsManager, secretstores.TypeAWSSSM:
		suggestions = append(suggestions, "Configure AWS credentials via env vars, shared config or IAM roles")
		if strings.Contains(msg, "credential") || strings.Contains(msg, "auth") {
			suggestions = append(suggestions, "Or set AWS_ACCESS_KEY and AWS_SECRET_ACCESS_KEY")
			suggestions = append(suggestions, "Verify with: aws sts get-caller-identity")
		}
		if strings.Contains(msg, "region") {
			suggestions = append(suggestions, "Set AWS_REGION or 'region' in "+config.DefaultPath)
		}

	case secretstores.TypeGCPSecretManager:
		suggestions = append(suggestions, "Set 'credentials_json' or use application default credentials")
		suggestions = append(suggestions, "Run: gcloud auth application-default login")

	case secretstores.TypeVault:
		suggestions = append(suggestions, "Check 'address' and the token in VAULT_AUTH_TOKEN")
		if strings.Contains(msg, "permission") || strings.Contains(msg, "403") {
			suggestions = append(suggestions, "The token needs read and create capabilities on the secret prefix")
		}

	case secretstores.TypeAzureKeyVault:
		suggestions = append(suggestions, "Run: az login, or set AZURE_CLIENT_ID, AZURE_TENANT_ID and AZURE_CLIENT_SECRET")

	case secretstores.TypeSQL:
		suggestions = append(suggestions, "Check 'dsn' and that the database is reachable")
		suggestions = append(suggestions, "Create the table with: secretsplit stores migrate")

	case secretstores.TypeAkeyless:
		suggestions = append(suggestions, "Check 'access_id' and 'access_key', or set 'access_type' for cloud identity auth")
		if strings.Contains(msg, "401") || strings.Contains(msg, "authentication") {
			suggestions = append(suggestions, "Verify the access role is associated with the auth method")
		}

	case secretstores.TypeKeyring:
		suggestions = append(suggestions, "A running OS keychain (Secret Service, Keychain or Credential Manager) is required")

	default:
		suggestions = append(suggestions, "Verify the store configuration in "+config.DefaultPath)
	}

	return suggestions
}
