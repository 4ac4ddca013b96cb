package secretstores

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"github.com/systmms/secretsplit/pkg/secretstore"
)

// AzureKeyVaultAPI is the subset of *azsecrets.Client the store uses.
type AzureKeyVaultAPI interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
	SetSecret(ctx context.Context, name string, parameters azsecrets.SetSecretParameters, options *azsecrets.SetSecretOptions) (azsecrets.SetSecretResponse, error)
}

// AzureKeyVaultConfig holds azure.keyvault settings.
type AzureKeyVaultConfig struct {
	VaultURL           string `mapstructure:"vault_url"`
	TenantID           string `mapstructure:"tenant_id"`
	ClientID           string `mapstructure:"client_id"`
	ClientSecret       string `mapstructure:"client_secret"`
	UseManagedIdentity bool   `mapstructure:"use_managed_identity"`
	UserAssignedID     string `mapstructure:"user_assigned_identity_id"`
}

// AzureKeyVaultStore stores each coordinate as a Key Vault secret. Key Vault
// names allow only [0-9a-zA-Z-], so coordinates are encoded with
// KeyVaultSecretName.
type AzureKeyVaultStore struct {
	name   string
	client AzureKeyVaultAPI
}

// AzureOption configures an AzureKeyVaultStore.
type AzureOption func(*AzureKeyVaultStore)

// WithKeyVaultClient sets a custom Key Vault client (for testing)
func WithKeyVaultClient(client AzureKeyVaultAPI) AzureOption {
	return func(s *AzureKeyVaultStore) {
		s.client = client
	}
}

func newAzureKeyVaultFactory(_ context.Context, name string, settings map[string]interface{}) (secretstore.Persistence, error) {
	var cfg AzureKeyVaultConfig
	if err := decodeSettings(name, settings, &cfg); err != nil {
		return nil, err
	}
	return NewAzureKeyVaultStore(name, cfg)
}

// NewAzureKeyVaultStore creates the store.
func NewAzureKeyVaultStore(name string, cfg AzureKeyVaultConfig, opts ...AzureOption) (*AzureKeyVaultStore, error) {
	s := &AzureKeyVaultStore{name: name}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		if err := requireSetting(name, "vault_url", cfg.VaultURL); err != nil {
			return nil, err
		}
		client, err := createAzureKeyVaultClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Key Vault client: %w", err)
		}
		s.client = client
	}

	return s, nil
}

func createAzureKeyVaultClient(cfg AzureKeyVaultConfig) (*azsecrets.Client, error) {
	var cred azcore.TokenCredential
	var err error

	switch {
	case cfg.UseManagedIdentity:
		var opts *azidentity.ManagedIdentityCredentialOptions
		if cfg.UserAssignedID != "" {
			opts = &azidentity.ManagedIdentityCredentialOptions{ID: azidentity.ClientID(cfg.UserAssignedID)}
		}
		cred, err = azidentity.NewManagedIdentityCredential(opts)
	case cfg.ClientSecret != "":
		cred, err = azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, nil)
	default:
		cred, err = azidentity.NewDefaultAzureCredential(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	return azsecrets.NewClient(cfg.VaultURL, cred, nil)
}

// keyVaultMaxNameLength is Key Vault's limit on secret names.
const keyVaultMaxNameLength = 127

// KeyVaultSecretName encodes a coordinate into Key Vault's name charset.
// "-" becomes "-1" and "_" becomes "-0", which keeps the mapping injective.
func KeyVaultSecretName(coord secretstore.Coordinate) string {
	var b strings.Builder
	for _, r := range coord.Full() {
		switch r {
		case '-':
			b.WriteString("-1")
		case '_':
			b.WriteString("-0")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (s *AzureKeyVaultStore) secretName(coord secretstore.Coordinate) (string, error) {
	name := KeyVaultSecretName(coord)
	if len(name) > keyVaultMaxNameLength {
		return "", fmt.Errorf("encoded secret name is %d characters, Key Vault allows %d", len(name), keyVaultMaxNameLength)
	}
	return name, nil
}

// Name returns the store name.
func (s *AzureKeyVaultStore) Name() string {
	return s.name
}

// Read implements secretstore.Reader.
func (s *AzureKeyVaultStore) Read(ctx context.Context, coord secretstore.Coordinate) (string, bool, error) {
	name, err := s.secretName(coord)
	if err != nil {
		return "", false, secretstore.NewStoreError(s.name, "read", coord, err)
	}

	resp, err := s.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		if isAzureNotFound(err) {
			return "", false, nil
		}
		return "", false, secretstore.NewStoreError(s.name, "read", coord, err)
	}
	if resp.Value == nil {
		return "", true, nil
	}
	return *resp.Value, true, nil
}

// Write implements secretstore.Writer.
func (s *AzureKeyVaultStore) Write(ctx context.Context, coord secretstore.Coordinate, payload string) error {
	name, err := s.secretName(coord)
	if err != nil {
		return secretstore.NewStoreError(s.name, "write", coord, err)
	}

	_, err = s.client.SetSecret(ctx, name, azsecrets.SetSecretParameters{Value: &payload}, nil)
	if err != nil {
		return secretstore.NewStoreError(s.name, "write", coord, err)
	}
	return nil
}

// Validate lists the first page of secret properties when talking to a real
// vault.
func (s *AzureKeyVaultStore) Validate(ctx context.Context) error {
	realClient, ok := s.client.(*azsecrets.Client)
	if !ok {
		return nil
	}
	pager := realClient.NewListSecretPropertiesPager(nil)
	if _, err := pager.NextPage(ctx); err != nil {
		return fmt.Errorf("failed to list Key Vault secrets: %w", err)
	}
	return nil
}

// Close is a no-op.
func (s *AzureKeyVaultStore) Close() error {
	return nil
}

func isAzureNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}
