package fakes

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"github.com/systmms/secretsplit/internal/secretstores"
)

var keyVaultName = regexp.MustCompile(`^[0-9a-zA-Z-]{1,127}$`)

// FakeAzureKeyVaultClient is an in-memory implementation of
// secretstores.AzureKeyVaultAPI
type FakeAzureKeyVaultClient struct {
	mu sync.Mutex

	// Secrets maps secret names to their versions, oldest first
	Secrets map[string][]*AzureSecretData
	// Errors maps secret names to errors to return
	Errors map[string]error
}

// AzureSecretData holds one version of a fake Key Vault secret
type AzureSecretData struct {
	Value      *string
	Version    string
	Attributes *azsecrets.SecretAttributes
}

// NewFakeAzureKeyVaultClient creates a new fake Azure Key Vault client
func NewFakeAzureKeyVaultClient() *FakeAzureKeyVaultClient {
	return &FakeAzureKeyVaultClient{
		Secrets: make(map[string][]*AzureSecretData),
		Errors:  make(map[string]error),
	}
}

// AddError configures the fake to return an error for a specific secret
func (f *FakeAzureKeyVaultClient) AddError(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[name] = err
}

// GetSecret returns the requested version, or the latest when version is empty
func (f *FakeAzureKeyVaultClient) GetSecret(_ context.Context, name string, version string, _ *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, exists := f.Errors[name]; exists {
		return azsecrets.GetSecretResponse{}, err
	}

	versions := f.Secrets[name]
	if len(versions) == 0 {
		return azsecrets.GetSecretResponse{}, AzureNotFoundError(name)
	}

	data := versions[len(versions)-1]
	if version != "" {
		data = nil
		for _, v := range versions {
			if v.Version == version {
				data = v
			}
		}
		if data == nil {
			return azsecrets.GetSecretResponse{}, AzureNotFoundError(name)
		}
	}

	id := azsecrets.ID(fmt.Sprintf("https://test-vault.vault.azure.net/secrets/%s/%s", name, data.Version))
	return azsecrets.GetSecretResponse{
		Secret: azsecrets.Secret{
			ID:         &id,
			Value:      data.Value,
			Attributes: data.Attributes,
		},
	}, nil
}

// SetSecret adds a new version of a secret. Names outside Key Vault's
// charset are rejected as the service does.
func (f *FakeAzureKeyVaultClient) SetSecret(_ context.Context, name string, parameters azsecrets.SetSecretParameters, _ *azsecrets.SetSecretOptions) (azsecrets.SetSecretResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, exists := f.Errors[name]; exists {
		return azsecrets.SetSecretResponse{}, err
	}
	if !keyVaultName.MatchString(name) {
		return azsecrets.SetSecretResponse{}, &azcore.ResponseError{StatusCode: 400, ErrorCode: "BadParameter"}
	}

	now := time.Now()
	data := &AzureSecretData{
		Value:   to.Ptr(*parameters.Value),
		Version: fmt.Sprintf("%032d", len(f.Secrets[name])+1),
		Attributes: &azsecrets.SecretAttributes{
			Enabled: to.Ptr(true),
			Created: &now,
			Updated: &now,
		},
	}
	f.Secrets[name] = append(f.Secrets[name], data)

	id := azsecrets.ID(fmt.Sprintf("https://test-vault.vault.azure.net/secrets/%s/%s", name, data.Version))
	return azsecrets.SetSecretResponse{
		Secret: azsecrets.Secret{ID: &id, Value: data.Value, Attributes: data.Attributes},
	}, nil
}

// AzureNotFoundError creates an Azure not found error
func AzureNotFoundError(secretName string) error {
	return &azcore.ResponseError{
		StatusCode: 404,
		ErrorCode:  "SecretNotFound",
	}
}

// AzureForbiddenError creates an Azure forbidden error
func AzureForbiddenError() error {
	return &azcore.ResponseError{
		StatusCode: 403,
		ErrorCode:  "Forbidden",
	}
}

var _ secretstores.AzureKeyVaultAPI = (*FakeAzureKeyVaultClient)(nil)
