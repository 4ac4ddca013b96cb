package secretstores

import (
	"context"
	"errors"
	"fmt"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/systmms/secretsplit/pkg/secretstore"
)

// SecretManagerAPI is the subset of the Secret Manager client the store uses.
type SecretManagerAPI interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error)
	CreateSecret(ctx context.Context, req *secretmanagerpb.CreateSecretRequest) (*secretmanagerpb.Secret, error)
	AddSecretVersion(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest) (*secretmanagerpb.SecretVersion, error)
	ListSecrets(ctx context.Context, req *secretmanagerpb.ListSecretsRequest) SecretIterator
	Close() error
}

// SecretIterator iterates over listed secrets.
type SecretIterator interface {
	Next() (*secretmanagerpb.Secret, error)
}

// GCPSecretManagerConfig holds gcp.secretmanager settings.
type GCPSecretManagerConfig struct {
	ProjectID       string            `mapstructure:"project_id"`
	CredentialsJSON string            `mapstructure:"credentials_json"`
	CredentialsFile string            `mapstructure:"credentials_file"`
	TTL             time.Duration     `mapstructure:"ttl"`
	Labels          map[string]string `mapstructure:"labels"`
}

// GCPSecretManagerStore stores each coordinate as its own Secret Manager
// secret. Writes create the secret on first use and add a version; reads
// access the latest version.
type GCPSecretManagerStore struct {
	name   string
	config GCPSecretManagerConfig
	client SecretManagerAPI
}

// GCPOption configures a GCPSecretManagerStore.
type GCPOption func(*GCPSecretManagerStore)

// WithSecretManagerClient sets a custom Secret Manager client (for testing)
func WithSecretManagerClient(client SecretManagerAPI) GCPOption {
	return func(s *GCPSecretManagerStore) {
		s.client = client
	}
}

func newGCPSecretManagerFactory(ctx context.Context, name string, settings map[string]interface{}) (secretstore.Persistence, error) {
	var cfg GCPSecretManagerConfig
	if err := decodeSettings(name, settings, &cfg); err != nil {
		return nil, err
	}
	return NewGCPSecretManagerStore(ctx, name, cfg)
}

// NewGCPSecretManagerStore creates the store. Without WithSecretManagerClient
// a real client is built from the configured credentials, falling back to
// application default credentials.
func NewGCPSecretManagerStore(ctx context.Context, name string, cfg GCPSecretManagerConfig, opts ...GCPOption) (*GCPSecretManagerStore, error) {
	if err := requireSetting(name, "project_id", cfg.ProjectID); err != nil {
		return nil, err
	}

	s := &GCPSecretManagerStore{name: name, config: cfg}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		var clientOptions []option.ClientOption
		switch {
		case cfg.CredentialsJSON != "":
			clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
		case cfg.CredentialsFile != "":
			clientOptions = append(clientOptions, option.WithCredentialsFile(cfg.CredentialsFile))
		}

		client, err := secretmanager.NewClient(ctx, clientOptions...)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCP Secret Manager client: %w", err)
		}
		s.client = &sdkSecretManager{client: client}
	}

	return s, nil
}

// Name returns the store name.
func (s *GCPSecretManagerStore) Name() string {
	return s.name
}

func (s *GCPSecretManagerStore) secretName(coord secretstore.Coordinate) string {
	return fmt.Sprintf("projects/%s/secrets/%s", s.config.ProjectID, coord.Full())
}

// Read implements secretstore.Reader.
func (s *GCPSecretManagerStore) Read(ctx context.Context, coord secretstore.Coordinate) (string, bool, error) {
	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: s.secretName(coord) + "/versions/latest",
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", false, nil
		}
		return "", false, secretstore.NewStoreError(s.name, "read", coord, err)
	}

	if resp.GetPayload() == nil {
		return "", true, nil
	}
	return string(resp.GetPayload().GetData()), true, nil
}

// Write implements secretstore.Writer.
func (s *GCPSecretManagerStore) Write(ctx context.Context, coord secretstore.Coordinate, payload string) error {
	secret := &secretmanagerpb.Secret{
		Replication: &secretmanagerpb.Replication{
			Replication: &secretmanagerpb.Replication_Automatic_{
				Automatic: &secretmanagerpb.Replication_Automatic{},
			},
		},
		Labels: s.config.Labels,
	}
	if s.config.TTL > 0 {
		secret.Expiration = &secretmanagerpb.Secret_Ttl{Ttl: durationpb.New(s.config.TTL)}
	}

	_, err := s.client.CreateSecret(ctx, &secretmanagerpb.CreateSecretRequest{
		Parent:   "projects/" + s.config.ProjectID,
		SecretId: coord.Full(),
		Secret:   secret,
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return secretstore.NewStoreError(s.name, "write", coord, err)
	}

	_, err = s.client.AddSecretVersion(ctx, &secretmanagerpb.AddSecretVersionRequest{
		Parent:  s.secretName(coord),
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(payload)},
	})
	if err != nil {
		return secretstore.NewStoreError(s.name, "write", coord, err)
	}
	return nil
}

// Validate lists at most one secret in the project.
func (s *GCPSecretManagerStore) Validate(ctx context.Context) error {
	it := s.client.ListSecrets(ctx, &secretmanagerpb.ListSecretsRequest{
		Parent:   "projects/" + s.config.ProjectID,
		PageSize: 1,
	})
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return err
	}
	return nil
}

// Close closes the client.
func (s *GCPSecretManagerStore) Close() error {
	return s.client.Close()
}

// sdkSecretManager adapts *secretmanager.Client to SecretManagerAPI.
type sdkSecretManager struct {
	client *secretmanager.Client
}

func (c *sdkSecretManager) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	return c.client.AccessSecretVersion(ctx, req)
}

func (c *sdkSecretManager) CreateSecret(ctx context.Context, req *secretmanagerpb.CreateSecretRequest) (*secretmanagerpb.Secret, error) {
	return c.client.CreateSecret(ctx, req)
}

func (c *sdkSecretManager) AddSecretVersion(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest) (*secretmanagerpb.SecretVersion, error) {
	return c.client.AddSecretVersion(ctx, req)
}

func (c *sdkSecretManager) ListSecrets(ctx context.Context, req *secretmanagerpb.ListSecretsRequest) SecretIterator {
	return c.client.ListSecrets(ctx, req)
}

func (c *sdkSecretManager) Close() error {
	return c.client.Close()
}
