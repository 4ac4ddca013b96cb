package secretstores

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/systmms/secretsplit/pkg/secretstore"
)

// SecretsManagerClientAPI defines the AWS Secrets Manager operations the
// store uses. This allows for mocking in tests
type SecretsManagerClientAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
}

// STSClientAPI is used to validate AWS credentials.
type STSClientAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// AWSConfig holds the settings shared by the AWS stores.
type AWSConfig struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// AWSSecretsManagerConfig holds aws.secretsmanager settings.
type AWSSecretsManagerConfig struct {
	AWSConfig `mapstructure:",squash"`
	KMSKeyID  string `mapstructure:"kms_key_id"`
	Prefix    string `mapstructure:"prefix"`
}

// AWSSecretsManagerStore stores each coordinate as a Secrets Manager secret
// named <prefix><coordinate>.
type AWSSecretsManagerStore struct {
	name   string
	config AWSSecretsManagerConfig
	client SecretsManagerClientAPI
	sts    STSClientAPI
}

// AWSOption configures the AWS stores.
type AWSOption func(*awsClients)

type awsClients struct {
	secretsManager SecretsManagerClientAPI
	ssm            SSMClientAPI
	sts            STSClientAPI
}

// WithSecretsManagerClient sets a custom Secrets Manager client (for testing)
func WithSecretsManagerClient(client SecretsManagerClientAPI) AWSOption {
	return func(c *awsClients) {
		c.secretsManager = client
	}
}

// WithSSMClient sets a custom SSM client (for testing)
func WithSSMClient(client SSMClientAPI) AWSOption {
	return func(c *awsClients) {
		c.ssm = client
	}
}

// WithSTSClient sets a custom STS client (for testing)
func WithSTSClient(client STSClientAPI) AWSOption {
	return func(c *awsClients) {
		c.sts = client
	}
}

func newAWSSecretsManagerFactory(ctx context.Context, name string, settings map[string]interface{}) (secretstore.Persistence, error) {
	var cfg AWSSecretsManagerConfig
	if err := decodeSettings(name, settings, &cfg); err != nil {
		return nil, err
	}
	return NewAWSSecretsManagerStore(ctx, name, cfg)
}

// NewAWSSecretsManagerStore creates the store.
func NewAWSSecretsManagerStore(ctx context.Context, name string, cfg AWSSecretsManagerConfig, opts ...AWSOption) (*AWSSecretsManagerStore, error) {
	clients := &awsClients{}
	for _, opt := range opts {
		opt(clients)
	}

	if clients.secretsManager == nil || clients.sts == nil {
		awsCfg, err := loadAWSConfig(ctx, cfg.AWSConfig)
		if err != nil {
			return nil, err
		}
		if clients.secretsManager == nil {
			var clientOpts []func(*secretsmanager.Options)
			if cfg.Endpoint != "" {
				clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
					o.BaseEndpoint = aws.String(cfg.Endpoint)
				})
			}
			clients.secretsManager = secretsmanager.NewFromConfig(awsCfg, clientOpts...)
		}
		if clients.sts == nil {
			clients.sts = newSTSClient(awsCfg, cfg.Endpoint)
		}
	}

	return &AWSSecretsManagerStore{
		name:   name,
		config: cfg,
		client: clients.secretsManager,
		sts:    clients.sts,
	}, nil
}

func loadAWSConfig(ctx context.Context, cfg AWSConfig) (aws.Config, error) {
	var configOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		configOpts = append(configOpts, awsconfig.WithRegion(cfg.Region))
	}

	// Static credentials come from AWS_ACCESS_KEY/AWS_SECRET_ACCESS_KEY or
	// the store definition; otherwise the default chain applies.
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return awsCfg, nil
}

func newSTSClient(awsCfg aws.Config, endpoint string) *sts.Client {
	var opts []func(*sts.Options)
	if endpoint != "" {
		opts = append(opts, func(o *sts.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	return sts.NewFromConfig(awsCfg, opts...)
}

// Name returns the store name.
func (s *AWSSecretsManagerStore) Name() string {
	return s.name
}

func (s *AWSSecretsManagerStore) secretID(coord secretstore.Coordinate) string {
	return s.config.Prefix + coord.Full()
}

// Read implements secretstore.Reader.
func (s *AWSSecretsManagerStore) Read(ctx context.Context, coord secretstore.Coordinate) (string, bool, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.secretID(coord)),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", false, nil
		}
		return "", false, secretstore.NewStoreError(s.name, "read", coord, err)
	}

	if out.SecretString != nil {
		return *out.SecretString, true, nil
	}
	return string(out.SecretBinary), true, nil
}

// Write implements secretstore.Writer. The secret is created on first write;
// later writes put a new value that becomes AWSCURRENT.
func (s *AWSSecretsManagerStore) Write(ctx context.Context, coord secretstore.Coordinate, payload string) error {
	input := &secretsmanager.CreateSecretInput{
		Name:         aws.String(s.secretID(coord)),
		SecretString: aws.String(payload),
	}
	if s.config.KMSKeyID != "" {
		input.KmsKeyId = aws.String(s.config.KMSKeyID)
	}

	_, err := s.client.CreateSecret(ctx, input)
	if err == nil {
		return nil
	}

	var exists *types.ResourceExistsException
	if !errors.As(err, &exists) {
		return secretstore.NewStoreError(s.name, "write", coord, err)
	}

	_, err = s.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(s.secretID(coord)),
		SecretString: aws.String(payload),
	})
	if err != nil {
		return secretstore.NewStoreError(s.name, "write", coord, err)
	}
	return nil
}

// Validate confirms the credentials with sts:GetCallerIdentity.
func (s *AWSSecretsManagerStore) Validate(ctx context.Context) error {
	return validateAWSIdentity(ctx, s.sts)
}

// Close is a no-op; AWS clients hold no resources.
func (s *AWSSecretsManagerStore) Close() error {
	return nil
}

func validateAWSIdentity(ctx context.Context, client STSClientAPI) error {
	if client == nil {
		return nil
	}
	if _, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{}); err != nil {
		return fmt.Errorf("AWS credentials check failed: %w", err)
	}
	return nil
}
