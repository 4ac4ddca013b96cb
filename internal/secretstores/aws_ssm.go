package secretstores

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/systmms/secretsplit/pkg/secretstore"
)

// SSMClientAPI defines the SSM Parameter Store operations the store uses.
type SSMClientAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

// AWSSSMConfig holds aws.ssm settings.
type AWSSSMConfig struct {
	AWSConfig  `mapstructure:",squash"`
	PathPrefix string `mapstructure:"path_prefix"`
	KMSKeyID   string `mapstructure:"kms_key_id"`
}

// AWSSSMStore stores each coordinate as a SecureString parameter named
// <path_prefix><coordinate>.
type AWSSSMStore struct {
	name   string
	config AWSSSMConfig
	client SSMClientAPI
	sts    STSClientAPI
}

func newAWSSSMFactory(ctx context.Context, name string, settings map[string]interface{}) (secretstore.Persistence, error) {
	var cfg AWSSSMConfig
	if err := decodeSettings(name, settings, &cfg); err != nil {
		return nil, err
	}
	return NewAWSSSMStore(ctx, name, cfg)
}

// NewAWSSSMStore creates the store.
func NewAWSSSMStore(ctx context.Context, name string, cfg AWSSSMConfig, opts ...AWSOption) (*AWSSSMStore, error) {
	if cfg.PathPrefix != "" && !strings.HasPrefix(cfg.PathPrefix, "/") {
		cfg.PathPrefix = "/" + cfg.PathPrefix
	}

	clients := &awsClients{}
	for _, opt := range opts {
		opt(clients)
	}

	if clients.ssm == nil || clients.sts == nil {
		awsCfg, err := loadAWSConfig(ctx, cfg.AWSConfig)
		if err != nil {
			return nil, err
		}
		if clients.ssm == nil {
			var clientOpts []func(*ssm.Options)
			if cfg.Endpoint != "" {
				clientOpts = append(clientOpts, func(o *ssm.Options) {
					o.BaseEndpoint = aws.String(cfg.Endpoint)
				})
			}
			clients.ssm = ssm.NewFromConfig(awsCfg, clientOpts...)
		}
		if clients.sts == nil {
			clients.sts = newSTSClient(awsCfg, cfg.Endpoint)
		}
	}

	return &AWSSSMStore{name: name, config: cfg, client: clients.ssm, sts: clients.sts}, nil
}

// Name returns the store name.
func (s *AWSSSMStore) Name() string {
	return s.name
}

func (s *AWSSSMStore) parameterName(coord secretstore.Coordinate) string {
	return s.config.PathPrefix + coord.Full()
}

// Read implements secretstore.Reader.
func (s *AWSSSMStore) Read(ctx context.Context, coord secretstore.Coordinate) (string, bool, error) {
	out, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(s.parameterName(coord)),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var notFound *ssmtypes.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", false, nil
		}
		return "", false, secretstore.NewStoreError(s.name, "read", coord, err)
	}

	if out.Parameter == nil {
		return "", false, nil
	}
	return aws.ToString(out.Parameter.Value), true, nil
}

// Write implements secretstore.Writer.
func (s *AWSSSMStore) Write(ctx context.Context, coord secretstore.Coordinate, payload string) error {
	input := &ssm.PutParameterInput{
		Name:      aws.String(s.parameterName(coord)),
		Value:     aws.String(payload),
		Type:      ssmtypes.ParameterTypeSecureString,
		Overwrite: aws.Bool(true),
	}
	if s.config.KMSKeyID != "" {
		input.KeyId = aws.String(s.config.KMSKeyID)
	}

	if _, err := s.client.PutParameter(ctx, input); err != nil {
		return secretstore.NewStoreError(s.name, "write", coord, err)
	}
	return nil
}

// Validate confirms the credentials with sts:GetCallerIdentity.
func (s *AWSSSMStore) Validate(ctx context.Context) error {
	return validateAWSIdentity(ctx, s.sts)
}

// Close is a no-op.
func (s *AWSSSMStore) Close() error {
	return nil
}
