package fakes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/systmms/secretsplit/internal/secretstores"
)

// FakeSecretsManagerClient is an in-memory implementation of
// secretstores.SecretsManagerClientAPI
type FakeSecretsManagerClient struct {
	mu sync.Mutex

	// Secrets maps secret names to their data
	Secrets map[string]*SecretData
	// Errors maps secret names to errors to return
	Errors map[string]error
	// CreateCalls and PutCalls count write operations
	CreateCalls int
	PutCalls    int
}

// SecretData holds the data for a fake secret
type SecretData struct {
	SecretString *string
	SecretBinary []byte
	KmsKeyId     *string
	Versions     int
	CreatedDate  *time.Time
}

// NewFakeSecretsManagerClient creates a new fake Secrets Manager client
func NewFakeSecretsManagerClient() *FakeSecretsManagerClient {
	return &FakeSecretsManagerClient{
		Secrets: make(map[string]*SecretData),
		Errors:  make(map[string]error),
	}
}

// AddSecretBinary adds a binary secret to the fake client
func (f *FakeSecretsManagerClient) AddSecretBinary(name string, value []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	f.Secrets[name] = &SecretData{SecretBinary: value, Versions: 1, CreatedDate: &now}
}

// AddError configures the fake to return an error for a specific secret
func (f *FakeSecretsManagerClient) AddError(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[name] = err
}

// GetSecretValue returns the current value of a secret
func (f *FakeSecretsManagerClient) GetSecretValue(_ context.Context, params *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	secretName := aws.ToString(params.SecretId)
	if err, exists := f.Errors[secretName]; exists {
		return nil, err
	}

	data, exists := f.Secrets[secretName]
	if !exists {
		return nil, &types.ResourceNotFoundException{
			Message: aws.String(fmt.Sprintf("Secrets Manager can't find the specified secret: %s", secretName)),
		}
	}

	return &secretsmanager.GetSecretValueOutput{
		ARN:           aws.String(fmt.Sprintf("arn:aws:secretsmanager:us-east-1:123456789012:secret:%s", secretName)),
		Name:          params.SecretId,
		SecretString:  data.SecretString,
		SecretBinary:  data.SecretBinary,
		VersionStages: []string{"AWSCURRENT"},
		CreatedDate:   data.CreatedDate,
	}, nil
}

// CreateSecret creates a secret or fails with ResourceExistsException
func (f *FakeSecretsManagerClient) CreateSecret(_ context.Context, params *secretsmanager.CreateSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CreateCalls++
	secretName := aws.ToString(params.Name)
	if err, exists := f.Errors[secretName]; exists {
		return nil, err
	}
	if _, exists := f.Secrets[secretName]; exists {
		return nil, &types.ResourceExistsException{
			Message: aws.String(fmt.Sprintf("The operation failed because the secret %s already exists.", secretName)),
		}
	}

	now := time.Now()
	f.Secrets[secretName] = &SecretData{
		SecretString: aws.String(aws.ToString(params.SecretString)),
		KmsKeyId:     params.KmsKeyId,
		Versions:     1,
		CreatedDate:  &now,
	}
	return &secretsmanager.CreateSecretOutput{Name: params.Name}, nil
}

// PutSecretValue stores a new current value for an existing secret
func (f *FakeSecretsManagerClient) PutSecretValue(_ context.Context, params *secretsmanager.PutSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.PutCalls++
	secretName := aws.ToString(params.SecretId)
	data, exists := f.Secrets[secretName]
	if !exists {
		return nil, &types.ResourceNotFoundException{
			Message: aws.String(fmt.Sprintf("Secrets Manager can't find the specified secret: %s", secretName)),
		}
	}

	data.SecretString = aws.String(aws.ToString(params.SecretString))
	data.SecretBinary = nil
	data.Versions++
	return &secretsmanager.PutSecretValueOutput{Name: params.SecretId, VersionStages: []string{"AWSCURRENT"}}, nil
}

// FakeSSMClient is an in-memory implementation of secretstores.SSMClientAPI
type FakeSSMClient struct {
	mu sync.Mutex

	// Parameters maps parameter names to their data
	Parameters map[string]*ParameterData
	// Errors maps parameter names to errors to return
	Errors map[string]error
}

// ParameterData holds the data for a fake SSM parameter
type ParameterData struct {
	Type    ssmtypes.ParameterType
	Value   string
	KeyID   string
	Version int64
}

// NewFakeSSMClient creates a new fake SSM client
func NewFakeSSMClient() *FakeSSMClient {
	return &FakeSSMClient{
		Parameters: make(map[string]*ParameterData),
		Errors:     make(map[string]error),
	}
}

// AddError configures the fake to return an error for a specific parameter
func (f *FakeSSMClient) AddError(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[name] = err
}

// GetParameter returns a parameter. SecureString values require decryption.
func (f *FakeSSMClient) GetParameter(_ context.Context, params *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	paramName := aws.ToString(params.Name)
	if err, exists := f.Errors[paramName]; exists {
		return nil, err
	}

	data, exists := f.Parameters[paramName]
	if !exists {
		return nil, &ssmtypes.ParameterNotFound{
			Message: aws.String(fmt.Sprintf("Parameter %s not found", paramName)),
		}
	}

	value := data.Value
	if data.Type == ssmtypes.ParameterTypeSecureString && !aws.ToBool(params.WithDecryption) {
		value = "AQICAHi...encrypted"
	}

	return &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{
			Name:    params.Name,
			Type:    data.Type,
			Value:   aws.String(value),
			Version: data.Version,
		},
	}, nil
}

// PutParameter creates or, with Overwrite, replaces a parameter
func (f *FakeSSMClient) PutParameter(_ context.Context, params *ssm.PutParameterInput, _ ...func(*ssm.Options)) (*ssm.PutParameterOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	paramName := aws.ToString(params.Name)
	if err, exists := f.Errors[paramName]; exists {
		return nil, err
	}

	data, exists := f.Parameters[paramName]
	if exists && !aws.ToBool(params.Overwrite) {
		return nil, &ssmtypes.ParameterAlreadyExists{
			Message: aws.String(fmt.Sprintf("The parameter %s already exists.", paramName)),
		}
	}
	if !exists {
		data = &ParameterData{}
		f.Parameters[paramName] = data
	}

	data.Type = params.Type
	data.Value = aws.ToString(params.Value)
	data.KeyID = aws.ToString(params.KeyId)
	data.Version++
	return &ssm.PutParameterOutput{Version: data.Version}, nil
}

// FakeSTSClient is a fake implementation of secretstores.STSClientAPI
type FakeSTSClient struct {
	// Err is returned by GetCallerIdentity if set
	Err error
	// Calls counts GetCallerIdentity calls
	Calls int
}

// GetCallerIdentity returns a fixed identity or Err
func (f *FakeSTSClient) GetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	return &sts.GetCallerIdentityOutput{
		Account: aws.String("123456789012"),
		Arn:     aws.String("arn:aws:iam::123456789012:user/secretsplit"),
		UserId:  aws.String("AIDAEXAMPLE"),
	}, nil
}

var (
	_ secretstores.SecretsManagerClientAPI = (*FakeSecretsManagerClient)(nil)
	_ secretstores.SSMClientAPI            = (*FakeSSMClient)(nil)
	_ secretstores.STSClientAPI            = (*FakeSTSClient)(nil)
)
