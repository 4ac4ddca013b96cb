package fakes

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/systmms/secretsplit/internal/secretstores"
)

// FakeGCPSecretManagerClient is an in-memory implementation of
// secretstores.SecretManagerAPI
type FakeGCPSecretManagerClient struct {
	mu sync.Mutex

	// Secrets maps full resource names (projects/X/secrets/Y) to their data
	Secrets map[string]*GCPSecretData
	// Versions maps secret resource names to their versions, oldest first
	Versions map[string][]*GCPSecretVersionData
	// Errors maps resource names to errors to return
	Errors map[string]error

	// CreateRequests records every CreateSecret call
	CreateRequests []*secretmanagerpb.CreateSecretRequest
	// ListSecretsErr is returned by the iterator from ListSecrets if set
	ListSecretsErr error
	// Closed is set by Close
	Closed bool
}

// GCPSecretData holds the data for a fake GCP secret
type GCPSecretData struct {
	Name       string
	CreateTime *timestamppb.Timestamp
	Labels     map[string]string
	Expiration *secretmanagerpb.Secret_Ttl
}

// GCPSecretVersionData holds version-specific data for a GCP secret
type GCPSecretVersionData struct {
	Name       string
	State      secretmanagerpb.SecretVersion_State
	CreateTime *timestamppb.Timestamp
	Data       []byte
}

// NewFakeGCPSecretManagerClient creates a new fake GCP Secret Manager client
func NewFakeGCPSecretManagerClient() *FakeGCPSecretManagerClient {
	return &FakeGCPSecretManagerClient{
		Secrets:  make(map[string]*GCPSecretData),
		Versions: make(map[string][]*GCPSecretVersionData),
		Errors:   make(map[string]error),
	}
}

// AddError configures the fake to return an error for a specific resource
func (f *FakeGCPSecretManagerClient) AddError(resourceName string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[resourceName] = err
}

// VersionCount returns how many versions a secret has
func (f *FakeGCPSecretManagerClient) VersionCount(secretName string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Versions[secretName])
}

// AccessSecretVersion returns a numbered version or, for ".../versions/latest",
// the newest enabled one
func (f *FakeGCPSecretManagerClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, exists := f.Errors[req.Name]; exists {
		return nil, err
	}

	idx := strings.LastIndex(req.Name, "/versions/")
	if idx < 0 {
		return nil, status.Errorf(codes.InvalidArgument, "malformed version name %s", req.Name)
	}
	secretName, versionID := req.Name[:idx], req.Name[idx+len("/versions/"):]

	if err, exists := f.Errors[secretName]; exists {
		return nil, err
	}

	versions := f.Versions[secretName]
	var found *GCPSecretVersionData
	for i := len(versions) - 1; i >= 0; i-- {
		v := versions[i]
		if versionID == "latest" && v.State == secretmanagerpb.SecretVersion_ENABLED {
			found = v
			break
		}
		if v.Name == req.Name {
			found = v
			break
		}
	}
	if found == nil {
		return nil, status.Errorf(codes.NotFound, "Secret version %s not found", req.Name)
	}

	return &secretmanagerpb.AccessSecretVersionResponse{
		Name:    found.Name,
		Payload: &secretmanagerpb.SecretPayload{Data: found.Data},
	}, nil
}

// CreateSecret creates a secret or returns AlreadyExists
func (f *FakeGCPSecretManagerClient) CreateSecret(_ context.Context, req *secretmanagerpb.CreateSecretRequest) (*secretmanagerpb.Secret, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CreateRequests = append(f.CreateRequests, req)
	fullName := fmt.Sprintf("%s/secrets/%s", req.Parent, req.SecretId)

	if err, exists := f.Errors[fullName]; exists {
		return nil, err
	}
	if _, exists := f.Secrets[fullName]; exists {
		return nil, status.Errorf(codes.AlreadyExists, "Secret [%s] already exists", fullName)
	}

	data := &GCPSecretData{
		Name:       fullName,
		CreateTime: timestamppb.New(time.Now()),
		Labels:     req.GetSecret().GetLabels(),
	}
	if ttl, ok := req.GetSecret().GetExpiration().(*secretmanagerpb.Secret_Ttl); ok {
		data.Expiration = ttl
	}
	f.Secrets[fullName] = data

	return &secretmanagerpb.Secret{
		Name:       fullName,
		CreateTime: data.CreateTime,
		Labels:     data.Labels,
	}, nil
}

// AddSecretVersion appends a version to an existing secret
func (f *FakeGCPSecretManagerClient) AddSecretVersion(_ context.Context, req *secretmanagerpb.AddSecretVersionRequest) (*secretmanagerpb.SecretVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, exists := f.Errors[req.Parent]; exists {
		return nil, err
	}
	if _, exists := f.Secrets[req.Parent]; !exists {
		return nil, status.Errorf(codes.NotFound, "Secret %s not found", req.Parent)
	}

	version := &GCPSecretVersionData{
		Name:       fmt.Sprintf("%s/versions/%d", req.Parent, len(f.Versions[req.Parent])+1),
		State:      secretmanagerpb.SecretVersion_ENABLED,
		CreateTime: timestamppb.New(time.Now()),
		Data:       append([]byte(nil), req.GetPayload().GetData()...),
	}
	f.Versions[req.Parent] = append(f.Versions[req.Parent], version)

	return &secretmanagerpb.SecretVersion{
		Name:       version.Name,
		CreateTime: version.CreateTime,
		State:      version.State,
	}, nil
}

// ListSecrets lists secrets under the request's project
func (f *FakeGCPSecretManagerClient) ListSecrets(_ context.Context, req *secretmanagerpb.ListSecretsRequest) secretstores.SecretIterator {
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := req.Parent + "/secrets/"
	var secrets []*secretmanagerpb.Secret
	for name, data := range f.Secrets {
		if strings.HasPrefix(name, prefix) {
			secrets = append(secrets, &secretmanagerpb.Secret{Name: data.Name, Labels: data.Labels})
		}
	}

	return NewFakeSecretIterator(secrets, f.ListSecretsErr)
}

// Close marks the client closed
func (f *FakeGCPSecretManagerClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// FakeSecretIterator is a fake implementation of secretstores.SecretIterator
type FakeSecretIterator struct {
	secrets []*secretmanagerpb.Secret
	index   int
	err     error
}

// Next returns the next secret in the iteration
func (it *FakeSecretIterator) Next() (*secretmanagerpb.Secret, error) {
	if it.err != nil {
		return nil, it.err
	}

	if it.index >= len(it.secrets) {
		return nil, iterator.Done
	}

	secret := it.secrets[it.index]
	it.index++
	return secret, nil
}

// NewFakeSecretIterator creates a new fake secret iterator
func NewFakeSecretIterator(secrets []*secretmanagerpb.Secret, err error) *FakeSecretIterator {
	return &FakeSecretIterator{
		secrets: secrets,
		err:     err,
	}
}

// GCP error helpers

// GCPPermissionDeniedError creates a GCP permission denied error
func GCPPermissionDeniedError(message string) error {
	return status.Error(codes.PermissionDenied, message)
}

// GCPUnavailableError creates a GCP unavailable error
func GCPUnavailableError() error {
	return status.Error(codes.Unavailable, "service unavailable")
}

var _ secretstores.SecretManagerAPI = (*FakeGCPSecretManagerClient)(nil)
