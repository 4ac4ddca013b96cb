package secretstores

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	akeyless "github.com/akeylesslabs/akeyless-go/v3"

	"github.com/systmms/secretsplit/pkg/secretstore"
)

// DefaultAkeylessGateway is the public Akeyless API endpoint.
const DefaultAkeylessGateway = "https://api.akeyless.io"

// AkeylessClient is the subset of the Akeyless V2 API the store uses.
type AkeylessClient interface {
	// Authenticate exchanges the configured access credentials for a token
	// valid for ttl.
	Authenticate(ctx context.Context) (token string, ttl time.Duration, err error)
	GetSecretValue(ctx context.Context, token, path string) (string, error)
	CreateSecret(ctx context.Context, token, path, value string) error
	UpdateSecretValue(ctx context.Context, token, path, value string) error
}

// AkeylessConfig holds akeyless settings.
type AkeylessConfig struct {
	// GatewayURL defaults to the public API
	GatewayURL string `mapstructure:"gateway_url"`
	AccessID   string `mapstructure:"access_id"`
	AccessKey  string `mapstructure:"access_key"`
	// AccessType is "access_key" (default), "aws_iam", "azure_ad" or "gcp"
	AccessType string `mapstructure:"access_type"`
	// Prefix is the folder secrets are created in, e.g. /airbyte/
	Prefix string `mapstructure:"prefix"`
}

// AkeylessStore stores each coordinate as a static secret named
// <prefix><coordinate>.
type AkeylessStore struct {
	name   string
	client AkeylessClient
	prefix string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// AkeylessOption configures an AkeylessStore.
type AkeylessOption func(*AkeylessStore)

// WithAkeylessClient sets a custom client (for testing)
func WithAkeylessClient(client AkeylessClient) AkeylessOption {
	return func(s *AkeylessStore) {
		s.client = client
	}
}

func newAkeylessFactory(_ context.Context, name string, settings map[string]interface{}) (secretstore.Persistence, error) {
	var cfg AkeylessConfig
	if err := decodeSettings(name, settings, &cfg); err != nil {
		return nil, err
	}
	return NewAkeylessStore(name, cfg)
}

// NewAkeylessStore creates the store.
func NewAkeylessStore(name string, cfg AkeylessConfig, opts ...AkeylessOption) (*AkeylessStore, error) {
	prefix := "/" + strings.Trim(strings.TrimSpace(cfg.Prefix), "/")
	if prefix != "/" {
		prefix += "/"
	}

	s := &AkeylessStore{
		name:   name,
		prefix: prefix,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		if err := requireSetting(name, "access_id", cfg.AccessID); err != nil {
			return nil, err
		}
		client, err := newAkeylessSDKClient(cfg)
		if err != nil {
			return nil, err
		}
		s.client = client
	}

	return s, nil
}

// Name returns the store name.
func (s *AkeylessStore) Name() string {
	return s.name
}

func (s *AkeylessStore) path(coord secretstore.Coordinate) string {
	return s.prefix + coord.Full()
}

// Read implements secretstore.Reader.
func (s *AkeylessStore) Read(ctx context.Context, coord secretstore.Coordinate) (string, bool, error) {
	token, err := s.getToken(ctx)
	if err != nil {
		return "", false, secretstore.NewStoreError(s.name, "read", coord, err)
	}

	payload, err := s.client.GetSecretValue(ctx, token, s.path(coord))
	if err != nil {
		if isAkeylessNotFoundError(err) {
			return "", false, nil
		}
		return "", false, secretstore.NewStoreError(s.name, "read", coord, err)
	}
	return payload, true, nil
}

// Write implements secretstore.Writer. The secret is created on first write
// and its value replaced afterwards.
func (s *AkeylessStore) Write(ctx context.Context, coord secretstore.Coordinate, payload string) error {
	token, err := s.getToken(ctx)
	if err != nil {
		return secretstore.NewStoreError(s.name, "write", coord, err)
	}

	path := s.path(coord)
	err = s.client.CreateSecret(ctx, token, path, payload)
	if err == nil {
		return nil
	}
	if !isAkeylessExistsError(err) {
		return secretstore.NewStoreError(s.name, "write", coord, err)
	}

	if err := s.client.UpdateSecretValue(ctx, token, path, payload); err != nil {
		return secretstore.NewStoreError(s.name, "write", coord, err)
	}
	return nil
}

// Validate authenticates with the configured access credentials.
func (s *AkeylessStore) Validate(ctx context.Context) error {
	if _, err := s.getToken(ctx); err != nil {
		return fmt.Errorf("akeyless validation failed: %w", err)
	}
	return nil
}

// Close forgets the cached token.
func (s *AkeylessStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.tokenExpiry = time.Time{}
	return nil
}

// getToken returns the cached token or authenticates for a new one.
func (s *AkeylessStore) getToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Before(s.tokenExpiry) {
		return s.token, nil
	}

	token, ttl, err := s.client.Authenticate(ctx)
	if err != nil {
		return "", fmt.Errorf("akeyless authentication failed: %w", err)
	}
	s.token = token
	s.tokenExpiry = time.Now().Add(ttl)
	return token, nil
}

func isAkeylessNotFoundError(err error) bool {
	msg := akeylessErrorText(err)
	return strings.Contains(msg, "itemNotFound") ||
		strings.Contains(msg, "not found") ||
		strings.Contains(msg, "404")
}

func isAkeylessExistsError(err error) bool {
	msg := akeylessErrorText(err)
	return strings.Contains(msg, "already exists") ||
		strings.Contains(msg, "alreadyExists") ||
		strings.Contains(msg, "409")
}

// akeylessErrorText joins an error's message with the response body the
// SDK attaches to API failures, where the error code lives.
func akeylessErrorText(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	var apiErr interface{ Body() []byte }
	if errors.As(err, &apiErr) {
		msg += " " + string(apiErr.Body())
	}
	return msg
}

// akeylessTokenTTL is shorter than the 30 minute token lifetime so a cached
// token never expires mid-request.
const akeylessTokenTTL = 25 * time.Minute

// akeylessSDKClient implements AkeylessClient with the official SDK.
type akeylessSDKClient struct {
	api *akeyless.APIClient
	cfg AkeylessConfig
}

func newAkeylessSDKClient(cfg AkeylessConfig) (*akeylessSDKClient, error) {
	gateway := strings.TrimSpace(cfg.GatewayURL)
	if gateway == "" {
		gateway = DefaultAkeylessGateway
	}

	switch cfg.AccessType {
	case "", "access_key":
		if cfg.AccessKey == "" {
			return nil, fmt.Errorf("akeyless access_key is required for access_type access_key")
		}
	case "aws_iam", "azure_ad", "gcp":
	default:
		return nil, fmt.Errorf("unsupported akeyless access_type: %s", cfg.AccessType)
	}

	configuration := akeyless.NewConfiguration()
	configuration.Servers = []akeyless.ServerConfiguration{
		{URL: gateway},
	}

	return &akeylessSDKClient{
		api: akeyless.NewAPIClient(configuration),
		cfg: cfg,
	}, nil
}

func (c *akeylessSDKClient) Authenticate(ctx context.Context) (string, time.Duration, error) {
	body := akeyless.NewAuthWithDefaults()
	body.SetAccessId(c.cfg.AccessID)
	if c.cfg.AccessType == "" || c.cfg.AccessType == "access_key" {
		body.SetAccessKey(c.cfg.AccessKey)
	} else {
		body.SetAccessType(c.cfg.AccessType)
	}

	res, _, err := c.api.V2Api.Auth(ctx).Body(*body).Execute()
	if err != nil {
		return "", 0, err
	}
	return res.GetToken(), akeylessTokenTTL, nil
}

func (c *akeylessSDKClient) GetSecretValue(ctx context.Context, token, path string) (string, error) {
	body := akeyless.NewGetSecretValue([]string{path})
	body.SetToken(token)

	res, _, err := c.api.V2Api.GetSecretValue(ctx).Body(*body).Execute()
	if err != nil {
		return "", err
	}

	// The response maps each requested path to its value.
	value, ok := res[path]
	if !ok {
		return "", fmt.Errorf("akeyless item %s: itemNotFound", path)
	}
	return fmt.Sprint(value), nil
}

func (c *akeylessSDKClient) CreateSecret(ctx context.Context, token, path, value string) error {
	body := akeyless.NewCreateSecret(path, value)
	body.SetToken(token)

	_, _, err := c.api.V2Api.CreateSecret(ctx).Body(*body).Execute()
	return err
}

func (c *akeylessSDKClient) UpdateSecretValue(ctx context.Context, token, path, value string) error {
	body := akeyless.NewUpdateSecretVal(path, value)
	body.SetToken(token)

	_, _, err := c.api.V2Api.UpdateSecretVal(ctx).Body(*body).Execute()
	return err
}

var _ AkeylessClient = (*akeylessSDKClient)(nil)
