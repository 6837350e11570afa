// Package auth adds Elastic credentials to outgoing backend requests.
package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/IBM/go-sdk-core/v5/core"
	"go.uber.org/zap"

	"github.com/tareqmamari/elastic-otel-mcp/internal/config"
)

// AuthTypeAPIKey identifies the Elastic "ApiKey" authorization scheme.
const AuthTypeAPIKey = "elasticApiKey"

// APIKeyAuthenticator implements core.Authenticator for Elastic API keys,
// sending "Authorization: ApiKey <key>".
type APIKeyAuthenticator struct {
	APIKey string
}

// NewAPIKeyAuthenticator creates a validated API key authenticator.
func NewAPIKeyAuthenticator(apiKey string) (*APIKeyAuthenticator, error) {
	a := &APIKeyAuthenticator{APIKey: apiKey}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// AuthenticationType returns the authentication type for this authenticator.
func (a *APIKeyAuthenticator) AuthenticationType() string {
	return AuthTypeAPIKey
}

// Authenticate adds the ApiKey authorization header to the request.
func (a *APIKeyAuthenticator) Authenticate(req *http.Request) error {
	req.Header.Set("Authorization", "ApiKey "+a.APIKey)
	return nil
}

// Validate checks that the key is usable.
func (a *APIKeyAuthenticator) Validate() error {
	if a.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if strings.TrimSpace(a.APIKey) != a.APIKey || strings.ContainsAny(a.APIKey[:1]+a.APIKey[len(a.APIKey)-1:], `{}"`) {
		return fmt.Errorf("API key must not start or end with whitespace, braces or quotes")
	}
	return nil
}

// Authenticator handles backend authentication for the HTTP client
type Authenticator struct {
	authenticator core.Authenticator
	logger        *zap.Logger
}

// New creates an authenticator for the given mode. The credential is an API
// key in "apikey" mode, a token in "bearer" mode and "user:password" in
// "basic" mode.
func New(mode, credential string, logger *zap.Logger) (*Authenticator, error) {
	if credential == "" {
		return nil, fmt.Errorf("API key is required")
	}

	var (
		authenticator core.Authenticator
		err           error
	)
	switch mode {
	case "", config.AuthModeAPIKey:
		authenticator, err = NewAPIKeyAuthenticator(credential)
	case config.AuthModeBearer:
		authenticator, err = core.NewBearerTokenAuthenticator(credential)
	case config.AuthModeBasic:
		user, password, ok := strings.Cut(credential, ":")
		if !ok {
			return nil, fmt.Errorf("basic auth credential must be in the form user:password")
		}
		authenticator, err = core.NewBasicAuthenticator(user, password)
	default:
		return nil, fmt.Errorf("unsupported auth mode: %s", mode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to validate authenticator: %w", err)
	}

	logger.Debug("Backend authenticator initialized",
		zap.String("type", authenticator.AuthenticationType()),
	)

	return &Authenticator{
		authenticator: authenticator,
		logger:        logger,
	}, nil
}

// Authenticate adds authentication to an HTTP request
func (a *Authenticator) Authenticate(req *http.Request) error {
	if req == nil {
		return fmt.Errorf("request cannot be nil")
	}

	if err := a.authenticator.Authenticate(req); err != nil {
		a.logger.Error("Authentication failed", zap.Error(err))
		return fmt.Errorf("authentication failed: %w", err)
	}

	return nil
}

// Type returns the underlying authentication type.
func (a *Authenticator) Type() string {
	return a.authenticator.AuthenticationType()
}

// Validate re-validates the configured credentials (used by health checks).
func (a *Authenticator) Validate() error {
	return a.authenticator.Validate()
}
