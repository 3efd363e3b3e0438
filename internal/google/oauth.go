package google

import (
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"
)

// ErrMissingConfig indicates a mandatory OAuth client field is absent.
var ErrMissingConfig = errors.New("missing OAuth client configuration")

// ClientConfig holds the per-request inputs for building an OAuth client.
// It carries no state beyond what the caller passes in, so clients can be
// built per request and substituted freely in tests.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// NewOAuthConfig builds an oauth2.Config against Google's endpoints.
// Client id, client secret and redirect URL are mandatory.
func NewOAuthConfig(cfg ClientConfig) (*oauth2.Config, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: client id", ErrMissingConfig)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client secret", ErrMissingConfig)
	}
	if cfg.RedirectURL == "" {
		return nil, fmt.Errorf("%w: redirect URL", ErrMissingConfig)
	}

	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       cfg.Scopes,
		Endpoint:     googleauth.Endpoint,
	}, nil
}

// AuthCodeURL builds the provider authorization URL for the given state
// token. access_type=offline is required to obtain a refresh token;
// include_granted_scopes enables incremental authorization.
func AuthCodeURL(conf *oauth2.Config, state string) string {
	return conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}
