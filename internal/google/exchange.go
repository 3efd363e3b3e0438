package google

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	// callTimeout bounds every call to the OAuth provider. A timeout is
	// reported the same way as a provider-side rejection; retry policy
	// belongs to the caller.
	callTimeout = 15 * time.Second

	// revokeEndpoint is Google's OAuth 2.0 token revocation endpoint.
	revokeEndpoint = "https://oauth2.googleapis.com/revoke"
)

// Token is the outcome of a code exchange or refresh. RefreshToken may be
// empty: the provider does not reissue refresh tokens on every exchange, and
// never does on refresh.
type Token struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Exchanger trades authorization codes and refresh tokens for access tokens.
type Exchanger interface {
	// Exchange trades an authorization code for tokens. The provider
	// enforces single use of the code.
	Exchange(ctx context.Context, code string) (*Token, error)

	// Refresh mints a new access token from a refresh token. Failure means
	// the refresh token is invalid or revoked; callers must require
	// re-authorization rather than retry.
	Refresh(ctx context.Context, refreshToken string) (*Token, error)

	// Revoke invalidates a token at the provider. Best effort; used only on
	// explicit account unlinking.
	Revoke(ctx context.Context, token string) error
}

// TokenService is the Exchanger backed by Google's token endpoint.
type TokenService struct {
	conf       *oauth2.Config
	httpClient *http.Client
}

// NewTokenService creates a TokenService for the given OAuth config.
func NewTokenService(conf *oauth2.Config) *TokenService {
	return &TokenService{
		conf:       conf,
		httpClient: &http.Client{Timeout: callTimeout},
	}
}

// Exchange trades an authorization code for tokens.
func (s *TokenService) Exchange(ctx context.Context, code string) (*Token, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	tok, err := s.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	return &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}, nil
}

// Refresh mints a new access token from a refresh token. The returned Token
// carries no refresh token; the caller keeps the one it has.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	ts := s.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh access token: %w", err)
	}

	return &Token{
		AccessToken: tok.AccessToken,
		Expiry:      tok.Expiry,
	}, nil
}

// Revoke invalidates a token at Google's revocation endpoint.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, revokeEndpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build revocation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call revocation endpoint: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("revocation endpoint returned status %s", res.Status)
	}
	return nil
}
