package google

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOAuthConfig(t *testing.T) {
	valid := ClientConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://app.example.com/api/auth/google/callback",
		Scopes:       []string{"https://www.googleapis.com/auth/gmail.readonly"},
	}

	conf, err := NewOAuthConfig(valid)
	require.NoError(t, err)
	assert.Equal(t, valid.ClientID, conf.ClientID)
	assert.Equal(t, valid.RedirectURL, conf.RedirectURL)
	assert.Equal(t, valid.Scopes, conf.Scopes)

	tests := map[string]func(c *ClientConfig){
		"missing client id":     func(c *ClientConfig) { c.ClientID = "" },
		"missing client secret": func(c *ClientConfig) { c.ClientSecret = "" },
		"missing redirect URL":  func(c *ClientConfig) { c.RedirectURL = "" },
	}
	for name, clear := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			clear(&cfg)
			_, err := NewOAuthConfig(cfg)
			assert.ErrorIs(t, err, ErrMissingConfig)
		})
	}
}

func TestAuthCodeURL(t *testing.T) {
	conf, err := NewOAuthConfig(ClientConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://app.example.com/api/auth/google/callback",
		Scopes:       []string{"https://www.googleapis.com/auth/gmail.readonly"},
	})
	require.NoError(t, err)

	raw := AuthCodeURL(conf, "state-token")

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	q := parsed.Query()

	assert.Equal(t, "state-token", q.Get("state"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "true", q.Get("include_granted_scopes"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Contains(t, q.Get("scope"), "gmail.readonly")
}
