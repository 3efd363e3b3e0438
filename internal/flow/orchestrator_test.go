package flow

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxlink/inboxlink/internal/account"
	"github.com/inboxlink/inboxlink/internal/google"
	"github.com/inboxlink/inboxlink/internal/statestore"
)

type fakeExchanger struct {
	token       *google.Token
	exchangeErr error
	refreshErr  error
	revokeErr   error

	exchanged []string
	refreshed []string
	revoked   []string
}

func (f *fakeExchanger) Exchange(_ context.Context, code string) (*google.Token, error) {
	f.exchanged = append(f.exchanged, code)
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.token, nil
}

func (f *fakeExchanger) Refresh(_ context.Context, refreshToken string) (*google.Token, error) {
	f.refreshed = append(f.refreshed, refreshToken)
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.token, nil
}

func (f *fakeExchanger) Revoke(_ context.Context, token string) error {
	f.revoked = append(f.revoked, token)
	return f.revokeErr
}

// brokenStateStore rejects every operation, like a Redis backend that is
// down.
type brokenStateStore struct{}

func (brokenStateStore) Put(context.Context, string, string, time.Duration) error {
	return statestore.ErrUnavailable
}

func (brokenStateStore) Consume(context.Context, string) (string, bool, error) {
	return "", false, statestore.ErrUnavailable
}

func (brokenStateStore) Close() error { return nil }

type fakeProfiles struct {
	email string
	err   error
}

func (f *fakeProfiles) EmailAddress(_ context.Context, _ string) (string, error) {
	return f.email, f.err
}

func newTestOrchestrator(t *testing.T, exch *fakeExchanger, profiles *fakeProfiles) (*Orchestrator, account.Store) {
	t.Helper()

	states := statestore.NewMemoryStore(nil)
	t.Cleanup(func() { _ = states.Close() })

	accounts := account.NewMemoryStore()
	t.Cleanup(func() { _ = accounts.Close() })

	require.NoError(t, accounts.CreateUser(context.Background(), &account.User{
		ID:    "u1",
		Email: "owner@example.com",
	}))

	conf, err := google.NewOAuthConfig(google.ClientConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://app.example.com/api/auth/google/callback",
	})
	require.NoError(t, err)

	return NewOrchestrator(states, accounts, conf, exch, profiles, 0, nil), accounts
}

// initiateAndExtractState runs Initiate and pulls the state parameter out of
// the returned authorization URL.
func initiateAndExtractState(t *testing.T, o *Orchestrator, userID string) string {
	t.Helper()
	authURL, err := o.Initiate(context.Background(), userID)
	require.NoError(t, err)
	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestOrchestrator_Initiate(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeExchanger{}, &fakeProfiles{})

	state := initiateAndExtractState(t, o, "u1")

	// 32 bytes of entropy, hex encoded.
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), state)
}

func TestOrchestrator_Initiate_UnknownUser(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeExchanger{}, &fakeProfiles{})

	_, err := o.Initiate(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestOrchestrator_Initiate_StatesAreUnique(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeExchanger{}, &fakeProfiles{})

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		state := initiateAndExtractState(t, o, "u1")
		assert.False(t, seen[state], "state token reissued")
		seen[state] = true
	}
}

func TestOrchestrator_Initiate_StateStoreDown(t *testing.T) {
	accounts := account.NewMemoryStore()
	t.Cleanup(func() { _ = accounts.Close() })
	require.NoError(t, accounts.CreateUser(context.Background(), &account.User{
		ID:    "u1",
		Email: "owner@example.com",
	}))

	conf, err := google.NewOAuthConfig(google.ClientConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://app.example.com/api/auth/google/callback",
	})
	require.NoError(t, err)

	o := NewOrchestrator(brokenStateStore{}, accounts, conf, &fakeExchanger{}, &fakeProfiles{}, 0, nil)

	// A state that was never stored can never be validated; the URL must
	// not go out.
	authURL, err := o.Initiate(context.Background(), "u1")
	assert.ErrorIs(t, err, statestore.ErrUnavailable)
	assert.Empty(t, authURL)
}

func TestOrchestrator_HandleCallback(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	exch := &fakeExchanger{token: &google.Token{
		AccessToken:  "a1",
		RefreshToken: "r1",
		Expiry:       expiry,
	}}
	o, accounts := newTestOrchestrator(t, exch, &fakeProfiles{email: "mailbox@example.com"})

	state := initiateAndExtractState(t, o, "u1")

	acct, err := o.HandleCallback(context.Background(), state, "c1")
	require.NoError(t, err)
	assert.Equal(t, "u1", acct.UserID)
	assert.Equal(t, "mailbox@example.com", acct.EmailAddress)
	assert.Equal(t, "a1", acct.AccessToken)
	assert.Equal(t, "r1", acct.RefreshToken)
	assert.Equal(t, []string{"c1"}, exch.exchanged)

	stored, err := accounts.FindAccount(context.Background(), "u1", "mailbox@example.com")
	require.NoError(t, err)
	assert.Equal(t, acct.ID, stored.ID)
}

func TestOrchestrator_HandleCallback_MissingState(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeExchanger{}, &fakeProfiles{})

	_, err := o.HandleCallback(context.Background(), "", "c1")
	assert.ErrorIs(t, err, ErrMissingState)
}

func TestOrchestrator_HandleCallback_UnknownState(t *testing.T) {
	exch := &fakeExchanger{token: &google.Token{AccessToken: "a1"}}
	o, _ := newTestOrchestrator(t, exch, &fakeProfiles{email: "mailbox@example.com"})

	_, err := o.HandleCallback(context.Background(), "never-issued", "c1")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Empty(t, exch.exchanged, "exchange must not run for an invalid state")
}

func TestOrchestrator_HandleCallback_Replay(t *testing.T) {
	exch := &fakeExchanger{token: &google.Token{
		AccessToken:  "a1",
		RefreshToken: "r1",
		Expiry:       time.Now().Add(time.Hour),
	}}
	o, _ := newTestOrchestrator(t, exch, &fakeProfiles{email: "mailbox@example.com"})

	state := initiateAndExtractState(t, o, "u1")

	_, err := o.HandleCallback(context.Background(), state, "c1")
	require.NoError(t, err)

	// Replaying the same callback fails on state validation; the code never
	// reaches the provider a second time.
	_, err = o.HandleCallback(context.Background(), state, "c1")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, []string{"c1"}, exch.exchanged)
}

func TestOrchestrator_HandleCallback_ExchangeFails(t *testing.T) {
	exch := &fakeExchanger{exchangeErr: errors.New("invalid_grant")}
	o, _ := newTestOrchestrator(t, exch, &fakeProfiles{email: "mailbox@example.com"})

	state := initiateAndExtractState(t, o, "u1")

	_, err := o.HandleCallback(context.Background(), state, "bad-code")
	assert.ErrorIs(t, err, ErrExchangeFailed)

	// The state was consumed before the exchange; retrying with the same
	// state is a replay.
	_, err = o.HandleCallback(context.Background(), state, "bad-code")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestOrchestrator_HandleCallback_ProfileFetchFails(t *testing.T) {
	exch := &fakeExchanger{token: &google.Token{AccessToken: "a1"}}
	o, accounts := newTestOrchestrator(t, exch, &fakeProfiles{err: errors.New("profile backend down")})

	state := initiateAndExtractState(t, o, "u1")

	_, err := o.HandleCallback(context.Background(), state, "c1")
	assert.ErrorIs(t, err, ErrProfileFetch)

	// Nothing was persisted.
	_, err = accounts.FindAccount(context.Background(), "u1", "mailbox@example.com")
	assert.ErrorIs(t, err, account.ErrNotFound)
}

func TestOrchestrator_Unlink(t *testing.T) {
	exch := &fakeExchanger{token: &google.Token{
		AccessToken:  "a1",
		RefreshToken: "r1",
		Expiry:       time.Now().Add(time.Hour),
	}}
	o, accounts := newTestOrchestrator(t, exch, &fakeProfiles{email: "mailbox@example.com"})

	state := initiateAndExtractState(t, o, "u1")
	acct, err := o.HandleCallback(context.Background(), state, "c1")
	require.NoError(t, err)

	require.NoError(t, o.Unlink(context.Background(), acct.ID))
	assert.Equal(t, []string{"r1"}, exch.revoked)

	_, err = accounts.FindAccountByID(context.Background(), acct.ID)
	assert.ErrorIs(t, err, account.ErrNotFound)
}

func TestOrchestrator_Unlink_RevocationFailureStillDeletes(t *testing.T) {
	exch := &fakeExchanger{
		token: &google.Token{
			AccessToken:  "a1",
			RefreshToken: "r1",
			Expiry:       time.Now().Add(time.Hour),
		},
		revokeErr: errors.New("revocation endpoint unavailable"),
	}
	o, accounts := newTestOrchestrator(t, exch, &fakeProfiles{email: "mailbox@example.com"})

	state := initiateAndExtractState(t, o, "u1")
	acct, err := o.HandleCallback(context.Background(), state, "c1")
	require.NoError(t, err)

	require.NoError(t, o.Unlink(context.Background(), acct.ID))

	_, err = accounts.FindAccountByID(context.Background(), acct.ID)
	assert.ErrorIs(t, err, account.ErrNotFound)
}

func TestOrchestrator_Unlink_UnknownAccount(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeExchanger{}, &fakeProfiles{})

	err := o.Unlink(context.Background(), "missing")
	assert.ErrorIs(t, err, account.ErrNotFound)
}
