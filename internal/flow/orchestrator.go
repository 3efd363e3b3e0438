package flow

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"

	"github.com/inboxlink/inboxlink/internal/account"
	"github.com/inboxlink/inboxlink/internal/google"
	"github.com/inboxlink/inboxlink/internal/logging"
	"github.com/inboxlink/inboxlink/internal/statestore"
)

// DefaultStateTTL is how long an issued state token stays valid. Long enough
// for the user to complete the consent screen, short enough to limit replay
// exposure.
const DefaultStateTTL = 5 * time.Minute

// stateBytes is the entropy of a state token. 32 random bytes hex-encode to
// a 64 character token.
const stateBytes = 32

// Orchestrator drives the account linking flow.
type Orchestrator struct {
	states    statestore.Store
	accounts  account.Store
	oauthConf *oauth2.Config
	exchanger google.Exchanger
	profiles  google.ProfileFetcher
	stateTTL  time.Duration
	logger    *slog.Logger
}

// NewOrchestrator wires the linking flow together. A zero stateTTL falls back
// to DefaultStateTTL.
func NewOrchestrator(
	states statestore.Store,
	accounts account.Store,
	oauthConf *oauth2.Config,
	exchanger google.Exchanger,
	profiles google.ProfileFetcher,
	stateTTL time.Duration,
	logger *slog.Logger,
) *Orchestrator {
	if stateTTL <= 0 {
		stateTTL = DefaultStateTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		states:    states,
		accounts:  accounts,
		oauthConf: oauthConf,
		exchanger: exchanger,
		profiles:  profiles,
		stateTTL:  stateTTL,
		logger:    logging.WithComponent(logger, "flow"),
	}
}

// Initiate starts a linking flow for the given user and returns the provider
// authorization URL. The state token is persisted before the URL is handed
// out; if it cannot be persisted no URL is returned, so every URL in the wild
// has a consumable state behind it.
func (o *Orchestrator) Initiate(ctx context.Context, userID string) (string, error) {
	if _, err := o.accounts.FindUser(ctx, userID); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	state, err := newStateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}

	if err := o.states.Put(ctx, state, userID, o.stateTTL); err != nil {
		return "", fmt.Errorf("failed to persist state token: %w", err)
	}

	o.logger.Info("authorization flow initiated",
		logging.Operation("initiate"),
		slog.String("state_ttl", o.stateTTL.String()),
	)
	return google.AuthCodeURL(o.oauthConf, state), nil
}

// HandleCallback completes a linking flow. The state token is consumed before
// the code exchange, so a replayed callback fails on state validation and
// never reaches the provider. Returns the linked account.
func (o *Orchestrator) HandleCallback(ctx context.Context, state, code string) (*account.Account, error) {
	if state == "" {
		return nil, ErrMissingState
	}

	userID, ok, err := o.states.Consume(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("failed to validate state token: %w", err)
	}
	if !ok {
		return nil, ErrInvalidState
	}

	tok, err := o.exchanger.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	email, err := o.profiles.EmailAddress(ctx, tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFetch, err)
	}

	acct, err := o.accounts.UpsertAccount(ctx, userID, email, account.Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenExpiry:  tok.Expiry,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist linked account: %w", err)
	}

	o.logger.Info("account linked",
		logging.Operation("callback"),
		logging.AccountID(acct.ID),
		logging.UserHash(email),
	)
	return acct, nil
}

// Unlink revokes the account's credentials at the provider and removes the
// stored record. Revocation is best effort: a provider failure is logged but
// does not keep the local record alive.
func (o *Orchestrator) Unlink(ctx context.Context, accountID string) error {
	acct, err := o.accounts.FindAccountByID(ctx, accountID)
	if err != nil {
		return err
	}

	token := acct.RefreshToken
	if token == "" {
		token = acct.AccessToken
	}
	if token != "" {
		if err := o.exchanger.Revoke(ctx, token); err != nil {
			o.logger.Warn("token revocation failed",
				logging.Operation("unlink"),
				logging.AccountID(accountID),
				logging.Err(err),
			)
		}
	}

	if err := o.accounts.DeleteAccount(ctx, accountID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	o.logger.Info("account unlinked",
		logging.Operation("unlink"),
		logging.AccountID(accountID),
	)
	return nil
}

func newStateToken() (string, error) {
	buf := make([]byte, stateBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
