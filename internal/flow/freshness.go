package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/inboxlink/inboxlink/internal/account"
	"github.com/inboxlink/inboxlink/internal/google"
	"github.com/inboxlink/inboxlink/internal/instrumentation"
	"github.com/inboxlink/inboxlink/internal/logging"
)

// expirySkew is how far before actual expiry a token is treated as expired.
// Covers clock drift and the latency of the request the token is about to be
// used for.
const expirySkew = 60 * time.Second

// Guard hands out access tokens that are guaranteed to outlive the request
// they are fetched for. When a stored token is expired, or within expirySkew
// of expiring, the guard refreshes it and persists the result before
// returning. The persisted update never touches the stored refresh token.
type Guard struct {
	accounts  account.Store
	exchanger google.Exchanger
	metrics   *instrumentation.Metrics
	logger    *slog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewGuard creates a freshness guard over the given store and exchanger.
func NewGuard(accounts account.Store, exchanger google.Exchanger, metrics *instrumentation.Metrics, logger *slog.Logger) *Guard {
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		accounts:  accounts,
		exchanger: exchanger,
		metrics:   metrics,
		logger:    logging.WithComponent(logger, "freshness"),
		now:       time.Now,
	}
}

// Fresh returns the account for (userID, emailAddress) with a usable access
// token, refreshing first if needed.
func (g *Guard) Fresh(ctx context.Context, userID, emailAddress string) (*account.Account, error) {
	acct, err := g.accounts.FindAccount(ctx, userID, emailAddress)
	if err != nil {
		return nil, err
	}
	return g.ensure(ctx, acct)
}

// FreshByID is Fresh keyed by account id.
func (g *Guard) FreshByID(ctx context.Context, accountID string) (*account.Account, error) {
	acct, err := g.accounts.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return g.ensure(ctx, acct)
}

func (g *Guard) ensure(ctx context.Context, acct *account.Account) (*account.Account, error) {
	if !g.expired(acct) {
		return acct, nil
	}

	if acct.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token on record", ErrReauthorizationRequired)
	}

	tok, err := g.exchanger.Refresh(ctx, acct.RefreshToken)
	if err != nil {
		g.metrics.RecordTokenRefresh(ctx, instrumentation.ResultFailure)
		g.logger.Warn("token refresh failed",
			logging.Operation("refresh"),
			logging.AccountID(acct.ID),
			logging.Err(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	// The provider does not reissue refresh tokens on refresh; an empty
	// RefreshToken leaves the stored one untouched.
	updated, err := g.accounts.UpsertAccount(ctx, acct.UserID, acct.EmailAddress, account.Credentials{
		AccessToken: tok.AccessToken,
		TokenExpiry: tok.Expiry,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	g.metrics.RecordTokenRefresh(ctx, instrumentation.ResultSuccess)
	g.logger.Info("access token refreshed",
		logging.Operation("refresh"),
		logging.AccountID(acct.ID),
		slog.Time("token_expiry", updated.TokenExpiry),
	)
	return updated, nil
}

// expired reports whether the token is expired or will be within expirySkew.
// A zero expiry is treated as expired.
func (g *Guard) expired(acct *account.Account) bool {
	if acct.TokenExpiry.IsZero() {
		return true
	}
	return !acct.TokenExpiry.After(g.now().Add(expirySkew))
}
