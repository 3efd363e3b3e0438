package statestore

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable indicates the backing store could not be reached. A Put
// failure must abort the authorization flow: no durably stored state, no
// redirect.
var ErrUnavailable = errors.New("state store unavailable")

// Store is the ephemeral state token store.
//
// Put stores the owning user id under the state token with a bounded
// lifetime. Consume atomically reads and deletes the token; it reports
// ok=false for tokens that are absent, already consumed, or expired.
// A non-nil error is reserved for backend failures, not for missing tokens.
type Store interface {
	Put(ctx context.Context, token, userID string, ttl time.Duration) error
	Consume(ctx context.Context, token string) (userID string, ok bool, err error)
	Close() error
}
