package account

import (
	"context"
	"errors"
)

// ErrNotFound indicates the requested user or account does not exist.
// Lookups never create records implicitly.
var ErrNotFound = errors.New("record not found")

// Store is the persistence boundary for users and linked accounts.
type Store interface {
	// CreateUser inserts a new user.
	CreateUser(ctx context.Context, user *User) error

	// FindUser returns the user with the given id, or ErrNotFound.
	FindUser(ctx context.Context, userID string) (*User, error)

	// UpsertAccount creates the account for (userID, emailAddress) if absent,
	// otherwise updates the access token and expiry unconditionally and the
	// refresh token only when creds.RefreshToken is non-empty. It returns the
	// stored record.
	UpsertAccount(ctx context.Context, userID, emailAddress string, creds Credentials) (*Account, error)

	// FindAccount returns the account for (userID, emailAddress), or
	// ErrNotFound.
	FindAccount(ctx context.Context, userID, emailAddress string) (*Account, error)

	// FindAccountByID returns the account with the given id, or ErrNotFound.
	FindAccountByID(ctx context.Context, accountID string) (*Account, error)

	// DeleteAccount removes the account with the given id, or ErrNotFound.
	DeleteAccount(ctx context.Context, accountID string) error

	Close() error
}
