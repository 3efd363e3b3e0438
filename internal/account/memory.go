package account

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*User
	accounts map[string]*Account // account id -> account

	// now is replaceable in tests.
	now func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*User),
		accounts: make(map[string]*Account),
		now:      time.Now,
	}
}

// CreateUser inserts a new user, generating an id if absent.
func (s *MemoryStore) CreateUser(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}

	stored := *user
	s.users[user.ID] = &stored
	return nil
}

// FindUser returns the user with the given id.
func (s *MemoryStore) FindUser(_ context.Context, userID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}

	copied := *user
	return &copied, nil
}

// UpsertAccount creates or updates the account for (userID, emailAddress).
func (s *MemoryStore) UpsertAccount(_ context.Context, userID, emailAddress string, creds Credentials) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	for _, acct := range s.accounts {
		if acct.UserID == userID && acct.EmailAddress == emailAddress {
			acct.AccessToken = creds.AccessToken
			acct.TokenExpiry = creds.TokenExpiry
			if creds.RefreshToken != "" {
				acct.RefreshToken = creds.RefreshToken
			}
			acct.UpdatedAt = now

			copied := *acct
			return &copied, nil
		}
	}

	acct := &Account{
		ID:           uuid.NewString(),
		UserID:       userID,
		EmailAddress: emailAddress,
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		TokenExpiry:  creds.TokenExpiry,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.accounts[acct.ID] = acct

	copied := *acct
	return &copied, nil
}

// FindAccount returns the account for (userID, emailAddress).
func (s *MemoryStore) FindAccount(_ context.Context, userID, emailAddress string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, acct := range s.accounts {
		if acct.UserID == userID && acct.EmailAddress == emailAddress {
			copied := *acct
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// FindAccountByID returns the account with the given id.
func (s *MemoryStore) FindAccountByID(_ context.Context, accountID string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[accountID]
	if !ok {
		return nil, ErrNotFound
	}

	copied := *acct
	return &copied, nil
}

// DeleteAccount removes the account with the given id.
func (s *MemoryStore) DeleteAccount(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[accountID]; !ok {
		return ErrNotFound
	}
	delete(s.accounts, accountID)
	return nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}
