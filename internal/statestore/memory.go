package statestore

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// cleanupInterval is how often expired entries are purged in the background.
const cleanupInterval = 1 * time.Minute

type memoryEntry struct {
	userID    string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store for single-instance deployments and
// tests. Consume deletes under the write lock, so two concurrent callbacks
// carrying the same state token cannot both succeed.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	logger  *slog.Logger
	done    chan struct{}

	// now is replaceable in tests.
	now func() time.Time
}

// NewMemoryStore creates a MemoryStore and starts its cleanup goroutine.
func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}

	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		logger:  logger,
		done:    make(chan struct{}),
		now:     time.Now,
	}

	go s.cleanup()

	return s
}

// Put stores the owning user id under the state token.
func (s *MemoryStore) Put(_ context.Context, token, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[token] = memoryEntry{
		userID:    userID,
		expiresAt: s.now().Add(ttl),
	}

	s.logger.Debug("stored state token", "expires_in", ttl.String())
	return nil
}

// Consume atomically reads and deletes the state token. Expired entries are
// treated as absent even if the cleanup goroutine has not removed them yet.
func (s *MemoryStore) Consume(_ context.Context, token string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[token]
	if !exists {
		return "", false, nil
	}

	// Delete immediately so a duplicated callback sees "absent".
	delete(s.entries, token)

	if s.now().After(entry.expiresAt) {
		return "", false, nil
	}

	return entry.userID, true, nil
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() error {
	close(s.done)
	return nil
}

// cleanup periodically removes expired entries.
func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.cleanupExpired()
		}
	}
}

func (s *MemoryStore) cleanupExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	deleted := 0
	for token, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, token)
			deleted++
		}
	}

	if deleted > 0 {
		s.logger.Debug("cleaned up expired state tokens", "deleted", deleted)
	}
}
