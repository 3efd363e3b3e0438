package statestore

import (
	"context"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore(nil)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMemoryStore_ConsumeOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "state-123", "user-1", 5*time.Minute); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	userID, ok, err := s.Consume(ctx, "state-123")
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if !ok {
		t.Fatal("Consume() ok = false, want true")
	}
	if userID != "user-1" {
		t.Errorf("Consume() userID = %q, want user-1", userID)
	}

	// Second consume of the same token must see absent.
	_, ok, err = s.Consume(ctx, "state-123")
	if err != nil {
		t.Fatalf("second Consume() error = %v", err)
	}
	if ok {
		t.Error("second Consume() ok = true, want false")
	}
}

func TestMemoryStore_UnknownToken(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.Consume(context.Background(), "never-issued")
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if ok {
		t.Error("Consume() ok = true for unknown token, want false")
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }

	if err := s.Put(ctx, "state-exp", "user-1", 300*time.Second); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// Advance past the TTL without running cleanup; the entry must still be
	// treated as absent.
	now = now.Add(301 * time.Second)

	_, ok, err := s.Consume(ctx, "state-exp")
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if ok {
		t.Error("Consume() ok = true for expired token, want false")
	}
}

func TestMemoryStore_CleanupExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }

	_ = s.Put(ctx, "a", "user-1", time.Second)
	_ = s.Put(ctx, "b", "user-2", time.Hour)

	now = now.Add(2 * time.Second)
	s.cleanupExpired()

	s.mu.Lock()
	_, aExists := s.entries["a"]
	_, bExists := s.entries["b"]
	s.mu.Unlock()

	if aExists {
		t.Error("expired entry survived cleanup")
	}
	if !bExists {
		t.Error("live entry removed by cleanup")
	}
}

func TestMemoryStore_ConcurrentConsume(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "state-race", "user-1", time.Minute); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	const callers = 16
	var wg sync.WaitGroup
	successes := make(chan string, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if userID, ok, _ := s.Consume(ctx, "state-race"); ok {
				successes <- userID
			}
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for userID := range successes {
		count++
		if userID != "user-1" {
			t.Errorf("Consume() userID = %q, want user-1", userID)
		}
	}
	if count != 1 {
		t.Errorf("%d concurrent consumers succeeded, want exactly 1", count)
	}
}
