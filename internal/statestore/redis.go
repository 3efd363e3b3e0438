package statestore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces state tokens in a shared Redis instance.
const keyPrefix = "oauth:state:"

// RedisStore is a Redis-backed Store for multi-instance deployments.
// Consume uses GETDEL, which the server executes atomically, so the replay
// guarantee holds across processes.
type RedisStore struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// RedisOptions holds connection settings for NewRedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(ctx context.Context, opts RedisOptions, logger *slog.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	logger.Info("connected to Redis state store", "addr", opts.Addr, "db", opts.DB)

	return &RedisStore{rdb: rdb, logger: logger}, nil
}

// Put stores the owning user id under the state token with a server-side TTL.
func (s *RedisStore) Put(ctx context.Context, token, userID string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, keyPrefix+token, userID, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Consume atomically reads and deletes the state token via GETDEL. Expiry is
// enforced server-side by the key TTL.
func (s *RedisStore) Consume(ctx context.Context, token string) (string, bool, error) {
	userID, err := s.rdb.GetDel(ctx, keyPrefix+token).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return userID, true, nil
}

// Ping reports whether the backing Redis is reachable. Used by readiness
// probes.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
