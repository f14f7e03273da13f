// Package cache holds the Redis client and the idempotency stores used to
// deliver each payables event to notification consumers once.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/billpay/backend/internal/domain/shared"
	"github.com/billpay/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

const (
	pingTimeout = 5 * time.Second

	// DefaultIdempotencyKeyPrefix namespaces processed event ids in Redis
	DefaultIdempotencyKeyPrefix = "billpay:idempotency:"
)

// NewRedisClient dials Redis and fails unless a PING answers within five seconds
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// NewIdempotencyStore shares processed ids through Redis when a client is
// given. Without one the ids live in process memory, so a second instance
// may notify the same event again.
func NewIdempotencyStore(client redis.UniversalClient, prefix string) shared.IdempotencyStore {
	if client == nil {
		return NewInMemoryIdempotencyStore()
	}
	return NewRedisIdempotencyStore(client, prefix)
}

// RedisIdempotencyStore keeps one key per processed event id, expiring
// after the configured TTL
type RedisIdempotencyStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisIdempotencyStore borrows client; Close leaves it open
func NewRedisIdempotencyStore(client redis.UniversalClient, prefix string) *RedisIdempotencyStore {
	if prefix == "" {
		prefix = DefaultIdempotencyKeyPrefix
	}
	return &RedisIdempotencyStore{client: client, prefix: prefix}
}

func (s *RedisIdempotencyStore) key(eventID string) string {
	return s.prefix + eventID
}

// MarkProcessed is a SET NX: exactly one concurrent caller gets true
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	won, err := s.client.SetNX(ctx, s.key(eventID), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark event %s: %w", eventID, err)
	}
	return won, nil
}

func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("check event %s: %w", eventID, err)
	}
	return n == 1, nil
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, eventID string) error {
	if err := s.client.Del(ctx, s.key(eventID)).Err(); err != nil {
		return fmt.Errorf("release event %s: %w", eventID, err)
	}
	return nil
}

func (s *RedisIdempotencyStore) Close() error { return nil }

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
