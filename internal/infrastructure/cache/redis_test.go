package cache

import (
	"context"
	"testing"
	"time"

	"github.com/billpay/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIdempotencyStore(t *testing.T) {
	mem := NewIdempotencyStore(nil, "")
	defer mem.Close()
	assert.IsType(t, &InMemoryIdempotencyStore{}, mem)

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()
	shared := NewIdempotencyStore(client, "test:")
	rs, ok := shared.(*RedisIdempotencyStore)
	require.True(t, ok)
	assert.Equal(t, "test:evt-1", rs.key("evt-1"))
	assert.Equal(t, DefaultIdempotencyKeyPrefix+"evt-1", NewRedisIdempotencyStore(client, "").key("evt-1"))
}

func TestRedisIdempotencyStore_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer client.Close()
	store := NewRedisIdempotencyStore(client, "")

	_, err := store.MarkProcessed(context.Background(), "evt-1", time.Hour)
	assert.ErrorContains(t, err, "mark event evt-1")

	_, err = store.IsProcessed(context.Background(), "evt-1")
	assert.ErrorContains(t, err, "check event evt-1")

	assert.ErrorContains(t, store.Release(context.Background(), "evt-1"), "release event evt-1")
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	_, err := NewRedisClient(context.Background(), config.RedisConfig{Host: "127.0.0.1", Port: 1})
	assert.ErrorContains(t, err, "redis 127.0.0.1:1")
}
