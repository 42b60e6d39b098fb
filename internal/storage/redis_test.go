package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisKV instance
func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisKV, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	kv := NewRedisKV(client, ttl)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return kv, mr, cleanup
}

func TestRedisGet_Success(t *testing.T) {
	kv, mr, cleanup := setupTestRedis(t, 0)
	defer cleanup()

	require.NoError(t, mr.Set("cart:v1", `{"version":1,"items":[]}`))

	data, err := kv.Get(context.Background(), "cart:v1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"items":[]}`, string(data))
}

func TestRedisGet_NotFound(t *testing.T) {
	kv, _, cleanup := setupTestRedis(t, 0)
	defer cleanup()

	data, err := kv.Get(context.Background(), "cart:missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, data)
}

func TestRedisGet_ServerDown(t *testing.T) {
	kv, mr, cleanup := setupTestRedis(t, 0)
	defer cleanup()
	mr.Close()

	_, err := kv.Get(context.Background(), "cart:v1")
	require.ErrorContains(t, err, "redis get failed")
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestRedisSet_WithoutTTL(t *testing.T) {
	kv, mr, cleanup := setupTestRedis(t, 0)
	defer cleanup()

	require.NoError(t, kv.Set(context.Background(), "cart:v1", []byte("payload")))

	stored, err := mr.Get("cart:v1")
	require.NoError(t, err)
	assert.Equal(t, "payload", stored)
	assert.Equal(t, time.Duration(0), mr.TTL("cart:v1"))
}

func TestRedisSet_WithTTL(t *testing.T) {
	kv, mr, cleanup := setupTestRedis(t, 15*time.Minute)
	defer cleanup()

	require.NoError(t, kv.Set(context.Background(), "cart:v1", []byte("payload")))

	ttl := mr.TTL("cart:v1")
	assert.True(t, ttl >= 15*time.Minute, "TTL should be at least base TTL")
	assert.True(t, ttl <= 20*time.Minute, "TTL should be base + max jitter")
}

func TestRedisDelete(t *testing.T) {
	kv, mr, cleanup := setupTestRedis(t, 0)
	defer cleanup()

	require.NoError(t, mr.Set("cart:v1", "payload"))
	require.NoError(t, kv.Delete(context.Background(), "cart:v1"))
	assert.False(t, mr.Exists("cart:v1"))

	// Deleting non-existent key should not error
	assert.NoError(t, kv.Delete(context.Background(), "cart:missing"))
}
