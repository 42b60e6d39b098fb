package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, BackendRedis, cfg.StorageBackend)
	assert.Equal(t, 2*time.Second, cfg.CouponAutoClear)
	assert.Equal(t, 720*time.Hour, cfg.CartTTL)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "mongo")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("COUPON_AUTO_CLEAR", "500ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendMongo, cfg.StorageBackend)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 500*time.Millisecond, cfg.CouponAutoClear)
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "etcd")

	_, err := Load()
	require.ErrorContains(t, err, "unknown storage backend")
}

func TestLoad_NonPositiveDuration(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "0s")

	_, err := Load()
	require.ErrorContains(t, err, "REQUEST_TIMEOUT must be positive")
}

func TestLoad_MongoSettings(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "mongo")
	t.Setenv("MONGO_URI", "mongodb://carts.internal:27017")
	t.Setenv("MONGO_MAX_POOL_SIZE", "40")
	t.Setenv("MONGO_MIN_POOL_SIZE", "4")
	t.Setenv("MONGO_CART_EXPIRY", "24h")

	cfg, err := Load()
	require.NoError(t, err)

	mongo := cfg.Mongo()
	assert.Equal(t, "mongodb://carts.internal:27017", mongo.URI)
	assert.Equal(t, "cartdb", mongo.Database)
	assert.Equal(t, uint64(40), mongo.MaxPoolSize)
	assert.Equal(t, uint64(4), mongo.MinPoolSize)
	assert.Equal(t, 10*time.Second, mongo.ConnectTimeout)
	assert.Equal(t, 24*time.Hour, mongo.CartExpiry)
}

func TestLoad_MongoPoolBounds(t *testing.T) {
	t.Setenv("MONGO_MAX_POOL_SIZE", "5")
	t.Setenv("MONGO_MIN_POOL_SIZE", "10")

	_, err := Load()
	require.ErrorContains(t, err, "exceeds MONGO_MAX_POOL_SIZE")
}
