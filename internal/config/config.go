package config

import (
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/kelseyhightower/envconfig"
)

const (
	BackendRedis = "redis"
	BackendMongo = "mongo"
)

type Config struct {
	HTTPPort       string `envconfig:"HTTP_PORT" default:"8080"`
	GRPCHealthPort string `envconfig:"GRPC_HEALTH_PORT" default:"50060"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`

	StorageBackend string        `envconfig:"STORAGE_BACKEND" default:"redis"`
	RedisAddr      string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword  string        `envconfig:"REDIS_PASSWORD"`
	RedisDB        int           `envconfig:"REDIS_DB" default:"0"`
	CartTTL        time.Duration `envconfig:"CART_TTL" default:"720h"`
	MongoURI       string        `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDBName    string        `envconfig:"MONGO_DB_NAME" default:"cartdb"`

	MongoMaxPoolSize    uint64        `envconfig:"MONGO_MAX_POOL_SIZE" default:"100"`
	MongoMinPoolSize    uint64        `envconfig:"MONGO_MIN_POOL_SIZE" default:"10"`
	MongoConnectTimeout time.Duration `envconfig:"MONGO_CONNECT_TIMEOUT" default:"10s"`
	MongoCartExpiry     time.Duration `envconfig:"MONGO_CART_EXPIRY" default:"2160h"`

	CatalogDBPath  string        `envconfig:"CATALOG_DB_PATH" default:"./catalog.db"`
	BreakerTimeout time.Duration `envconfig:"CATALOG_BREAKER_TIMEOUT" default:"30s"`

	// Empty disables the checkout poller.
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`

	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	CouponAutoClear time.Duration `envconfig:"COUPON_AUTO_CLEAR" default:"2s"`
	SessionIdleTTL  time.Duration `envconfig:"SESSION_IDLE_TTL" default:"30m"`
	CleanupInterval time.Duration `envconfig:"SESSION_CLEANUP_INTERVAL" default:"1m"`
	CartLoadTimeout time.Duration `envconfig:"CART_LOAD_TIMEOUT" default:"5s"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Mongo returns the cart storage settings for the mongo backend.
func (c *Config) Mongo() storage.MongoConfig {
	return storage.MongoConfig{
		URI:            c.MongoURI,
		Database:       c.MongoDBName,
		MaxPoolSize:    c.MongoMaxPoolSize,
		MinPoolSize:    c.MongoMinPoolSize,
		ConnectTimeout: c.MongoConnectTimeout,
		CartExpiry:     c.MongoCartExpiry,
	}
}

func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendRedis, BackendMongo:
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}

	if c.MongoMinPoolSize > c.MongoMaxPoolSize {
		return fmt.Errorf("MONGO_MIN_POOL_SIZE %d exceeds MONGO_MAX_POOL_SIZE %d", c.MongoMinPoolSize, c.MongoMaxPoolSize)
	}

	durations := map[string]time.Duration{
		"REQUEST_TIMEOUT":          c.RequestTimeout,
		"SHUTDOWN_TIMEOUT":         c.ShutdownTimeout,
		"COUPON_AUTO_CLEAR":        c.CouponAutoClear,
		"SESSION_IDLE_TTL":         c.SessionIdleTTL,
		"SESSION_CLEANUP_INTERVAL": c.CleanupInterval,
		"MONGO_CONNECT_TIMEOUT":    c.MongoConnectTimeout,
		"CART_LOAD_TIMEOUT":        c.CartLoadTimeout,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	return nil
}
