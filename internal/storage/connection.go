package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig describes the cart collection's database connection.
type MongoConfig struct {
	URI            string
	Database       string
	MaxPoolSize    uint64
	MinPoolSize    uint64
	ConnectTimeout time.Duration
	// CartExpiry drops carts untouched for this long; zero keeps them forever.
	CartExpiry time.Duration
}

func (c MongoConfig) clientOptions() *options.ClientOptions {
	return options.Client().
		ApplyURI(c.URI).
		SetAppName("storefront").
		SetConnectTimeout(c.ConnectTimeout).
		SetServerSelectionTimeout(c.ConnectTimeout).
		SetMaxPoolSize(c.MaxPoolSize).
		SetMinPoolSize(c.MinPoolSize)
}

// OpenMongoKV connects to MongoDB and prepares the carts collection. The
// connection is verified before returning, so a bad URI fails at startup.
func OpenMongoKV(ctx context.Context, cfg MongoConfig) (*MongoKV, error) {
	client, err := mongo.Connect(ctx, cfg.clientOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB at %s: %w", cfg.Database, err)
	}

	kv := NewMongoKV(client.Database(cfg.Database))
	if cfg.CartExpiry > 0 {
		if err := kv.ensureExpiryIndex(ctx, cfg.CartExpiry); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
	}
	return kv, nil
}
