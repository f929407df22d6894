package database

import (
	"context"
	"time"

	"wallet-activity-stats/internal/infrastructure/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names of the enrichment cache
const (
	CollectionTxLogs    = "tx_logs"
	CollectionTokenInfo = "token_info"
)

// MongoDB represents MongoDB database connection
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
	config   *config.MongoDBConfig
}

func clientOptions(cfg *config.MongoDBConfig) *options.ClientOptions {
	return options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(60 * time.Second).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetSocketTimeout(30 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true).
		SetCompressors([]string{"snappy"})
}

// NewMongoDB creates new MongoDB connection
func NewMongoDB(cfg *config.MongoDBConfig) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions(cfg))
	if err != nil {
		return nil, err
	}

	// Ping to verify connection with retry logic
	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		if err := client.Ping(ctx, nil); err != nil {
			if i == maxRetries-1 {
				client.Disconnect(ctx)
				return nil, err
			}
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}
		break
	}

	return &MongoDB{
		Client:   client,
		Database: client.Database(cfg.Database),
		config:   cfg,
	}, nil
}

// Close closes MongoDB connection
func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// GetCollection returns a collection
func (m *MongoDB) GetCollection(name string) *mongo.Collection {
	return m.Database.Collection(name)
}

// CreateIndexes creates the cache collection indexes.
// Logs never expire; token metadata expires through a TTL index on cached_at.
func (m *MongoDB) CreateIndexes(ctx context.Context) error {
	logsIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tx_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := m.GetCollection(CollectionTxLogs).Indexes().CreateMany(ctx, logsIndexes); err != nil {
		return err
	}

	tokenIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "address", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if ttl := m.config.TokenInfoTTL; ttl > 0 {
		tokenIndexes = append(tokenIndexes, mongo.IndexModel{
			Keys:    bson.D{{Key: "cached_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(ttl.Seconds())),
		})
	}
	if _, err := m.GetCollection(CollectionTokenInfo).Indexes().CreateMany(ctx, tokenIndexes); err != nil {
		return err
	}

	return nil
}

// HealthCheck performs MongoDB health check
func (m *MongoDB) HealthCheck(ctx context.Context) error {
	return m.Client.Ping(ctx, nil)
}
