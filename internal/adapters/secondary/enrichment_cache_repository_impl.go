package secondary

import (
	"context"
	"strings"
	"time"

	"wallet-activity-stats/internal/domain/entity"
	"wallet-activity-stats/internal/domain/repository"
	"wallet-activity-stats/internal/infrastructure/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type txLogsDocument struct {
	TxHash   string         `bson:"tx_hash"`
	Logs     []entity.TxLog `bson:"logs"`
	CachedAt time.Time      `bson:"cached_at"`
}

type tokenInfoDocument struct {
	Address  string    `bson:"address"`
	Name     string    `bson:"name,omitempty"`
	Symbol   string    `bson:"symbol,omitempty"`
	Type     string    `bson:"type,omitempty"`
	CachedAt time.Time `bson:"cached_at"`
}

// EnrichmentCacheRepositoryImpl implements EnrichmentCacheRepository on MongoDB
type EnrichmentCacheRepositoryImpl struct {
	logs   *mongo.Collection
	tokens *mongo.Collection
}

// NewEnrichmentCacheRepository creates new enrichment cache repository
func NewEnrichmentCacheRepository(db *database.MongoDB) repository.EnrichmentCacheRepository {
	return &EnrichmentCacheRepositoryImpl{
		logs:   db.GetCollection(database.CollectionTxLogs),
		tokens: db.GetCollection(database.CollectionTokenInfo),
	}
}

// retryOperation executes an operation with retry logic for MongoDB connection issues
func (r *EnrichmentCacheRepositoryImpl) retryOperation(ctx context.Context, operation func() error) error {
	maxRetries := 3
	baseDelay := 200 * time.Millisecond

	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = operation()
		if err == nil {
			return nil
		}

		if !isConnectionError(err) || attempt == maxRetries-1 {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(baseDelay * time.Duration(attempt+1)):
		}
	}

	return err
}

// isConnectionError checks if the error is related to MongoDB connection issues
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	connectionErrors := []string{
		"connection",
		"network",
		"server selection",
		"no reachable servers",
		"socket",
		"broken pipe",
	}

	for _, connErr := range connectionErrors {
		if strings.Contains(errStr, connErr) {
			return true
		}
	}

	return false
}

// GetLogs loads cached logs for a transaction hash
func (r *EnrichmentCacheRepositoryImpl) GetLogs(ctx context.Context, txHash string) ([]entity.TxLog, bool, error) {
	var doc txLogsDocument
	err := r.logs.FindOne(ctx, bson.M{"tx_hash": txHash}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, false, nil
		}
		return nil, false, err
	}
	return doc.Logs, true, nil
}

// SaveLogs upserts logs for a transaction hash
func (r *EnrichmentCacheRepositoryImpl) SaveLogs(ctx context.Context, txHash string, logs []entity.TxLog) error {
	doc := txLogsDocument{TxHash: txHash, Logs: logs, CachedAt: time.Now().UTC()}
	return r.retryOperation(ctx, func() error {
		_, err := r.logs.ReplaceOne(ctx, bson.M{"tx_hash": txHash}, doc, options.Replace().SetUpsert(true))
		return err
	})
}

// GetTokenInfo loads cached token metadata
func (r *EnrichmentCacheRepositoryImpl) GetTokenInfo(ctx context.Context, address string) (entity.TokenInfo, bool, error) {
	var doc tokenInfoDocument
	err := r.tokens.FindOne(ctx, bson.M{"address": address}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return entity.TokenInfo{}, false, nil
		}
		return entity.TokenInfo{}, false, err
	}
	return entity.TokenInfo{Address: doc.Address, Name: doc.Name, Symbol: doc.Symbol, Type: doc.Type}, true, nil
}

// SaveTokenInfo upserts token metadata
func (r *EnrichmentCacheRepositoryImpl) SaveTokenInfo(ctx context.Context, info entity.TokenInfo) error {
	doc := tokenInfoDocument{
		Address:  info.Address,
		Name:     info.Name,
		Symbol:   info.Symbol,
		Type:     info.Type,
		CachedAt: time.Now().UTC(),
	}
	return r.retryOperation(ctx, func() error {
		_, err := r.tokens.ReplaceOne(ctx, bson.M{"address": info.Address}, doc, options.Replace().SetUpsert(true))
		return err
	})
}
