package repository

import (
	"context"

	"wallet-activity-stats/internal/domain/entity"
)

// EnrichmentCacheRepository persists immutable enrichment lookups across process restarts.
// Get methods return found=false without error on a miss.
type EnrichmentCacheRepository interface {
	GetLogs(ctx context.Context, txHash string) (logs []entity.TxLog, found bool, err error)
	SaveLogs(ctx context.Context, txHash string, logs []entity.TxLog) error

	GetTokenInfo(ctx context.Context, address string) (info entity.TokenInfo, found bool, err error)
	SaveTokenInfo(ctx context.Context, info entity.TokenInfo) error
}
