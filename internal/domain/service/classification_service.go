package service

import (
	"context"

	"wallet-activity-stats/internal/domain/entity"
)

// EnrichmentProvider supplies best-effort log and token data to the classifier.
// Implementations return an error only for cancellation.
type EnrichmentProvider interface {
	FetchLogs(ctx context.Context, txHash string) ([]entity.TxLog, error)
	FetchTokenInfo(ctx context.Context, address string) (entity.TokenInfo, error)
}

// ClassifyOptions controls the classifier tiers
type ClassifyOptions struct {
	AllowDeepInspection bool
}

// TransactionClassifier assigns a category and direction to one transaction
type TransactionClassifier interface {
	Classify(ctx context.Context, tx *entity.CanonicalTransaction, subject string, opts ClassifyOptions) (entity.EnrichedTransaction, error)
}

// StatsComputer produces AddressStats for one subject and window
type StatsComputer interface {
	ComputeStats(ctx context.Context, address string, window entity.TimeWindow) (*entity.AddressStats, error)
}
