package service

import (
	"context"

	"wallet-activity-stats/internal/domain/entity"
)

// Sort orders accepted by the compat list endpoint
const (
	SortDesc = "desc"
	SortAsc  = "asc"
)

// CompatTxListQuery parameterizes one compat txlist call
type CompatTxListQuery struct {
	Address string
	FromMs  int64
	ToMs    int64
	Sort    string
	Page    int
	Offset  int
}

// CompatTxLister is provider A: a high-offset list endpoint filtered server-side by time
type CompatTxLister interface {
	ListCompatTransactions(ctx context.Context, q CompatTxListQuery) ([]entity.CompatTxRow, error)
}

// RestTxPager is provider B: small pages, newest first, no server-side time filter
type RestTxPager interface {
	ListRestTransactions(ctx context.Context, address string, page, pageSize int) ([]entity.RestTxRow, error)
}

// LogFetcher fetches event logs of a transaction from the explorer
type LogFetcher interface {
	GetTransactionLogs(ctx context.Context, txHash string) ([]entity.TxLog, error)
}

// TokenFetcher fetches token metadata from the explorer
type TokenFetcher interface {
	GetToken(ctx context.Context, address string) (entity.TokenInfo, error)
}

// TransactionSource fetches and normalizes the history of one address
type TransactionSource interface {
	FetchTransactions(ctx context.Context, address string, window entity.TimeWindow) (*entity.FetchResult, error)
}
