package service

import (
	"context"

	"wallet-activity-stats/internal/domain/entity"
)

// ReceiptService interface for JSON-RPC receipt and token metadata lookups
type ReceiptService interface {
	// Connection management
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool

	// GetReceiptLogs returns the logs of a mined transaction, empty when the receipt is unknown
	GetReceiptLogs(ctx context.Context, txHash string) ([]entity.TxLog, error)

	// GetTokenMetadata probes name/symbol and ERC-165 interfaces of a contract
	GetTokenMetadata(ctx context.Context, address string) (entity.TokenInfo, error)

	// Health check
	HealthCheck(ctx context.Context) error
}
