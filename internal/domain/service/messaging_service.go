package service

import (
	"context"

	"wallet-activity-stats/internal/domain/entity"
)

// StatsPublisher defines the interface for publishing computed stats events
type StatsPublisher interface {
	// Connect establishes connection to the messaging system
	Connect(ctx context.Context) error

	// Disconnect closes connection to the messaging system
	Disconnect() error

	// IsConnected checks if connected to the messaging system
	IsConnected() bool

	// PublishStats publishes one computed AddressStats
	PublishStats(ctx context.Context, stats *entity.AddressStats) error
}
