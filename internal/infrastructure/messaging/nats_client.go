package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"wallet-activity-stats/internal/domain/entity"
	"wallet-activity-stats/internal/domain/service"
	"wallet-activity-stats/internal/infrastructure/config"
	"wallet-activity-stats/internal/infrastructure/logger"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// StatsComputedEvent is the summary published after a successful stats computation.
// It omits the transaction list to keep messages small.
type StatsComputedEvent struct {
	Address             string                `json:"address"`
	From                int64                 `json:"from"`
	To                  int64                 `json:"to"`
	Source              entity.Source         `json:"source"`
	Totals              entity.Totals         `json:"totals"`
	CountsByCategoryOut entity.CategoryCounts `json:"countsByCategoryOut"`
	Warnings            []string              `json:"warnings,omitempty"`
	ComputedAt          time.Time             `json:"computed_at"`
}

// NewStatsComputedEvent builds the event for stats
func NewStatsComputedEvent(stats *entity.AddressStats) *StatsComputedEvent {
	return &StatsComputedEvent{
		Address:             stats.Address,
		From:                stats.From,
		To:                  stats.To,
		Source:              stats.Source,
		Totals:              stats.Totals,
		CountsByCategoryOut: stats.CountsByCategoryOut,
		Warnings:            stats.Debug.Warnings,
		ComputedAt:          time.Now().UTC(),
	}
}

// MessageID is the JetStream dedup key, one message per address and window
func (e *StatsComputedEvent) MessageID() string {
	return fmt.Sprintf("%s:%d:%d", e.Address, e.From, e.To)
}

// NATSClient handles NATS JetStream operations and implements StatsPublisher
type NATSClient struct {
	mu        sync.RWMutex
	conn      *nats.Conn
	js        nats.JetStreamContext
	config    *config.NATSConfig
	logger    *logger.Logger
	isRunning bool
}

var _ service.StatsPublisher = (*NATSClient)(nil)

// NewNATSClient creates a new NATS client
func NewNATSClient(cfg *config.NATSConfig, logger *logger.Logger) *NATSClient {
	return &NATSClient{
		config: cfg,
		logger: logger.WithComponent("nats-client"),
	}
}

// StatsSubject returns the subject stats events are published to
func (n *NATSClient) StatsSubject() string {
	return fmt.Sprintf("%s.stats", n.config.SubjectPrefix)
}

// Connect connects to NATS server and sets up JetStream
func (n *NATSClient) Connect(ctx context.Context) error {
	if !n.config.Enabled {
		n.logger.Info("NATS is disabled, skipping connection")
		return nil
	}

	n.logger.Info("Connecting to NATS server", zap.String("url", n.config.URL))

	opts := []nats.Option{
		nats.Name("wallet-activity-stats"),
		nats.Timeout(n.config.ConnectTimeout),
		nats.ReconnectWait(n.config.ReconnectDelay),
		nats.MaxReconnects(n.config.ReconnectAttempts),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			n.logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			n.logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			n.logger.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(n.config.URL, opts...)
	if err != nil {
		n.logger.Error("Failed to connect to NATS", zap.Error(err))
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		n.logger.Error("Failed to create JetStream context", zap.Error(err))
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	n.mu.Lock()
	n.conn = conn
	n.js = js
	n.mu.Unlock()

	if err := n.setupStream(ctx); err != nil {
		return fmt.Errorf("failed to setup stream: %w", err)
	}

	n.mu.Lock()
	n.isRunning = true
	n.mu.Unlock()
	n.logger.Info("Successfully connected to NATS and setup JetStream")

	return nil
}

// Disconnect disconnects from NATS server
func (n *NATSClient) Disconnect() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.conn != nil {
		n.conn.Close()
		n.conn = nil
		n.js = nil
	}
	n.isRunning = false
	n.logger.Info("Disconnected from NATS")
	return nil
}

// IsConnected checks if connected to NATS
func (n *NATSClient) IsConnected() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.isRunning && n.conn != nil && n.conn.IsConnected()
}

// setupStream creates the JetStream stream when missing
func (n *NATSClient) setupStream(ctx context.Context) error {
	streamName := n.config.StreamName
	subject := n.StatsSubject()

	stream, err := n.js.StreamInfo(streamName, nats.Context(ctx))
	if err == nil {
		n.logger.Info("JetStream stream already exists",
			zap.String("stream", streamName),
			zap.Uint64("messages", stream.State.Msgs))
		return nil
	}

	n.logger.Info("Creating JetStream stream",
		zap.String("stream", streamName),
		zap.String("subject", subject))

	streamConfig := &nats.StreamConfig{
		Name:       streamName,
		Subjects:   []string{subject},
		Storage:    nats.FileStorage,
		Retention:  nats.LimitsPolicy,
		MaxMsgs:    1000000,
		MaxAge:     7 * 24 * time.Hour,
		Duplicates: 5 * time.Minute,
	}

	if _, err := n.js.AddStream(streamConfig, nats.Context(ctx)); err != nil {
		n.logger.Error("Failed to create stream", zap.Error(err))
		return err
	}

	n.logger.Info("Successfully created JetStream stream")
	return nil
}

// PublishStats publishes a stats event to NATS JetStream
func (n *NATSClient) PublishStats(ctx context.Context, stats *entity.AddressStats) error {
	if !n.IsConnected() {
		if !n.config.Enabled {
			return nil
		}
		return fmt.Errorf("NATS client is not connected")
	}

	event := NewStatsComputedEvent(stats)
	data, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("Failed to marshal stats event", zap.Error(err))
		return fmt.Errorf("failed to marshal stats event: %w", err)
	}

	n.mu.RLock()
	js := n.js
	n.mu.RUnlock()

	subject := n.StatsSubject()
	if _, err := js.Publish(subject, data, nats.MsgId(event.MessageID()), nats.Context(ctx)); err != nil {
		n.logger.Error("Failed to publish stats event",
			zap.String("address", stats.Address),
			zap.Error(err))
		return fmt.Errorf("failed to publish stats event: %w", err)
	}

	n.logger.Debug("Published stats event",
		zap.String("address", stats.Address),
		zap.String("subject", subject))

	return nil
}

// GetStreamInfo returns information about the JetStream stream
func (n *NATSClient) GetStreamInfo() (*nats.StreamInfo, error) {
	if !n.IsConnected() {
		return nil, fmt.Errorf("NATS client is not connected")
	}

	n.mu.RLock()
	js := n.js
	n.mu.RUnlock()
	return js.StreamInfo(n.config.StreamName)
}
