package enrichment

import (
	"context"
	"strings"

	"wallet-activity-stats/internal/domain/entity"
	"wallet-activity-stats/internal/domain/repository"
	"wallet-activity-stats/internal/domain/service"
	"wallet-activity-stats/internal/infrastructure/cache"
	"wallet-activity-stats/internal/infrastructure/config"
	"wallet-activity-stats/internal/infrastructure/logger"
	"wallet-activity-stats/internal/infrastructure/metrics"
	"wallet-activity-stats/pkg/errors"
	"wallet-activity-stats/pkg/utils"

	"go.uber.org/zap"
)

// Cache kinds and layers used as metric labels
const (
	kindLogs  = "logs"
	kindToken = "token"

	layerMemory = "memory"
	layerStore  = "store"
)

// Provider resolves logs and token metadata through an in-memory cache, an optional
// persistent store, the explorer and finally JSON-RPC. It implements EnrichmentProvider.
type Provider struct {
	logFetcher   service.LogFetcher
	tokenFetcher service.TokenFetcher
	rpc          service.ReceiptService
	store        repository.EnrichmentCacheRepository

	logs   *cache.TTLCache[string, []entity.TxLog]
	tokens *cache.TTLCache[string, entity.TokenInfo]

	logger *logger.Logger
}

var _ service.EnrichmentProvider = (*Provider)(nil)

// Option configures optional Provider layers
type Option func(*Provider)

// WithStore adds a persistent cache consulted after the in-memory one
func WithStore(store repository.EnrichmentCacheRepository) Option {
	return func(p *Provider) {
		p.store = store
	}
}

// WithRPC adds a JSON-RPC fallback used when the explorer has nothing
func WithRPC(rpc service.ReceiptService) Option {
	return func(p *Provider) {
		p.rpc = rpc
	}
}

// Caches holds the in-memory layers of a Provider. Providers built from the
// same Caches share hits; separate instances are scoped independently.
type Caches struct {
	Logs   *cache.TTLCache[string, []entity.TxLog]
	Tokens *cache.TTLCache[string, entity.TokenInfo]
}

// NewCaches builds empty in-memory layers sized by cfg
func NewCaches(cfg *config.CacheConfig) *Caches {
	return &Caches{
		Logs:   cache.NewTTLCache[string, []entity.TxLog](cfg.Size, cfg.LogsTTL),
		Tokens: cache.NewTTLCache[string, entity.TokenInfo](cfg.Size, cfg.TokenInfoTTL),
	}
}

// NewProvider creates new enrichment provider
func NewProvider(logFetcher service.LogFetcher, tokenFetcher service.TokenFetcher, caches *Caches, log *logger.Logger, opts ...Option) *Provider {
	p := &Provider{
		logFetcher:   logFetcher,
		tokenFetcher: tokenFetcher,
		logs:         caches.Logs,
		tokens:       caches.Tokens,
		logger:       log.WithComponent("enrichment-provider"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FetchLogs returns the event logs of txHash, empty when nothing is known.
// Malformed hashes are answered empty without an upstream call.
// The only error returned is cancellation.
func (p *Provider) FetchLogs(ctx context.Context, txHash string) ([]entity.TxLog, error) {
	key := strings.ToLower(txHash)
	if !utils.ValidateEthereumHash(key) {
		return []entity.TxLog{}, nil
	}
	log := p.logger.WithTransaction(key)

	if logs, ok := p.logs.Get(key); ok {
		metrics.CacheLookups.WithLabelValues(kindLogs, layerMemory, "hit").Inc()
		return logs, nil
	}
	metrics.CacheLookups.WithLabelValues(kindLogs, layerMemory, "miss").Inc()

	if p.store != nil {
		logs, found, err := p.store.GetLogs(ctx, key)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, errors.NewCancelledError(ctx.Err())
			}
			log.Debug("Log store lookup failed", zap.Error(err))
		case found && len(logs) > 0:
			metrics.CacheLookups.WithLabelValues(kindLogs, layerStore, "hit").Inc()
			p.logs.Add(key, logs)
			return logs, nil
		default:
			metrics.CacheLookups.WithLabelValues(kindLogs, layerStore, "miss").Inc()
		}
	}

	logs, err := p.logFetcher.GetTransactionLogs(ctx, key)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCancelledError(ctx.Err())
		}
		log.Debug("Explorer logs lookup failed", zap.Error(err))
		logs = nil
	}

	if len(logs) == 0 && p.rpcReady() {
		rpcLogs, err := p.rpc.GetReceiptLogs(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.NewCancelledError(ctx.Err())
			}
			log.Debug("RPC receipt lookup failed", zap.Error(err))
		} else {
			logs = rpcLogs
		}
	}

	if len(logs) == 0 {
		return []entity.TxLog{}, nil
	}

	p.logs.Add(key, logs)
	if p.store != nil {
		if err := p.store.SaveLogs(ctx, key, logs); err != nil {
			log.Debug("Failed to persist logs", zap.Error(err))
		}
	}
	return logs, nil
}

// FetchTokenInfo returns best-effort metadata for a token contract.
// Missing fields stay empty; the only error returned is cancellation.
func (p *Provider) FetchTokenInfo(ctx context.Context, address string) (entity.TokenInfo, error) {
	key := strings.ToLower(address)
	empty := entity.TokenInfo{Address: key}

	if info, ok := p.tokens.Get(key); ok {
		metrics.CacheLookups.WithLabelValues(kindToken, layerMemory, "hit").Inc()
		return info, nil
	}
	metrics.CacheLookups.WithLabelValues(kindToken, layerMemory, "miss").Inc()

	if p.store != nil {
		info, found, err := p.store.GetTokenInfo(ctx, key)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return empty, errors.NewCancelledError(ctx.Err())
			}
			p.logger.Debug("Token store lookup failed", zap.String("address", key), zap.Error(err))
		case found && !info.IsEmpty():
			metrics.CacheLookups.WithLabelValues(kindToken, layerStore, "hit").Inc()
			p.tokens.Add(key, info)
			return info, nil
		default:
			metrics.CacheLookups.WithLabelValues(kindToken, layerStore, "miss").Inc()
		}
	}

	info, err := p.tokenFetcher.GetToken(ctx, key)
	if err != nil {
		if ctx.Err() != nil {
			return empty, errors.NewCancelledError(ctx.Err())
		}
		p.logger.Debug("Explorer token lookup failed", zap.String("address", key), zap.Error(err))
		info = empty
	}
	info.Address = key

	if info.Type == "" && p.rpcReady() {
		probed, err := p.rpc.GetTokenMetadata(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return empty, errors.NewCancelledError(ctx.Err())
			}
			p.logger.Debug("RPC token probe failed", zap.String("address", key), zap.Error(err))
		} else {
			info = mergeTokenInfo(info, probed)
		}
	}

	if info.IsEmpty() {
		return info, nil
	}

	p.tokens.Add(key, info)
	if p.store != nil {
		if err := p.store.SaveTokenInfo(ctx, info); err != nil {
			p.logger.Debug("Failed to persist token info", zap.String("address", key), zap.Error(err))
		}
	}
	return info, nil
}

func (p *Provider) rpcReady() bool {
	return p.rpc != nil && p.rpc.IsConnected()
}

// mergeTokenInfo fills fields missing in primary from fallback
func mergeTokenInfo(primary, fallback entity.TokenInfo) entity.TokenInfo {
	if primary.Name == "" {
		primary.Name = fallback.Name
	}
	if primary.Symbol == "" {
		primary.Symbol = fallback.Symbol
	}
	if primary.Type == "" {
		primary.Type = fallback.Type
	}
	return primary
}
