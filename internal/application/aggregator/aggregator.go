package aggregator

import (
	"context"
	"sort"
	"time"

	"wallet-activity-stats/internal/domain/entity"
	"wallet-activity-stats/internal/domain/service"
	"wallet-activity-stats/internal/infrastructure/config"
	"wallet-activity-stats/internal/infrastructure/logger"
	"wallet-activity-stats/pkg/errors"
	"wallet-activity-stats/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultBatchSize = 8

// Aggregator turns one address history into AddressStats. It implements StatsComputer.
type Aggregator struct {
	source     service.TransactionSource
	classifier service.TransactionClassifier
	batchSize  int
	deepLimit  int
	deepBudget time.Duration
	logger     *logger.Logger
	now        func() time.Time
}

var _ service.StatsComputer = (*Aggregator)(nil)

// NewAggregator creates new aggregator
func NewAggregator(source service.TransactionSource, classifier service.TransactionClassifier, cfg *config.AggregatorConfig, log *logger.Logger) *Aggregator {
	a := &Aggregator{
		source:     source,
		classifier: classifier,
		batchSize:  cfg.BatchSize,
		deepLimit:  cfg.DeepInspectionLimit,
		deepBudget: cfg.DeepInspectionTime,
		logger:     log.WithComponent("aggregator"),
		now:        time.Now,
	}
	if a.batchSize <= 0 {
		a.batchSize = defaultBatchSize
	}
	return a
}

// ComputeStats fetches, classifies and summarizes the transactions of address in window.
// window.ToMs defaults to the current time.
func (a *Aggregator) ComputeStats(ctx context.Context, address string, window entity.TimeWindow) (*entity.AddressStats, error) {
	subject := utils.NormalizeAddress(address)
	if subject == "" {
		return nil, errors.NewValidationError("Invalid address", nil)
	}
	if window.ToMs == 0 {
		window.ToMs = a.now().UnixMilli()
	}
	log := a.logger.WithAddress(subject)

	fetched, err := a.source.FetchTransactions(ctx, subject, window)
	if err != nil {
		return nil, err
	}

	rows := fetched.Rows
	txs := make([]entity.EnrichedTransaction, len(rows))
	for i := range rows {
		enriched, err := a.classifier.Classify(ctx, &rows[i], subject, service.ClassifyOptions{})
		if err != nil {
			return nil, err
		}
		txs[i] = enriched
	}

	debug := fetched.Debug
	if err := a.deepPass(ctx, subject, rows, txs, &debug); err != nil {
		return nil, err
	}

	for i := range txs {
		if txs[i].LogsChecked {
			debug.LogsChecked++
		}
	}

	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].TimeStamp > txs[j].TimeStamp
	})

	stats := &entity.AddressStats{
		Address:             subject,
		From:                window.FromMs,
		To:                  window.ToMs,
		Totals:              entity.ComputeTotals(txs),
		CountsByCategoryOut: entity.CountOutgoing(txs),
		Transactions:        txs,
		Source:              fetched.Source,
		Debug:               debug,
	}

	log.Debug("Computed stats",
		zap.String("source", string(stats.Source)),
		zap.Int("tx_all", stats.Totals.TxAll),
		zap.Int("tx_out", stats.Totals.TxOut),
		zap.Int("logs_checked", debug.LogsChecked))

	return stats, nil
}

// deepPass re-classifies outgoing rows still marked other with log inspection.
// Batches run one after another; members of a batch run concurrently.
func (a *Aggregator) deepPass(ctx context.Context, subject string, rows []entity.CanonicalTransaction, txs []entity.EnrichedTransaction, debug *entity.Debug) error {
	var candidates []int
	for i := range txs {
		if txs[i].Category == entity.CategoryOther && txs[i].Direction == entity.DirectionOut {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	if a.deepLimit > 0 && len(candidates) > a.deepLimit {
		a.logger.Info("Capping deep inspection sample",
			zap.String("address", subject),
			zap.Int("candidates", len(candidates)),
			zap.Int("limit", a.deepLimit))
		candidates = candidates[:a.deepLimit]
		debug.AddWarning(entity.WarningDeepSampleCapped)
	}

	start := a.now()
	for lo := 0; lo < len(candidates); lo += a.batchSize {
		if a.deepBudget > 0 && a.now().Sub(start) >= a.deepBudget {
			debug.AddWarning(entity.WarningDeepBudgetElapsed)
			break
		}

		hi := lo + a.batchSize
		if hi > len(candidates) {
			hi = len(candidates)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, idx := range candidates[lo:hi] {
			idx := idx
			g.Go(func() error {
				enriched, err := a.classifier.Classify(gctx, &rows[idx], subject, service.ClassifyOptions{AllowDeepInspection: true})
				if err != nil {
					return err
				}
				txs[idx] = enriched
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}
