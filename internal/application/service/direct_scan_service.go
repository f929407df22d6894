package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"wallet-activity-stats/internal/application/source"
	"wallet-activity-stats/internal/domain/entity"
	"wallet-activity-stats/internal/domain/service"
	"wallet-activity-stats/internal/infrastructure/config"
	"wallet-activity-stats/internal/infrastructure/logger"
	"wallet-activity-stats/pkg/errors"
	"wallet-activity-stats/pkg/utils"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"
)

// WindowFetcher pages one address history over an exact window with progress reporting
type WindowFetcher interface {
	Fetch(ctx context.Context, address string, window entity.TimeWindow, progress source.ProgressFunc) (*entity.FetchResult, error)
}

// DirectScanService runs the strict two-pass scan followed by a throttled log check
type DirectScanService struct {
	fetcher         WindowFetcher
	classifier      service.TransactionClassifier
	logsLimit       int
	logsConcurrency int
	logger          *logger.Logger
	now             func() time.Time
}

// NewDirectScanService creates new direct scan service
func NewDirectScanService(fetcher WindowFetcher, classifier service.TransactionClassifier, cfg *config.DirectConfig, log *logger.Logger) *DirectScanService {
	s := &DirectScanService{
		fetcher:         fetcher,
		classifier:      classifier,
		logsLimit:       cfg.LogsLimit,
		logsConcurrency: cfg.LogsConcurrency,
		logger:          log.WithComponent("direct-scan"),
		now:             time.Now,
	}
	if s.logsLimit <= 0 {
		s.logsLimit = 60
	}
	if s.logsConcurrency <= 0 {
		s.logsConcurrency = 2
	}
	return s
}

// Scan fetches the full window of address and classifies it. Outgoing rows left as
// other are checked against their logs, up to the configured limit.
func (s *DirectScanService) Scan(ctx context.Context, address string, window entity.TimeWindow, progress source.ProgressFunc) (*entity.AddressStats, error) {
	subject := utils.NormalizeAddress(address)
	if subject == "" {
		return nil, errors.NewValidationError("Invalid address", nil)
	}
	if window.ToMs == 0 {
		window.ToMs = s.now().UnixMilli()
	}
	if progress == nil {
		progress = func(string) {}
	}
	log := s.logger.WithAddress(subject)

	fetched, err := s.fetcher.Fetch(ctx, subject, window, progress)
	if err != nil {
		return nil, err
	}

	rows := fetched.Rows
	txs := make([]entity.EnrichedTransaction, len(rows))
	var candidates []int
	for i := range rows {
		enriched, err := s.classifier.Classify(ctx, &rows[i], subject, service.ClassifyOptions{})
		if err != nil {
			return nil, err
		}
		txs[i] = enriched
		if enriched.Category == entity.CategoryOther && enriched.Direction == entity.DirectionOut {
			candidates = append(candidates, i)
		}
	}

	debug := fetched.Debug
	if len(candidates) > s.logsLimit {
		candidates = candidates[:s.logsLimit]
		debug.AddWarning(entity.WarningDeepSampleCapped)
	}

	if len(candidates) > 0 {
		progress(fmt.Sprintf("Checking logs (%d)", len(candidates)))
		if err := s.checkLogs(ctx, subject, rows, txs, candidates); err != nil {
			return nil, err
		}
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

	log.Info("Direct scan completed",
		zap.Int("rows", len(txs)),
		zap.Int("logs_checked", debug.LogsChecked),
		zap.Strings("warnings", debug.Warnings))

	return stats, nil
}

// checkLogs deep-classifies the candidate rows on a small pond pool
func (s *DirectScanService) checkLogs(ctx context.Context, subject string, rows []entity.CanonicalTransaction, txs []entity.EnrichedTransaction, candidates []int) error {
	pool := pond.NewPool(s.logsConcurrency, pond.WithQueueSize(len(candidates)))
	defer pool.StopAndWait()

	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	for _, idx := range candidates {
		idx := idx
		group.SubmitErr(func() error {
			enriched, err := s.classifier.Classify(groupCtx, &rows[idx], subject, service.ClassifyOptions{AllowDeepInspection: true})
			if err != nil {
				return err
			}
			txs[idx] = enriched
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		if ctx.Err() != nil {
			return errors.NewCancelledError(ctx.Err())
		}
		return err
	}
	return nil
}
