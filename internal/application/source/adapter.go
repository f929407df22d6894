package source

import (
	"context"

	"wallet-activity-stats/internal/domain/entity"
	"wallet-activity-stats/internal/domain/service"
	"wallet-activity-stats/internal/infrastructure/config"
	"wallet-activity-stats/internal/infrastructure/logger"
	"wallet-activity-stats/internal/infrastructure/metrics"
	"wallet-activity-stats/pkg/errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Provider names reported in ProviderResult
const (
	ProviderCompat = "compat"
	ProviderRestV2 = "restv2"
)

// Adapter queries both explorer providers concurrently and keeps one answer
type Adapter struct {
	compat   service.CompatTxLister
	rest     service.RestTxPager
	offset   int
	pageSize int
	maxPages int
	logger   *logger.Logger
}

var _ service.TransactionSource = (*Adapter)(nil)

// NewAdapter creates new source adapter
func NewAdapter(compat service.CompatTxLister, rest service.RestTxPager, cfg *config.ExplorerConfig, log *logger.Logger) *Adapter {
	a := &Adapter{
		compat:   compat,
		rest:     rest,
		offset:   cfg.CompatOffset,
		pageSize: cfg.RestPageSize,
		maxPages: cfg.RestMaxPages,
		logger:   log.WithComponent("source-adapter"),
	}
	if a.offset <= 0 {
		a.offset = 10000
	}
	if a.pageSize <= 0 {
		a.pageSize = 100
	}
	if a.maxPages <= 0 {
		a.maxPages = 3
	}
	return a
}

// FetchTransactions returns the deduplicated, window-filtered history of address.
// Provider failures degrade to empty results; only cancellation is returned as an error.
func (a *Adapter) FetchTransactions(ctx context.Context, address string, window entity.TimeWindow) (*entity.FetchResult, error) {
	var compatRes, restRes entity.ProviderResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		compatRes, err = a.fetchCompat(gctx, address, window)
		return err
	})
	g.Go(func() error {
		var err error
		restRes, err = a.fetchRest(gctx, address, window)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.NewCancelledError(err)
	}

	src, rows := SelectSource(compatRes, restRes)
	rows = Dedupe(FilterWindow(rows, window))

	result := &entity.FetchResult{
		Source: src,
		Rows:   rows,
		Debug: entity.Debug{
			CompatTried:  true,
			RestTried:    true,
			PagesFetched: compatRes.Pages + restRes.Pages,
		},
	}
	if compatRes.Err != nil && restRes.Err != nil {
		result.Debug.AddWarning(entity.WarningProviderFailed)
	}

	metrics.SourceSelected.WithLabelValues(string(src)).Inc()
	a.logger.WithAddress(address).Debug("Fetched transactions",
		zap.String("source", string(src)),
		zap.Int("compat_rows", len(compatRes.Rows)),
		zap.Int("rest_rows", len(restRes.Rows)),
		zap.Int("rows", len(rows)))

	return result, nil
}

func (a *Adapter) fetchCompat(ctx context.Context, address string, window entity.TimeWindow) (entity.ProviderResult, error) {
	res := entity.ProviderResult{Name: ProviderCompat}

	raw, err := a.compat.ListCompatTransactions(ctx, service.CompatTxListQuery{
		Address: address,
		FromMs:  window.FromMs,
		ToMs:    window.ToMs,
		Sort:    service.SortDesc,
		Page:    1,
		Offset:  a.offset,
	})
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		a.logger.Debug("Compat provider failed", zap.String("address", address), zap.Error(err))
		res.Err = err
		return res, nil
	}

	res.OK = true
	res.Pages = 1
	res.Rows = make([]entity.CanonicalTransaction, 0, len(raw))
	for _, row := range raw {
		res.Rows = append(res.Rows, NormalizeCompatRow(row))
	}
	return res, nil
}

// fetchRest pages newest first and stops once a page is empty or reaches past window.FromMs
func (a *Adapter) fetchRest(ctx context.Context, address string, window entity.TimeWindow) (entity.ProviderResult, error) {
	res := entity.ProviderResult{Name: ProviderRestV2}

	for page := 1; page <= a.maxPages; page++ {
		items, err := a.rest.ListRestTransactions(ctx, address, page, a.pageSize)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			a.logger.Debug("REST provider failed",
				zap.String("address", address),
				zap.Int("page", page),
				zap.Error(err))
			res.Err = err
			break
		}

		res.OK = true
		res.Pages++
		if len(items) == 0 {
			break
		}

		for _, item := range items {
			res.Rows = append(res.Rows, NormalizeRestRow(item))
		}

		oldest := res.Rows[len(res.Rows)-1].TimeStamp
		if window.FromMs > 0 && oldest > 0 && oldest < window.FromMs {
			break
		}
	}
	return res, nil
}

// SelectSource picks the provider whose rows are kept. Compat wins when it succeeded with rows,
// then REST v2. When neither has rows the result is empty and tagged mixed if either provider
// at least answered, restv2 otherwise.
func SelectSource(compat, rest entity.ProviderResult) (entity.Source, []entity.CanonicalTransaction) {
	switch {
	case compat.Usable():
		return entity.SourceCompat, compat.Rows
	case rest.Usable():
		return entity.SourceRestV2, rest.Rows
	case compat.OK || rest.OK:
		return entity.SourceMixed, nil
	default:
		return entity.SourceRestV2, nil
	}
}

// FilterWindow keeps rows whose timestamp falls inside window
func FilterWindow(rows []entity.CanonicalTransaction, window entity.TimeWindow) []entity.CanonicalTransaction {
	out := make([]entity.CanonicalTransaction, 0, len(rows))
	for _, r := range rows {
		if window.Contains(r.TimeStamp) {
			out = append(out, r)
		}
	}
	return out
}

// Dedupe drops repeated hashes, keeping the first position and the row with more populated fields.
// Rows without a hash are dropped.
func Dedupe(rows []entity.CanonicalTransaction) []entity.CanonicalTransaction {
	index := make(map[string]int, len(rows))
	out := make([]entity.CanonicalTransaction, 0, len(rows))
	for _, r := range rows {
		if r.Hash == "" {
			continue
		}
		if i, ok := index[r.Hash]; ok {
			if r.Richness() > out[i].Richness() {
				out[i] = r
			}
			continue
		}
		index[r.Hash] = len(out)
		out = append(out, r)
	}
	return out
}
