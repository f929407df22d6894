package source

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"wallet-activity-stats/internal/domain/entity"
	"wallet-activity-stats/internal/domain/service"
	"wallet-activity-stats/internal/infrastructure/config"
	"wallet-activity-stats/internal/infrastructure/logger"
	"wallet-activity-stats/pkg/errors"

	"go.uber.org/zap"
)

// ProgressFunc receives human-readable progress messages
type ProgressFunc func(message string)

// TwoPassFetcher walks the compat endpoint newest-first and then oldest-first so that
// windows larger than the provider's result cap are still covered
type TwoPassFetcher struct {
	compat      service.CompatTxLister
	pageSize    int
	maxPages    int
	budget      time.Duration
	repeatLimit int
	logger      *logger.Logger
}

// NewTwoPassFetcher creates new two-pass fetcher. compat should already carry the
// aggressive 429 retry policy used for strict scans.
func NewTwoPassFetcher(compat service.CompatTxLister, cfg *config.DirectConfig, log *logger.Logger) *TwoPassFetcher {
	f := &TwoPassFetcher{
		compat:      compat,
		pageSize:    cfg.PageSize,
		maxPages:    cfg.MaxPages,
		budget:      cfg.GlobalBudget,
		repeatLimit: cfg.RepeatGuardLimit,
		logger:      log.WithComponent("two-pass-fetcher"),
	}
	if f.pageSize <= 0 {
		f.pageSize = 10000
	}
	if f.maxPages <= 0 {
		f.maxPages = 200
	}
	if f.budget <= 0 {
		f.budget = 45 * time.Second
	}
	if f.repeatLimit <= 0 {
		f.repeatLimit = 2
	}
	return f
}

type passResult struct {
	rows      []entity.CanonicalTransaction
	pages     int
	budgetHit bool
}

// Fetch runs both passes under one wall-clock budget and returns merged, deduplicated rows
// sorted newest first. Hitting the budget returns what was collected so far.
func (f *TwoPassFetcher) Fetch(ctx context.Context, address string, window entity.TimeWindow, progress ProgressFunc) (*entity.FetchResult, error) {
	if progress == nil {
		progress = func(string) {}
	}

	budgetCtx, cancel := context.WithTimeoutCause(ctx, f.budget, errors.ErrBudgetExceeded)
	defer cancel()

	result := &entity.FetchResult{
		Source: entity.SourceCompat,
		Debug:  entity.Debug{CompatTried: true},
	}

	var all []entity.CanonicalTransaction
	for _, order := range []string{service.SortDesc, service.SortAsc} {
		pass, err := f.pass(ctx, budgetCtx, address, window, order, progress)
		if err != nil {
			return nil, err
		}
		all = append(all, pass.rows...)
		result.Debug.PagesFetched += pass.pages
		if pass.budgetHit {
			result.Debug.AddWarning(entity.WarningBudgetExceeded)
			break
		}
	}

	rows := FilterWindow(Dedupe(all), window)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TimeStamp > rows[j].TimeStamp
	})
	result.Rows = rows

	f.logger.WithAddress(address).Info("Two-pass fetch completed",
		zap.Int("pages", result.Debug.PagesFetched),
		zap.Int("rows", len(rows)),
		zap.Strings("warnings", result.Debug.Warnings))

	return result, nil
}

func (f *TwoPassFetcher) pass(ctx, budgetCtx context.Context, address string, window entity.TimeWindow, order string, progress ProgressFunc) (passResult, error) {
	var res passResult
	lastFirst := ""
	repeats := 0

	for page := 1; page <= f.maxPages; page++ {
		if ctx.Err() != nil {
			return res, errors.NewCancelledError(ctx.Err())
		}
		if errors.IsBudgetExceeded(context.Cause(budgetCtx)) {
			res.budgetHit = true
			return res, nil
		}

		progress(fmt.Sprintf("Compat %s • page %d", order, page))

		raw, err := f.compat.ListCompatTransactions(budgetCtx, service.CompatTxListQuery{
			Address: address,
			FromMs:  window.FromMs,
			ToMs:    window.ToMs,
			Sort:    order,
			Page:    page,
			Offset:  f.pageSize,
		})
		if err != nil {
			if ctx.Err() != nil {
				return res, errors.NewCancelledError(ctx.Err())
			}
			if errors.IsBudgetExceeded(context.Cause(budgetCtx)) {
				res.budgetHit = true
				return res, nil
			}
			f.logger.Warn("Compat page failed, ending pass",
				zap.String("address", address),
				zap.String("sort", order),
				zap.Int("page", page),
				zap.Error(err))
			return res, nil
		}

		res.pages++
		if len(raw) == 0 {
			return res, nil
		}

		first := strings.ToLower(firstText(raw[0].Hash.String(), raw[0].TxHash.String()))
		if first != "" && first == lastFirst {
			repeats++
			if repeats >= f.repeatLimit {
				f.logger.Debug("Provider keeps returning the same page, ending pass",
					zap.String("sort", order),
					zap.Int("page", page))
				return res, nil
			}
		} else {
			repeats = 0
			lastFirst = first
		}

		oldest, newest := int64(0), int64(0)
		for i, row := range raw {
			tx := NormalizeCompatRow(row)
			if i == 0 || tx.TimeStamp < oldest {
				oldest = tx.TimeStamp
			}
			if tx.TimeStamp > newest {
				newest = tx.TimeStamp
			}
			res.rows = append(res.rows, tx)
		}

		if len(raw) < f.pageSize {
			return res, nil
		}
		if order == service.SortDesc && window.FromMs > 0 && oldest <= window.FromMs {
			return res, nil
		}
		if order == service.SortAsc && window.ToMs > 0 && newest >= window.ToMs {
			return res, nil
		}
	}
	return res, nil
}
