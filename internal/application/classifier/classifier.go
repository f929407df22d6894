package classifier

import (
	"context"
	"strings"

	"wallet-activity-stats/internal/domain/entity"
	"wallet-activity-stats/internal/domain/service"
	"wallet-activity-stats/internal/infrastructure/logger"
	"wallet-activity-stats/internal/infrastructure/metrics"
	"wallet-activity-stats/pkg/utils"

	"go.uber.org/zap"
)

// Tier labels reported in metrics
const (
	tierFast = "fast"
	tierDeep = "deep"
	tierNone = "none"
)

// Classifier assigns categories using field rules first and event logs second.
// It implements TransactionClassifier and is safe for concurrent use.
type Classifier struct {
	rules      *RuleSet
	enrichment service.EnrichmentProvider
	logger     *logger.Logger
}

var _ service.TransactionClassifier = (*Classifier)(nil)

// NewClassifier creates new classifier
func NewClassifier(rules *RuleSet, enrichment service.EnrichmentProvider, log *logger.Logger) *Classifier {
	return &Classifier{
		rules:      rules,
		enrichment: enrichment,
		logger:     log.WithComponent("classifier"),
	}
}

// Classify returns tx with direction, category and native amount attached.
// The only error returned is cancellation during deep inspection.
func (c *Classifier) Classify(ctx context.Context, tx *entity.CanonicalTransaction, subject string, opts service.ClassifyOptions) (entity.EnrichedTransaction, error) {
	subject = strings.ToLower(subject)
	dir := entity.DirectionFor(tx, subject)

	out := entity.EnrichedTransaction{
		CanonicalTransaction: *tx,
		Direction:            dir,
		AmountNative:         utils.WeiToEther(tx.ValueWei),
	}

	if cat, ok := c.fastPath(tx, dir); ok {
		out.Category = cat
		metrics.TransactionsClassified.WithLabelValues(string(cat), tierFast).Inc()
		return out, nil
	}

	// log signals only ever produce a category for outgoing transactions
	if opts.AllowDeepInspection && dir == entity.DirectionOut {
		cat, mints, err := c.inspectLogs(ctx, tx, subject)
		if err != nil {
			return entity.EnrichedTransaction{}, err
		}
		out.LogsChecked = true
		if cat != "" {
			out.Category = cat
			out.NftMints = mints
			metrics.TransactionsClassified.WithLabelValues(string(cat), tierDeep).Inc()
			return out, nil
		}
	}

	out.Category = entity.CategoryOther
	metrics.TransactionsClassified.WithLabelValues(string(entity.CategoryOther), tierNone).Inc()
	return out, nil
}

// fastPath applies the ordered field rules; the first match wins
func (c *Classifier) fastPath(tx *entity.CanonicalTransaction, dir entity.Direction) (entity.Category, bool) {
	if tx.IsFailed() {
		return entity.CategoryFail, true
	}
	if dir != entity.DirectionOut {
		return "", false
	}

	to := strings.ToLower(tx.ToAddress())
	switch {
	case tx.IsContractCreation():
		return entity.CategoryCCDeploy, true
	case to == c.rules.CCOFactory:
		return entity.CategoryCCODeploy, true
	case c.rules.IsGM(to):
		return entity.CategoryGM, true
	case to == c.rules.StakingContract:
		return entity.CategoryStake, true
	}

	sel := tx.Selector()
	switch {
	case sel == ApproveSelector:
		return entity.CategoryApprove, true
	case isSwapSelector(sel):
		return entity.CategorySwap, true
	case isAddLiquiditySelector(sel):
		return entity.CategoryAddLiquidity, true
	case isRemoveLiquiditySelector(sel):
		return entity.CategoryRemoveLiquidity, true
	case utils.IsEmptyInput(tx.Input) && isNonZeroValue(tx.ValueWei):
		return entity.CategoryNativeSend, true
	}
	return "", false
}

// inspectLogs looks for mints to subject, then AMM swaps, then approvals
func (c *Classifier) inspectLogs(ctx context.Context, tx *entity.CanonicalTransaction, subject string) (entity.Category, []entity.NftMint, error) {
	logs, err := c.enrichment.FetchLogs(ctx, tx.Hash)
	if err != nil {
		return "", nil, err
	}

	mints, err := c.detectMints(ctx, subject, logs)
	if err != nil {
		return "", nil, err
	}
	if len(mints) > 0 {
		for _, m := range mints {
			if m.IsDomain {
				return entity.CategoryDomainMint, mints, nil
			}
		}
		return entity.CategoryNftMint, mints, nil
	}

	if hasTopic(logs, TopicSwapV2, TopicSwapV3) {
		return entity.CategorySwap, nil, nil
	}
	if hasTopic(logs, TopicApproval) {
		return entity.CategoryApprove, nil, nil
	}

	c.logger.Debug("No log signal", zap.String("tx_hash", tx.Hash), zap.Int("logs", len(logs)))
	return "", nil, nil
}

func hasTopic(logs []entity.TxLog, topics ...string) bool {
	for _, l := range logs {
		t0 := strings.ToLower(l.Topic(0))
		for _, t := range topics {
			if t0 == t {
				return true
			}
		}
	}
	return false
}

func isNonZeroValue(wei string) bool {
	if bi, ok := utils.ParseBigInt(wei); ok {
		return bi.Sign() != 0
	}
	return wei != "" && wei != "0"
}
