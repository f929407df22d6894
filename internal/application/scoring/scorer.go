package scoring

import (
	"context"
	"regexp"
	"strings"
	"time"

	"wallet-activity-stats/internal/domain/entity"
	"wallet-activity-stats/internal/domain/service"
	"wallet-activity-stats/internal/infrastructure/config"
	"wallet-activity-stats/internal/infrastructure/logger"
	"wallet-activity-stats/pkg/errors"
	"wallet-activity-stats/pkg/utils"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"
)

var walletPattern = regexp.MustCompile(`^0x[a-f0-9]{40}$`)

// Scorer evaluates a cohort of wallets against activity thresholds
type Scorer struct {
	stats              service.StatsComputer
	defaultConcurrency int
	maxConcurrency     int
	queueSize          int
	logger             *logger.Logger
	now                func() time.Time
}

// NewScorer creates new scorer
func NewScorer(stats service.StatsComputer, cfg *config.ScoringConfig, log *logger.Logger) *Scorer {
	s := &Scorer{
		stats:              stats,
		defaultConcurrency: cfg.DefaultConcurrency,
		maxConcurrency:     cfg.MaxConcurrency,
		queueSize:          cfg.QueueSize,
		logger:             log.WithComponent("scorer"),
		now:                time.Now,
	}
	if s.defaultConcurrency <= 0 {
		s.defaultConcurrency = 4
	}
	if s.maxConcurrency <= 0 {
		s.maxConcurrency = 12
	}
	return s
}

// NormalizeParticipants trims discord handles, lower-cases wallets and drops invalid wallets
func NormalizeParticipants(in []entity.Participant) []entity.Participant {
	out := make([]entity.Participant, 0, len(in))
	for _, p := range in {
		wallet := strings.ToLower(strings.TrimSpace(p.Wallet))
		if !walletPattern.MatchString(wallet) {
			continue
		}
		out = append(out, entity.Participant{
			Discord: strings.TrimSpace(p.Discord),
			Wallet:  wallet,
		})
	}
	return out
}

func clampThresholds(t entity.Thresholds) entity.Thresholds {
	pos := func(v int) int {
		if v < 0 {
			return 0
		}
		return v
	}
	return entity.Thresholds{
		MinTotalExternalOut: pos(t.MinTotalExternalOut),
		MinStake:            pos(t.MinStake),
		MinNative:           pos(t.MinNative),
		MinNftMint:          pos(t.MinNftMint),
		MinDomainMint:       pos(t.MinDomainMint),
		MinGM:               pos(t.MinGM),
		MinCC:               pos(t.MinCC),
		MinSwap:             pos(t.MinSwap),
		MinAddLiq:           pos(t.MinAddLiq),
		MinRemoveLiq:        pos(t.MinRemoveLiq),
	}
}

// Params resolves the effective parameters of req
func (s *Scorer) Params(req entity.ScoreRequest) entity.ScoreParams {
	p := entity.ScoreParams{
		From:           req.From,
		To:             req.To,
		Leniency:       req.Leniency,
		Concurrency:    req.Concurrency,
		Thresholds:     clampThresholds(req.Thresholds),
		GroupByDiscord: req.GroupByDiscord,
	}
	if p.From < 0 {
		p.From = 0
	}
	if p.To <= 0 {
		p.To = s.now().UnixMilli()
	}
	if p.Leniency < 0 {
		p.Leniency = 0
	}
	if p.Concurrency <= 0 {
		p.Concurrency = s.defaultConcurrency
	}
	p.Concurrency = utils.ClampInt(p.Concurrency, 1, s.maxConcurrency)
	return p
}

// Score computes stats for every valid participant under a bounded worker pool and
// partitions the resulting rows into winner buckets
func (s *Scorer) Score(ctx context.Context, req entity.ScoreRequest) (*entity.ScoreResult, error) {
	params := s.Params(req)
	participants := NormalizeParticipants(req.Participants)
	window := entity.TimeWindow{FromMs: params.From, ToMs: params.To}

	s.logger.Info("Scoring cohort",
		zap.Int("participants", len(participants)),
		zap.Int("concurrency", params.Concurrency),
		zap.Bool("group_by_discord", params.GroupByDiscord))

	rows := make([]entity.ScoreRow, len(participants))

	if len(participants) > 0 {
		queue := s.queueSize
		if queue < len(participants) {
			queue = len(participants)
		}
		pool := pond.NewPool(params.Concurrency, pond.WithQueueSize(queue))
		defer pool.StopAndWait()

		group := pool.NewGroupContext(ctx)
		groupCtx := group.Context()

		for i, p := range participants {
			i, p := i, p
			group.SubmitErr(func() error {
				if err := groupCtx.Err(); err != nil {
					return err
				}
				stats, err := s.stats.ComputeStats(groupCtx, p.Wallet, window)
				if err != nil {
					return err
				}
				row := entity.ScoreRow{
					Discord: p.Discord,
					Wallet:  p.Wallet,
					Totals:  entity.RowTotals{TxOut: stats.Totals.TxOut},
					Counts:  entity.BucketFromCounts(stats.CountsByCategoryOut),
				}
				evaluate(&row, params.Thresholds, params.Leniency)
				rows[i] = row
				return nil
			})
		}

		if err := group.Wait(); err != nil {
			if ctx.Err() != nil {
				return nil, errors.NewCancelledError(ctx.Err())
			}
			s.logger.Warn("Scoring round failed", zap.Error(err))
			return nil, err
		}
	}

	final := rows
	if params.GroupByDiscord {
		final = groupByDiscord(rows, params.Thresholds, params.Leniency)
	}

	result := &entity.ScoreResult{
		Params:  params,
		Totals:  entity.ScoreTotals{Participants: len(participants), Rows: len(final)},
		Winners: partition(final),
	}

	s.logger.Info("Scoring completed",
		zap.Int("rows", len(final)),
		zap.Int("completed", len(result.Winners.Completed)),
		zap.Int("with_leniency", len(result.Winners.WithLeniency)))

	return result, nil
}
