package service

import (
	"context"
	"time"

	"wallet-activity-stats/internal/domain/entity"
	"wallet-activity-stats/internal/domain/service"
	"wallet-activity-stats/internal/infrastructure/config"
	"wallet-activity-stats/internal/infrastructure/logger"
	"wallet-activity-stats/internal/infrastructure/metrics"
	"wallet-activity-stats/pkg/errors"
	"wallet-activity-stats/pkg/utils"

	"go.uber.org/zap"
)

const defaultStatsBudget = 12 * time.Second

// StatsService serves AddressStats under a wall-clock budget
type StatsService struct {
	stats     service.StatsComputer
	publisher service.StatsPublisher
	budget    time.Duration
	logger    *logger.Logger
	now       func() time.Time
}

// NewStatsService creates new stats service. publisher may be nil.
func NewStatsService(stats service.StatsComputer, publisher service.StatsPublisher, cfg *config.HTTPConfig, log *logger.Logger) *StatsService {
	s := &StatsService{
		stats:     stats,
		publisher: publisher,
		budget:    cfg.StatsBudget,
		logger:    log.WithComponent("stats-service"),
		now:       time.Now,
	}
	if s.budget <= 0 {
		s.budget = defaultStatsBudget
	}
	return s
}

type statsOutcome struct {
	stats *entity.AddressStats
	err   error
}

// ComputeWithBudget races the aggregation against the budget. When the budget
// elapses first the in-flight work is cancelled and a zeroed placeholder carrying
// the upstream_timeout warning is returned instead of an error.
func (s *StatsService) ComputeWithBudget(ctx context.Context, address string, window entity.TimeWindow) (*entity.AddressStats, error) {
	subject := utils.NormalizeAddress(address)
	if subject == "" {
		return nil, errors.NewValidationError("Invalid address", nil)
	}
	if window.ToMs == 0 {
		window.ToMs = s.now().UnixMilli()
	}

	start := time.Now()
	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan statsOutcome, 1)
	go func() {
		stats, err := s.stats.ComputeStats(workCtx, subject, window)
		done <- statsOutcome{stats: stats, err: err}
	}()

	timer := time.NewTimer(s.budget)
	defer timer.Stop()

	select {
	case out := <-done:
		if out.err != nil {
			if errors.IsCancelled(out.err) || ctx.Err() != nil {
				s.logger.Debug("Stats computation cancelled", zap.String("address", subject))
				metrics.StatsDuration.WithLabelValues("cancelled").Observe(time.Since(start).Seconds())
				return nil, errors.NewCancelledError(out.err)
			}
			metrics.StatsDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
			return nil, out.err
		}
		metrics.StatsDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
		s.publish(ctx, out.stats)
		return out.stats, nil

	case <-timer.C:
		cancel()
		s.logger.Warn("Stats budget elapsed, returning placeholder",
			zap.String("address", subject),
			zap.String("budget", utils.FormatDuration(s.budget)),
			zap.Error(errors.ErrBudgetExceeded))
		metrics.StatsDuration.WithLabelValues("timeout").Observe(time.Since(start).Seconds())
		return entity.EmptyStats(subject, window), nil

	case <-ctx.Done():
		s.logger.Debug("Stats request cancelled", zap.String("address", subject))
		metrics.StatsDuration.WithLabelValues("cancelled").Observe(time.Since(start).Seconds())
		return nil, errors.NewCancelledError(ctx.Err())
	}
}

// publish emits a stats event; failures are logged only
func (s *StatsService) publish(ctx context.Context, stats *entity.AddressStats) {
	if s.publisher == nil || !s.publisher.IsConnected() {
		return
	}
	if err := s.publisher.PublishStats(ctx, stats); err != nil {
		s.logger.Warn("Failed to publish stats event",
			zap.String("address", stats.Address),
			zap.Error(err))
	}
}
