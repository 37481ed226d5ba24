package statistics

import (
	"context"
	"log/slog"
	"time"

	"beps/internal/domain/repositories"
	statsRepo "beps/internal/domain/repositories/statistics"
	statsSvc "beps/internal/domain/services/statistics"
)

// rollupService implements the RollupService interface
type rollupService struct {
	rollup    statsRepo.RollupRepository
	txManager repositories.TransactionManager
	location  *time.Location
	logger    *slog.Logger
}

// NewRollupService creates a new rollup service
func NewRollupService(
	rollup statsRepo.RollupRepository,
	txManager repositories.TransactionManager,
	location *time.Location,
	logger *slog.Logger,
) statsSvc.RollupService {
	return &rollupService{
		rollup:    rollup,
		txManager: txManager,
		location:  location,
		logger:    logger,
	}
}

// RollupDay rebuilds the day summaries for date
func (s *rollupService) RollupDay(ctx context.Context, d time.Time) error {
	d = date(d, s.location)
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		return s.rollup.RollupDay(txCtx, d, s.location)
	})
	if err != nil {
		return err
	}
	s.logger.Info("day summary rolled up", "date", d.Format(dateLayout))
	return nil
}

// RollupCompleted rebuilds the agg rows of every period ending yesterday
func (s *rollupService) RollupCompleted(ctx context.Context, today time.Time) error {
	yesterday := date(today, s.location).AddDate(0, 0, -1)
	for _, p := range periodsOf(yesterday.Year()) {
		if !p.Range.End.Equal(yesterday) {
			continue
		}
		err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
			return s.rollup.RollupPeriod(txCtx, p.Type, p.Value, p.Range.Start, p.Range.End)
		})
		if err != nil {
			return err
		}
		s.logger.Info("period summary rolled up",
			"period_type", p.Type,
			"period_value", p.Value,
		)
	}
	return nil
}
