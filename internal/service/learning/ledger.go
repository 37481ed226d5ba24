package learning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"beps/internal/domain"
	learningModels "beps/internal/domain/models/learning"
	"beps/internal/domain/repositories"
	learningRepo "beps/internal/domain/repositories/learning"
	learningSvc "beps/internal/domain/services/learning"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ReasonMaxPoints is reported when a view earns nothing because the cap is reached.
const ReasonMaxPoints = "Max points reached"

// ledgerService implements the LedgerService interface
type ledgerService struct {
	ledger              learningRepo.LedgerRepository
	txManager           repositories.TransactionManager
	pointDuration       time.Duration
	completionThreshold time.Duration
	now                 func() time.Time
	logger              *slog.Logger
}

// NewLedgerService creates a new ledger service. pointDuration is the
// shortest view that is recorded; completionThreshold the accumulated time
// that completes a page.
func NewLedgerService(
	ledger learningRepo.LedgerRepository,
	txManager repositories.TransactionManager,
	pointDuration time.Duration,
	completionThreshold time.Duration,
	logger *slog.Logger,
) learningSvc.LedgerService {
	return &ledgerService{
		ledger:              ledger,
		txManager:           txManager,
		pointDuration:       pointDuration,
		completionThreshold: completionThreshold,
		now:                 time.Now,
		logger:              logger,
	}
}

// RecordView writes a finished view, grants a point and, for pages,
// accumulates completion time. Views shorter than the point duration write
// nothing and come back TooShort.
func (s *ledgerService) RecordView(ctx context.Context, req *learningSvc.RecordViewRequest) (*learningSvc.RecordViewResult, error) {
	if err := s.validateRecordViewRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	end := s.now().UTC()
	duration := end.Sub(req.StartTime)
	if duration < s.pointDuration {
		s.logger.Debug("view too short",
			"user_id", req.Actor.UserID,
			"file_id", req.FileID,
			"duration", duration,
		)
		return &learningSvc.RecordViewResult{TooShort: true, Duration: duration}, nil
	}

	userID := strings.ToLower(req.Actor.UserID)
	result := &learningSvc.RecordViewResult{Duration: duration}

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.ledger.LockViewer(txCtx, userID, req.FileID); err != nil {
			return err
		}

		view := &learningModels.ViewingHistory{
			UserID:       userID,
			FileID:       req.FileID,
			FileType:     req.FileType,
			StartTime:    req.StartTime,
			EndTime:      end,
			StayDuration: duration,
			IPAddress:    req.IPAddress,
		}
		if err := s.ledger.InsertView(txCtx, view); err != nil {
			return err
		}
		result.ViewID = view.ID

		point, granted, err := s.ledger.GrantPoint(txCtx, userID, req.FileID, req.FileType, end)
		if err != nil {
			return err
		}
		result.Point = learningModels.PointGrant{Added: granted, Point: point}
		if !granted {
			result.Point.Reason = ReasonMaxPoints
		}

		if req.FileType != learningModels.FileTypePage {
			return nil
		}
		completion, err := s.ledger.AddCompletion(txCtx, userID, req.FileID, duration, s.completionThreshold, end)
		if err != nil {
			return err
		}
		result.Completion = completion
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("view recorded",
		"user_id", userID,
		"file_id", req.FileID,
		"file_type", req.FileType,
		"view_id", result.ViewID,
		"duration", duration,
		"point", result.Point.Point,
		"point_added", result.Point.Added,
	)
	return result, nil
}

// PointSummary totals a user's points across files
func (s *ledgerService) PointSummary(ctx context.Context, userID string) (*learningModels.PointSummary, error) {
	userID = strings.ToLower(userID)
	records, err := s.ledger.ListPoints(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &learningModels.PointSummary{UserID: userID, Files: records}
	for _, r := range records {
		summary.TotalPoints += r.Point
	}
	return summary, nil
}

func (s *ledgerService) validateRecordViewRequest(req *learningSvc.RecordViewRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.FileID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.FileType,
			validation.Required,
			validation.In(learningModels.FileTypePage, learningModels.FileTypeDetail),
		),
		validation.Field(&req.StartTime, validation.Required),
	)
}
