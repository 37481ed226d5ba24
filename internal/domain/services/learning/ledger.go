package learning

import (
	"context"
	"time"

	"beps/internal/domain/models"
	learningModels "beps/internal/domain/models/learning"
)

// LedgerService records views, points and completion.
type LedgerService interface {
	RecordView(ctx context.Context, req *RecordViewRequest) (*RecordViewResult, error)
	PointSummary(ctx context.Context, userID string) (*learningModels.PointSummary, error)
}

// RecordViewRequest is sent by the client when a view ends.
type RecordViewRequest struct {
	Actor     models.Identity         `json:"-"`
	FileID    int64                   `json:"file_id"`
	FileType  learningModels.FileType `json:"file_type"`
	StartTime time.Time               `json:"start_time"`
	IPAddress string                  `json:"-"`
}

// RecordViewResult is the outcome of RecordView. TooShort results wrote nothing.
type RecordViewResult struct {
	TooShort   bool                              `json:"too_short"`
	ViewID     int64                             `json:"id,omitempty"`
	Duration   time.Duration                     `json:"-"`
	Point      learningModels.PointGrant         `json:"point"`
	Completion *learningModels.CompletionHistory `json:"completion,omitempty"`
}
