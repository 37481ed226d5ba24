package learning

import (
	"context"
	"time"

	models "beps/internal/domain/models/learning"
)

// LedgerRepository writes the viewing ledger.
type LedgerRepository interface {
	// LockViewer serialises writers on (user, file) for the current transaction.
	LockViewer(ctx context.Context, userID string, fileID int64) error

	InsertView(ctx context.Context, view *models.ViewingHistory) error

	// GrantPoint adds one point earned at the given time unless the record is
	// already at models.MaxPoints. Returns the resulting point count.
	GrantPoint(ctx context.Context, userID string, fileID int64, fileType models.FileType, at time.Time) (point int, granted bool, err error)

	// AddCompletion adds d to the (user, page) total and stamps completed_at
	// with at the first time the total reaches threshold.
	AddCompletion(ctx context.Context, userID string, pageID int64, d, threshold time.Duration, at time.Time) (*models.CompletionHistory, error)

	ListPoints(ctx context.Context, userID string) ([]models.PointRecord, error)
}
