package learning

import (
	"context"
	"time"

	models "beps/internal/domain/models/learning"
	statsModels "beps/internal/domain/models/statistics"
)

// InsightRepository reads rankings and progress off the viewing ledger.
// Local dates are derived with a fixed UTC offset, as the rollups do.
type InsightRepository interface {
	// PointTotals counts point grants earned in [from, until) per group of
	// live users. Groups without grants report zero.
	PointTotals(ctx context.Context, group models.RankGroup, from, until time.Time) ([]models.PointTotal, error)

	// TopViewedPages counts page views started in [from, until) by users
	// matching filter, most viewed first.
	TopViewedPages(ctx context.Context, filter statsModels.Filter, from, until time.Time, limit int) ([]models.PageViews, error)

	// PagesByUpdate lists live pages newest first, or oldest first.
	PagesByUpdate(ctx context.Context, oldest bool, limit int) ([]models.PageUpdate, error)

	// UpdatedSince lists live pages updated at or after since.
	UpdatedSince(ctx context.Context, userID string, since time.Time) ([]models.UpdatedPage, error)

	// CompletionCounts returns the completed page count of every live user
	// with at least one completion.
	CompletionCounts(ctx context.Context) ([]models.UserCompletions, error)

	// LearningDates lists the distinct local dates before until on which the
	// user spent time on a file, newest first.
	LearningDates(ctx context.Context, userID string, until time.Time, offset time.Duration) ([]time.Time, error)

	// DailyLearning sums learning time per local date in [from, until). An
	// empty userID sums over every live user.
	DailyLearning(ctx context.Context, userID string, from, until time.Time, offset time.Duration) ([]models.DailySeconds, error)

	CountUsers(ctx context.Context) (int64, error)

	// ChannelCompletion counts live pages and their completions per channel.
	// An empty userID counts the completions of every live user.
	ChannelCompletion(ctx context.Context, userID string) ([]models.ChannelPages, error)
}
