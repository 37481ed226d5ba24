package learning

import (
	"context"

	learningModels "beps/internal/domain/models/learning"
	statsModels "beps/internal/domain/models/statistics"
)

// DefaultUpdatedDays is the look-back of UpdatedContents when none is given.
const DefaultUpdatedDays = 14

// InsightService answers the learner-facing rankings and progress views.
type InsightService interface {
	// PointRank returns every group tied for the most and the fewest points
	// earned in the period.
	PointRank(ctx context.Context, group learningModels.RankGroup, q PeriodQuery) (*learningModels.PointRanking, error)

	TopViewedPages(ctx context.Context, q PeriodQuery) ([]learningModels.PageViews, error)
	UpdateRanking(ctx context.Context) (*learningModels.UpdateRanking, error)

	// UpdatedContents lists pages updated within the last days local days.
	UpdatedContents(ctx context.Context, userID string, days int) ([]learningModels.UpdatedPage, error)

	LearningRank(ctx context.Context, userID string) (*learningModels.LearningRank, error)

	// ContinuousDays counts consecutive learning days ending on referenceDate
	// (YYYY-MM-DD, today when empty).
	ContinuousDays(ctx context.Context, userID, referenceDate string) (*learningModels.LearningStreak, error)

	LearningTime(ctx context.Context, userID, startDate, endDate string) (*learningModels.LearningTime, error)

	// CategoryProgress splits the learning time of a period across channels.
	CategoryProgress(ctx context.Context, q PeriodQuery) ([]learningModels.ChannelShare, error)

	// ChannelCompletion reports completed pages per channel for a user, or
	// averaged over every user when userID is empty.
	ChannelCompletion(ctx context.Context, userID string) ([]learningModels.ChannelCompletion, error)
}

// PeriodQuery selects users and a statistics period.
type PeriodQuery struct {
	Filter      statsModels.Filter
	PeriodType  statsModels.PeriodType
	PeriodValue string
}
