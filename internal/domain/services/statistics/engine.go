package statistics

import (
	"context"
	"time"

	statsModels "beps/internal/domain/models/statistics"
)

// AggregationEngine answers statistics queries across the cold, warm and hot tiers.
type AggregationEngine interface {
	Query(ctx context.Context, q statsModels.Query) (*statsModels.Result, error)
}

// RollupService maintains the summary tables.
type RollupService interface {
	// RollupDay builds the day summaries for date.
	RollupDay(ctx context.Context, date time.Time) error

	// RollupCompleted builds agg summaries for every period that ended on the
	// day before today.
	RollupCompleted(ctx context.Context, today time.Time) error
}
