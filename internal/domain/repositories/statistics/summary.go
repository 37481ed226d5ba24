package statistics

import (
	"context"
	"time"

	models "beps/internal/domain/models/statistics"
)

// Scope selects the rows of one tier: cold scopes carry a period, warm scopes
// a date range, hot scopes half-open UTC instants.
type Scope struct {
	Tier        models.Tier
	PeriodType  models.PeriodType
	PeriodValue string
	StartDate   time.Time
	EndDate     time.Time
	From        time.Time
	Until       time.Time
}

// SummaryRepository reads the summary tables and the raw ledgers.
type SummaryRepository interface {
	// HasAggRows reports whether the period has precomputed rows.
	HasAggRows(ctx context.Context, source models.Source, periodType models.PeriodType, periodValue string) (bool, error)

	// ConnectionTotals sums login durations and counts of a cold or warm scope.
	ConnectionTotals(ctx context.Context, scope Scope, filter models.Filter) (models.Totals, bool, error)

	// GroupDurations sums durations per group for any tier.
	GroupDurations(ctx context.Context, scope Scope, filter models.Filter, grouping models.Grouping) ([]models.GroupDuration, error)

	// LoginSessions scans raw login rows whose login time lies in [from, until).
	LoginSessions(ctx context.Context, from, until time.Time, filter models.Filter) ([]models.LoginSession, error)

	// UniqueIPPairs lists distinct (user, ip) pairs logged in during [from, until).
	UniqueIPPairs(ctx context.Context, from, until time.Time, filter models.Filter) ([]models.IPPair, error)

	ListUsers(ctx context.Context, filter models.Filter) ([]models.UserRef, error)
	ListChannels(ctx context.Context) ([]models.ChannelRef, error)

	CountPages(ctx context.Context) (int64, error)

	// CountCompletions counts (user, page) completions stamped in [from, until).
	CountCompletions(ctx context.Context, from, until time.Time, filter models.Filter) (int64, error)
}

// RollupRepository writes the summary tables.
type RollupRepository interface {
	// RollupDay rebuilds the day summaries of date, bucketing by loc.
	RollupDay(ctx context.Context, date time.Time, loc *time.Location) error

	// RollupPeriod rebuilds the agg summaries of a completed period from day rows.
	RollupPeriod(ctx context.Context, periodType models.PeriodType, periodValue string, start, end time.Time) error
}
