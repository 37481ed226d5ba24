package statistics

import (
	"context"
	"fmt"
	"time"

	models "beps/internal/domain/models/statistics"
	statsRepo "beps/internal/domain/repositories/statistics"
	"beps/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSummaryRepository implements statsRepo.SummaryRepository
type PostgresSummaryRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewSummaryRepository creates a new statistics reader
func NewSummaryRepository(config *postgres.RepositoryConfig) statsRepo.SummaryRepository {
	return &PostgresSummaryRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// HasAggRows reports whether a period has been rolled up
func (r *PostgresSummaryRepository) HasAggRows(ctx context.Context, source models.Source, periodType models.PeriodType, periodValue string) (bool, error) {
	table, err := summaryTable(r.tables, source, models.TierCold)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`
		SELECT EXISTS (SELECT 1 FROM %s WHERE period_type = $1 AND period_value = $2)
	`, table)

	var ok bool
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, string(periodType), periodValue).Scan(&ok); err != nil {
		return false, fmt.Errorf("check agg rows: %w", postgres.Classify(err))
	}
	return ok, nil
}

// ConnectionTotals sums a cold or warm login scope. The bool is false when no
// summary row matched.
func (r *PostgresSummaryRepository) ConnectionTotals(ctx context.Context, scope statsRepo.Scope, filter models.Filter) (models.Totals, bool, error) {
	projection := []string{
		"COALESCE(SUM(EXTRACT(EPOCH FROM total_duration)), 0)::float8",
		"COALESCE(SUM(EXTRACT(EPOCH FROM worktime_duration)), 0)::float8",
		"COALESCE(SUM(EXTRACT(EPOCH FROM offhour_duration)), 0)::float8",
		"COALESCE(SUM(internal_count), 0)::bigint",
		"COALESCE(SUM(external_count), 0)::bigint",
		"COUNT(*)",
	}
	query, args, err := buildSummaryQuery(r.tables, models.SourceLogin, scope, filter, projection, nil)
	if err != nil {
		return models.Totals{}, false, err
	}

	var total, work, off float64
	var totals models.Totals
	var n int64

	executor := postgres.GetExecutor(ctx, r.pool)
	err = executor.QueryRow(ctx, query, args...).Scan(
		&total, &work, &off, &totals.InternalCount, &totals.ExternalCount, &n,
	)
	if err != nil {
		return models.Totals{}, false, fmt.Errorf("connection totals: %w", postgres.Classify(err))
	}
	totals.Total = seconds(total)
	totals.Work = seconds(work)
	totals.Off = seconds(off)
	return totals, n > 0, nil
}

// GroupDurations sums durations per group for any tier
func (r *PostgresSummaryRepository) GroupDurations(ctx context.Context, scope statsRepo.Scope, filter models.Filter, grouping models.Grouping) ([]models.GroupDuration, error) {
	var (
		query string
		args  []any
		err   error
	)
	if scope.Tier == models.TierHot {
		query, args, err = buildHotGroupQuery(r.tables, scope, filter, grouping)
	} else {
		var keys []string
		var label string
		if keys, label, err = groupColumns(grouping); err == nil {
			source := models.SourceLogin
			if grouping == models.GroupChannel {
				source = models.SourceLearning
			}
			projection := append(append([]string{}, keys...),
				label,
				"COALESCE(SUM(EXTRACT(EPOCH FROM total_duration)), 0)::float8",
			)
			query, args, err = buildSummaryQuery(r.tables, source, scope, filter, projection, keys)
		}
	}
	if err != nil {
		return nil, err
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("group durations: %w", postgres.Classify(err))
	}
	defer rows.Close()

	out := []models.GroupDuration{}
	for rows.Next() {
		var g models.GroupDuration
		var secs float64
		switch grouping {
		case models.GroupUser:
			err = rows.Scan(&g.Key.UserID, &g.Label, &secs)
		case models.GroupDepartment:
			err = rows.Scan(&g.Key.Company, &g.Key.Department, &g.Label, &secs)
		case models.GroupCompany:
			err = rows.Scan(&g.Key.Company, &g.Label, &secs)
		case models.GroupChannel:
			err = rows.Scan(&g.Key.ChannelID, &g.Label, &secs)
		}
		if err != nil {
			return nil, fmt.Errorf("scan group duration: %w", err)
		}
		g.Duration = seconds(secs)
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group durations: %w", postgres.Classify(err))
	}
	return out, nil
}

// LoginSessions scans raw login rows with login_time in [from, until)
func (r *PostgresSummaryRepository) LoginSessions(ctx context.Context, from, until time.Time, filter models.Filter) ([]models.LoginSession, error) {
	b := &sqlBuilder{}
	b.and("l.login_time >= %s AND l.login_time < %s", from, until)
	userFilter(b, filter, "u")

	query := fmt.Sprintf(`
		SELECT l.user_id, COALESCE(l.ip_address, ''), l.login_time, l.logout_time,
		       COALESCE(EXTRACT(EPOCH FROM l.session_duration), 0)::float8
		FROM %s l
		JOIN %s u ON u.id = l.user_id
		%s
		ORDER BY l.login_time
	`, r.tables.LoginHistory, r.tables.Users, b.whereClause())

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("login sessions: %w", postgres.Classify(err))
	}
	defer rows.Close()

	out := []models.LoginSession{}
	for rows.Next() {
		var s models.LoginSession
		var secs float64
		if err := rows.Scan(&s.UserID, &s.IPAddress, &s.LoginTime, &s.LogoutTime, &secs); err != nil {
			return nil, fmt.Errorf("scan login session: %w", err)
		}
		s.Duration = seconds(secs)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate login sessions: %w", postgres.Classify(err))
	}
	return out, nil
}

// UniqueIPPairs lists distinct (user, ip) pairs from live login history
func (r *PostgresSummaryRepository) UniqueIPPairs(ctx context.Context, from, until time.Time, filter models.Filter) ([]models.IPPair, error) {
	b := &sqlBuilder{}
	b.and("l.login_time >= %s AND l.login_time < %s", from, until)
	b.where = append(b.where, "l.ip_address IS NOT NULL", "l.ip_address <> ''")
	userFilter(b, filter, "u")

	query := fmt.Sprintf(`
		SELECT DISTINCT l.user_id, l.ip_address
		FROM %s l
		JOIN %s u ON u.id = l.user_id
		%s
		ORDER BY l.user_id, l.ip_address
	`, r.tables.LoginHistory, r.tables.Users, b.whereClause())

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("unique ip pairs: %w", postgres.Classify(err))
	}
	defer rows.Close()

	out := []models.IPPair{}
	for rows.Next() {
		var p models.IPPair
		if err := rows.Scan(&p.UserID, &p.IPAddress); err != nil {
			return nil, fmt.Errorf("scan ip pair: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ip pairs: %w", postgres.Classify(err))
	}
	return out, nil
}

// ListUsers returns live users matching the filter
func (r *PostgresSummaryRepository) ListUsers(ctx context.Context, filter models.Filter) ([]models.UserRef, error) {
	b := &sqlBuilder{}
	b.where = append(b.where, "NOT u.is_deleted")
	userFilter(b, filter, "u")

	query := fmt.Sprintf(`
		SELECT u.id, u.name, COALESCE(u.company, ''), COALESCE(u.department, '')
		FROM %s u
		%s
		ORDER BY u.id
	`, r.tables.Users, b.whereClause())

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", postgres.Classify(err))
	}
	defer rows.Close()

	out := []models.UserRef{}
	for rows.Next() {
		var u models.UserRef
		if err := rows.Scan(&u.ID, &u.Name, &u.Company, &u.Department); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", postgres.Classify(err))
	}
	return out, nil
}

// ListChannels returns live channels
func (r *PostgresSummaryRepository) ListChannels(ctx context.Context) ([]models.ChannelRef, error) {
	query := fmt.Sprintf(`
		SELECT id, name FROM %s WHERE NOT is_deleted ORDER BY id
	`, r.tables.Channels)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", postgres.Classify(err))
	}
	defer rows.Close()

	out := []models.ChannelRef{}
	for rows.Next() {
		var c models.ChannelRef
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w", postgres.Classify(err))
	}
	return out, nil
}

// CountPages counts live pages reachable from live folders and channels
func (r *PostgresSummaryRepository) CountPages(ctx context.Context) (int64, error) {
	return postgres.CountLivePages(ctx, postgres.GetExecutor(ctx, r.pool), r.tables)
}

// CountCompletions counts completions stamped in [from, until)
func (r *PostgresSummaryRepository) CountCompletions(ctx context.Context, from, until time.Time, filter models.Filter) (int64, error) {
	b := &sqlBuilder{}
	b.and("ch.completed_at >= %s AND ch.completed_at < %s", from, until)
	b.where = append(b.where, "NOT u.is_deleted")
	userFilter(b, filter, "u")

	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM %s ch
		JOIN %s u ON u.id = ch.user_id
		%s
	`, r.tables.CompletionHistory, r.tables.Users, b.whereClause())

	var n int64
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, b.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count completions: %w", postgres.Classify(err))
	}
	return n, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
