package learning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"beps/internal/domain"
	models "beps/internal/domain/models/learning"
	statsModels "beps/internal/domain/models/statistics"
	learningRepo "beps/internal/domain/repositories/learning"
	"beps/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresInsightRepository implements learningRepo.InsightRepository
type PostgresInsightRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewInsightRepository creates a new learning insight repository
func NewInsightRepository(config *postgres.RepositoryConfig) learningRepo.InsightRepository {
	return &PostgresInsightRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// localDate converts a timestamptz column to a date at a fixed offset bound
// to the given placeholder.
func localDate(column string, placeholder int) string {
	return fmt.Sprintf("((%s AT TIME ZONE 'UTC') + make_interval(secs => $%d::float8))::date", column, placeholder)
}

// pointTotalsQuery groups earned point stamps in [$1, $2) by group.
func pointTotalsQuery(tables *postgres.TableNames, group models.RankGroup) (string, error) {
	var projection, groupBy string
	switch group {
	case models.RankByUser:
		projection = "u.id, u.name, '', ''"
		groupBy = "u.id, u.name"
	case models.RankByCompany:
		projection = "'', '', COALESCE(u.company, ''), ''"
		groupBy = "COALESCE(u.company, '')"
	case models.RankByDepartment:
		projection = "'', '', COALESCE(u.company, ''), COALESCE(u.department, '')"
		groupBy = "COALESCE(u.company, ''), COALESCE(u.department, '')"
	default:
		return "", &domain.ValidationError{Message: fmt.Sprintf("unknown filter_type %q", group)}
	}
	return fmt.Sprintf(`
		SELECT %s, COUNT(e.earned) AS total_points
		FROM %s u
		LEFT JOIN %s pr ON pr.user_id = u.id
		LEFT JOIN LATERAL jsonb_array_elements_text(pr.earned_times) AS e(earned)
		       ON e.earned::timestamptz >= $1 AND e.earned::timestamptz < $2
		WHERE NOT u.is_deleted
		GROUP BY %s
		ORDER BY total_points DESC, %s
	`, projection, tables.Users, tables.PointRecords, groupBy, groupBy), nil
}

// PointTotals counts earned point stamps per group
func (r *PostgresInsightRepository) PointTotals(ctx context.Context, group models.RankGroup, from, until time.Time) ([]models.PointTotal, error) {
	query, err := pointTotalsQuery(r.tables, group)
	if err != nil {
		return nil, err
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, from, until)
	if err != nil {
		return nil, fmt.Errorf("point totals: %w", postgres.Classify(err))
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.PointTotal, error) {
		var t models.PointTotal
		err := row.Scan(&t.UserID, &t.Name, &t.Company, &t.Department, &t.Points)
		return t, err
	})
}

// viewerFilter restricts joined users (alias u) to a statistics filter.
// Arguments are appended after args.
func viewerFilter(filter statsModels.Filter, args []any) (string, []any) {
	var conds []string
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	switch filter.Type {
	case statsModels.FilterCompany:
		add("u.company = $%d", filter.Company)
	case statsModels.FilterDepartment:
		if filter.Company != "" {
			add("u.company = $%d", filter.Company)
		}
		add("u.department = $%d", filter.Department)
	case statsModels.FilterUser:
		add("u.id = $%d", filter.UserID)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " AND " + strings.Join(conds, " AND "), args
}

// topViewedQuery counts page views in [$1, $2) narrowed by filter.
func topViewedQuery(tables *postgres.TableNames, filter statsModels.Filter, from, until time.Time, limit int) (string, []any) {
	cond, args := viewerFilter(filter, []any{from, until})
	args = append(args, limit)
	return fmt.Sprintf(`
		SELECT v.file_id, COALESCE(p.name, ''), COALESCE(f.name, ''), COALESCE(c.name, ''),
		       COUNT(*) AS view_count, p.updated_at
		FROM %s v
		JOIN %s u ON u.id = v.user_id
		LEFT JOIN %s p ON p.id = v.file_id
		LEFT JOIN %s f ON f.id = p.folder_id
		LEFT JOIN %s c ON c.id = f.channel_id
		WHERE v.file_type = 'page' AND v.start_time >= $1 AND v.start_time < $2%s
		GROUP BY v.file_id, p.name, f.name, c.name, p.updated_at
		ORDER BY view_count DESC, v.file_id
		LIMIT $%d
	`, tables.ViewingHistory, tables.Users, tables.Pages, tables.Folders, tables.Channels, cond, len(args)), args
}

// TopViewedPages counts page views in a period
func (r *PostgresInsightRepository) TopViewedPages(ctx context.Context, filter statsModels.Filter, from, until time.Time, limit int) ([]models.PageViews, error) {
	query, args := topViewedQuery(r.tables, filter, from, until, limit)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("top viewed pages: %w", postgres.Classify(err))
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.PageViews, error) {
		var p models.PageViews
		err := row.Scan(&p.FileID, &p.FileName, &p.FolderName, &p.ChannelName, &p.ViewCount, &p.UpdatedAt)
		return p, err
	})
}

// managedPages joins live pages to the manager assigned to the file.
func (r *PostgresInsightRepository) managedPages() string {
	return fmt.Sprintf(`
		FROM %s p
		LEFT JOIN %s m ON m.file_id = p.id
		LEFT JOIN %s a ON a.id = m.assignee_id
		LEFT JOIN %s u ON u.id = a.user_id
	`, r.tables.Pages, r.tables.ContentManagers, r.tables.Assignees, r.tables.Users)
}

// PagesByUpdate lists pages by updated_at
func (r *PostgresInsightRepository) PagesByUpdate(ctx context.Context, oldest bool, limit int) ([]models.PageUpdate, error) {
	order := "DESC"
	if oldest {
		order = "ASC"
	}
	query := fmt.Sprintf(`
		SELECT p.id, p.name, p.updated_at, a.user_id, COALESCE(u.name, a.name)
		%s
		WHERE NOT p.is_deleted
		ORDER BY p.updated_at %s, p.id
		LIMIT $1
	`, r.managedPages(), order)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("pages by update: %w", postgres.Classify(err))
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.PageUpdate, error) {
		var p models.PageUpdate
		err := row.Scan(&p.ID, &p.Name, &p.UpdatedAt, &p.ManagerID, &p.ManagerName)
		return p, err
	})
}

// UpdatedSince lists recently updated pages with the user's view state
func (r *PostgresInsightRepository) UpdatedSince(ctx context.Context, userID string, since time.Time) ([]models.UpdatedPage, error) {
	query := fmt.Sprintf(`
		SELECT p.id, p.name, p.updated_at, a.user_id, COALESCE(u.name, a.name),
		       COALESCE(lv.last_view > p.updated_at, FALSE)
		%s
		LEFT JOIN LATERAL (
			SELECT MAX(v.start_time) AS last_view
			FROM %s v
			WHERE v.user_id = $1 AND v.file_type = 'page' AND v.file_id = p.id
		) lv ON TRUE
		WHERE NOT p.is_deleted AND p.updated_at >= $2
		ORDER BY p.updated_at DESC, p.id
	`, r.managedPages(), r.tables.ViewingHistory)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("updated pages: %w", postgres.Classify(err))
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.UpdatedPage, error) {
		var p models.UpdatedPage
		err := row.Scan(&p.ID, &p.Name, &p.UpdatedAt, &p.ManagerID, &p.ManagerName, &p.ViewedAfterUpdate)
		return p, err
	})
}

// CompletionCounts counts completed pages per live user
func (r *PostgresInsightRepository) CompletionCounts(ctx context.Context) ([]models.UserCompletions, error) {
	query := fmt.Sprintf(`
		SELECT ch.user_id, COUNT(*)
		FROM %s ch
		JOIN %s u ON u.id = ch.user_id
		WHERE ch.completed_at IS NOT NULL AND NOT u.is_deleted
		GROUP BY ch.user_id
	`, r.tables.CompletionHistory, r.tables.Users)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("completion counts: %w", postgres.Classify(err))
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.UserCompletions, error) {
		var c models.UserCompletions
		err := row.Scan(&c.UserID, &c.Completed)
		return c, err
	})
}

// LearningDates lists the local dates a user learned on
func (r *PostgresInsightRepository) LearningDates(ctx context.Context, userID string, until time.Time, offset time.Duration) ([]time.Time, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT %s AS day
		FROM %s v
		WHERE v.user_id = $1 AND v.start_time < $2 AND v.stay_duration > INTERVAL '0'
		ORDER BY day DESC
	`, localDate("v.start_time", 3), r.tables.ViewingHistory)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID, until, offset.Seconds())
	if err != nil {
		return nil, fmt.Errorf("learning dates: %w", postgres.Classify(err))
	}
	return pgx.CollectRows(rows, pgx.RowTo[time.Time])
}

// dailyLearningQuery sums stay durations per local date in [$1, $2).
func dailyLearningQuery(tables *postgres.TableNames, userID string, from, until time.Time, offset time.Duration) (string, []any) {
	args := []any{from, until, offset.Seconds()}
	cond := ""
	if userID != "" {
		args = append(args, userID)
		cond = " AND v.user_id = $4"
	}
	day := localDate("v.start_time", 3)
	return fmt.Sprintf(`
		SELECT %s AS day, SUM(EXTRACT(EPOCH FROM v.stay_duration))::float8
		FROM %s v
		JOIN %s u ON u.id = v.user_id
		WHERE v.start_time >= $1 AND v.start_time < $2 AND NOT u.is_deleted%s
		GROUP BY day
		ORDER BY day
	`, day, tables.ViewingHistory, tables.Users, cond), args
}

// DailyLearning sums learning time per local date
func (r *PostgresInsightRepository) DailyLearning(ctx context.Context, userID string, from, until time.Time, offset time.Duration) ([]models.DailySeconds, error) {
	query, args := dailyLearningQuery(r.tables, userID, from, until, offset)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("daily learning: %w", postgres.Classify(err))
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.DailySeconds, error) {
		var d models.DailySeconds
		err := row.Scan(&d.Date, &d.Seconds)
		return d, err
	})
}

// CountUsers counts live users
func (r *PostgresInsightRepository) CountUsers(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE NOT is_deleted`, r.tables.Users)

	var n int64
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", postgres.Classify(err))
	}
	return n, nil
}

// ChannelCompletion counts pages and completions per live channel
func (r *PostgresInsightRepository) ChannelCompletion(ctx context.Context, userID string) ([]models.ChannelPages, error) {
	args := []any{}
	cond := ""
	if userID != "" {
		args = append(args, userID)
		cond = " AND ch.user_id = $1"
	}
	query := fmt.Sprintf(`
		SELECT c.id, c.name, COUNT(DISTINCT p.id), COUNT(ch.id)
		FROM %s c
		JOIN %s f ON f.channel_id = c.id AND NOT f.is_deleted
		JOIN %s p ON p.folder_id = f.id AND NOT p.is_deleted
		LEFT JOIN %s ch ON ch.page_id = p.id AND ch.completed_at IS NOT NULL%s
		      AND EXISTS (SELECT 1 FROM %s u WHERE u.id = ch.user_id AND NOT u.is_deleted)
		WHERE NOT c.is_deleted
		GROUP BY c.id, c.name
		ORDER BY c.id
	`, r.tables.Channels, r.tables.Folders, r.tables.Pages, r.tables.CompletionHistory, cond, r.tables.Users)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("channel completion: %w", postgres.Classify(err))
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ChannelPages, error) {
		var c models.ChannelPages
		err := row.Scan(&c.ChannelID, &c.ChannelName, &c.TotalPages, &c.Completed)
		return c, err
	})
}
