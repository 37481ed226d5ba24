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

// PostgresRollupRepository implements statsRepo.RollupRepository
type PostgresRollupRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewRollupRepository creates a new summary writer
func NewRollupRepository(config *postgres.RepositoryConfig) statsRepo.RollupRepository {
	return &PostgresRollupRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// RollupDay rebuilds login and learning day rows for date. Work hours are
// judged on local wall-clock time, obtained by shifting UTC by the zone offset
// in effect at the start of the day.
func (r *PostgresRollupRepository) RollupDay(ctx context.Context, date time.Time, loc *time.Location) error {
	from := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	until := from.AddDate(0, 0, 1)
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	_, offset := from.Zone()

	login := loginDayQuery(r.tables)

	learning := fmt.Sprintf(`
		INSERT INTO %[7]s (period_value, company, department, user_id, channel_id, channel_name, total_duration)
		SELECT $1::date, NULLIF(COALESCE(u.company, ''), ''), NULLIF(COALESCE(u.department, ''), ''),
		       v.user_id, c.id, MAX(c.name), SUM(v.stay_duration)
		FROM %[1]s v
		LEFT JOIN %[2]s d ON v.file_type = 'detail' AND d.id = v.file_id
		JOIN %[3]s p ON p.id = CASE WHEN v.file_type = 'detail' THEN d.page_id ELSE v.file_id END
		JOIN %[4]s f ON f.id = p.folder_id
		JOIN %[5]s c ON c.id = f.channel_id
		JOIN %[6]s u ON u.id = v.user_id
		WHERE v.start_time >= $2 AND v.start_time < $3
		GROUP BY COALESCE(u.company, ''), COALESCE(u.department, ''), v.user_id, c.id
		ON CONFLICT (period_value, company_key, department_key, user_id_key, channel_id) DO UPDATE
		SET channel_name = EXCLUDED.channel_name,
		    total_duration = EXCLUDED.total_duration
	`, r.tables.ViewingHistory, r.tables.PageDetails, r.tables.Pages, r.tables.Folders,
		r.tables.Channels, r.tables.Users, r.tables.LearningSummaryDay)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, login, day, from, until, float64(offset)); err != nil {
		return fmt.Errorf("rollup login day %s: %w", day.Format(time.DateOnly), postgres.Classify(err))
	}
	if _, err := executor.Exec(ctx, learning, day, from, until); err != nil {
		return fmt.Errorf("rollup learning day %s: %w", day.Format(time.DateOnly), postgres.Classify(err))
	}
	return nil
}

// loginDayQuery builds the login day rollup. A session without logout_time
// ends at login_time + session_duration, the same rule the hot tier applies.
//
// $1 day, $2..$3 login window, $4 zone offset in seconds.
func loginDayQuery(tables *postgres.TableNames) string {
	return fmt.Sprintf(`
		WITH sessions AS (
			SELECT l.user_id,
			       COALESCE(u.company, '') AS company,
			       COALESCE(u.department, '') AS department,
			       COALESCE(l.session_duration, INTERVAL '0') AS duration,
			       EXTRACT(HOUR FROM (l.login_time AT TIME ZONE 'UTC') + make_interval(secs => $4::float8)) AS login_hour,
			       EXTRACT(HOUR FROM (COALESCE(l.logout_time, l.login_time + COALESCE(l.session_duration, INTERVAL '0')) AT TIME ZONE 'UTC')
			                         + make_interval(secs => $4::float8)) AS logout_hour,
			       l.ip_address,
			       EXISTS (
			           SELECT 1 FROM %[3]s ir
			           WHERE family(ir.start_ip) = 4
			             AND ip.addr BETWEEN ir.start_ip AND ir.end_ip
			       ) AS internal
			FROM %[1]s l
			JOIN %[2]s u ON u.id = l.user_id
			CROSS JOIN LATERAL (
			    SELECT CASE WHEN l.ip_address ~ '^[0-9]{1,3}(\.[0-9]{1,3}){3}$'
			                THEN l.ip_address::inet END AS addr
			) ip
			WHERE l.login_time >= $2 AND l.login_time < $3
		)
		INSERT INTO %[4]s (period_value, company, department, user_id,
		                   total_duration, worktime_duration, offhour_duration,
		                   internal_count, external_count)
		SELECT $1::date, NULLIF(company, ''), NULLIF(department, ''), user_id,
		       SUM(duration),
		       SUM(CASE WHEN %[5]s THEN duration ELSE INTERVAL '0' END),
		       SUM(CASE WHEN %[5]s THEN INTERVAL '0' ELSE duration END),
		       COUNT(DISTINCT ip_address) FILTER (WHERE internal),
		       COUNT(DISTINCT ip_address) FILTER (WHERE NOT internal AND ip_address IS NOT NULL)
		FROM sessions
		GROUP BY company, department, user_id
		ON CONFLICT (period_value, company_key, department_key, user_id_key) DO UPDATE
		SET total_duration = EXCLUDED.total_duration,
		    worktime_duration = EXCLUDED.worktime_duration,
		    offhour_duration = EXCLUDED.offhour_duration,
		    internal_count = EXCLUDED.internal_count,
		    external_count = EXCLUDED.external_count
	`, tables.LoginHistory, tables.Users, tables.IPRanges, tables.LoginSummaryDay, workTimeCondition)
}

// workTimeCondition mirrors models.IsWorkTime over the sessions CTE.
var workTimeCondition = fmt.Sprintf("login_hour BETWEEN %d AND %d AND logout_hour <= %d",
	models.WorkStartHour, models.WorkEndHour, models.WorkEndHour)

// RollupPeriod folds the day rows of [start, end] into agg rows
func (r *PostgresRollupRepository) RollupPeriod(ctx context.Context, periodType models.PeriodType, periodValue string, start, end time.Time) error {
	login := fmt.Sprintf(`
		INSERT INTO %[2]s (period_type, period_value, company, department, user_id,
		                   total_duration, worktime_duration, offhour_duration,
		                   internal_count, external_count)
		SELECT $1, $2, MAX(company), MAX(department), MAX(user_id),
		       SUM(total_duration), SUM(worktime_duration), SUM(offhour_duration),
		       SUM(internal_count), SUM(external_count)
		FROM %[1]s
		WHERE period_value BETWEEN $3 AND $4
		GROUP BY company_key, department_key, user_id_key
		ON CONFLICT (period_type, period_value, company_key, department_key, user_id_key) DO UPDATE
		SET total_duration = EXCLUDED.total_duration,
		    worktime_duration = EXCLUDED.worktime_duration,
		    offhour_duration = EXCLUDED.offhour_duration,
		    internal_count = EXCLUDED.internal_count,
		    external_count = EXCLUDED.external_count
	`, r.tables.LoginSummaryDay, r.tables.LoginSummaryAgg)

	learning := fmt.Sprintf(`
		INSERT INTO %[2]s (period_type, period_value, company, department, user_id,
		                   channel_id, channel_name, total_duration)
		SELECT $1, $2, MAX(company), MAX(department), MAX(user_id),
		       channel_id, MAX(channel_name), SUM(total_duration)
		FROM %[1]s
		WHERE period_value BETWEEN $3 AND $4
		GROUP BY company_key, department_key, user_id_key, channel_id
		ON CONFLICT (period_type, period_value, company_key, department_key, user_id_key, channel_id) DO UPDATE
		SET channel_name = EXCLUDED.channel_name,
		    total_duration = EXCLUDED.total_duration
	`, r.tables.LearningSummaryDay, r.tables.LearningSummaryAgg)

	executor := postgres.GetExecutor(ctx, r.pool)
	args := []any{string(periodType), periodValue, start, end}
	if _, err := executor.Exec(ctx, login, args...); err != nil {
		return fmt.Errorf("rollup login %s %s: %w", periodType, periodValue, postgres.Classify(err))
	}
	if _, err := executor.Exec(ctx, learning, args...); err != nil {
		return fmt.Errorf("rollup learning %s %s: %w", periodType, periodValue, postgres.Classify(err))
	}
	return nil
}
