package statistics

import (
	"fmt"
	"strings"

	models "beps/internal/domain/models/statistics"
	statsRepo "beps/internal/domain/repositories/statistics"
	"beps/internal/repository/postgres"
)

// sqlBuilder accumulates positional arguments and WHERE predicates.
type sqlBuilder struct {
	args  []any
	where []string
}

func (b *sqlBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *sqlBuilder) and(format string, values ...any) {
	placeholders := make([]any, len(values))
	for i, v := range values {
		placeholders[i] = b.arg(v)
	}
	b.where = append(b.where, fmt.Sprintf(format, placeholders...))
}

func (b *sqlBuilder) whereClause() string {
	if len(b.where) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(b.where, " AND ")
}

// summaryTable picks the table a cold or warm scope reads.
func summaryTable(tables *postgres.TableNames, source models.Source, tier models.Tier) (string, error) {
	switch {
	case source == models.SourceLogin && tier == models.TierCold:
		return tables.LoginSummaryAgg, nil
	case source == models.SourceLogin && tier == models.TierWarm:
		return tables.LoginSummaryDay, nil
	case source == models.SourceLearning && tier == models.TierCold:
		return tables.LearningSummaryAgg, nil
	case source == models.SourceLearning && tier == models.TierWarm:
		return tables.LearningSummaryDay, nil
	}
	return "", fmt.Errorf("no summary table for %s tier %q", source, tier)
}

// summaryFilter restricts summary rows through their *_key columns.
func summaryFilter(b *sqlBuilder, filter models.Filter) {
	switch filter.Type {
	case models.FilterCompany:
		b.and("company_key = %s", filter.Company)
	case models.FilterDepartment:
		if filter.Company != "" {
			b.and("company_key = %s", filter.Company)
		}
		b.and("department_key = %s", filter.Department)
	case models.FilterUser:
		b.and("user_id_key = %s", filter.UserID)
	}
}

// userFilter restricts raw ledger rows through the joined users table.
func userFilter(b *sqlBuilder, filter models.Filter, alias string) {
	switch filter.Type {
	case models.FilterCompany:
		b.and(alias+".company = %s", filter.Company)
	case models.FilterDepartment:
		if filter.Company != "" {
			b.and(alias+".company = %s", filter.Company)
		}
		b.and(alias+".department = %s", filter.Department)
	case models.FilterUser:
		b.and(alias+".id = %s", filter.UserID)
	}
}

// buildSummaryQuery emits the one query shape shared by the cold and warm
// tiers: only the table and the period predicate differ.
func buildSummaryQuery(tables *postgres.TableNames, source models.Source, scope statsRepo.Scope, filter models.Filter, projection, groupBy []string) (string, []any, error) {
	table, err := summaryTable(tables, source, scope.Tier)
	if err != nil {
		return "", nil, err
	}

	b := &sqlBuilder{}
	if scope.Tier == models.TierCold {
		b.and("period_type = %s AND period_value = %s", string(scope.PeriodType), scope.PeriodValue)
	} else {
		b.and("period_value BETWEEN %s AND %s", scope.StartDate, scope.EndDate)
	}
	summaryFilter(b, filter)

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s %s", strings.Join(projection, ", "), table, b.whereClause())
	if len(groupBy) > 0 {
		fmt.Fprintf(&sb, " GROUP BY %s ORDER BY %s", strings.Join(groupBy, ", "), strings.Join(groupBy, ", "))
	}
	return sb.String(), b.args, nil
}

// groupColumns returns the summary columns a grouping is keyed on, followed by
// the label column.
func groupColumns(grouping models.Grouping) (keys []string, label string, err error) {
	switch grouping {
	case models.GroupUser:
		return []string{"user_id_key"}, "''", nil
	case models.GroupDepartment:
		return []string{"company_key", "department_key"}, "''", nil
	case models.GroupCompany:
		return []string{"company_key"}, "''", nil
	case models.GroupChannel:
		return []string{"channel_id"}, "MAX(channel_name)", nil
	}
	return nil, "", fmt.Errorf("unknown grouping %q", grouping)
}

// hotGroupColumns mirrors groupColumns over the raw ledger joins.
func hotGroupColumns(grouping models.Grouping) (keys []string, label string, err error) {
	switch grouping {
	case models.GroupUser:
		return []string{"u.id"}, "MAX(u.name)", nil
	case models.GroupDepartment:
		return []string{"COALESCE(u.company, '')", "COALESCE(u.department, '')"}, "''", nil
	case models.GroupCompany:
		return []string{"COALESCE(u.company, '')"}, "''", nil
	case models.GroupChannel:
		return []string{"c.id"}, "MAX(c.name)", nil
	}
	return nil, "", fmt.Errorf("unknown grouping %q", grouping)
}

// buildHotGroupQuery sums raw durations of [From, Until) per group. Channel
// groupings read the viewing ledger, every other grouping the login ledger.
func buildHotGroupQuery(tables *postgres.TableNames, scope statsRepo.Scope, filter models.Filter, grouping models.Grouping) (string, []any, error) {
	keys, label, err := hotGroupColumns(grouping)
	if err != nil {
		return "", nil, err
	}

	b := &sqlBuilder{}
	var from, duration string
	if grouping == models.GroupChannel {
		from = fmt.Sprintf(`%s v
			LEFT JOIN %s d ON v.file_type = 'detail' AND d.id = v.file_id
			JOIN %s p ON p.id = CASE WHEN v.file_type = 'detail' THEN d.page_id ELSE v.file_id END
			JOIN %s f ON f.id = p.folder_id
			JOIN %s c ON c.id = f.channel_id
			JOIN %s u ON u.id = v.user_id`,
			tables.ViewingHistory, tables.PageDetails, tables.Pages, tables.Folders, tables.Channels, tables.Users)
		duration = "v.stay_duration"
		b.and("v.start_time >= %s AND v.start_time < %s", scope.From, scope.Until)
	} else {
		from = fmt.Sprintf(`%s l JOIN %s u ON u.id = l.user_id`, tables.LoginHistory, tables.Users)
		duration = "COALESCE(l.session_duration, INTERVAL '0')"
		b.and("l.login_time >= %s AND l.login_time < %s", scope.From, scope.Until)
	}
	userFilter(b, filter, "u")

	projection := append(append([]string{}, keys...),
		label,
		fmt.Sprintf("COALESCE(SUM(EXTRACT(EPOCH FROM %s)), 0)::float8", duration),
	)
	query := fmt.Sprintf("SELECT %s FROM %s %s GROUP BY %s ORDER BY %s",
		strings.Join(projection, ", "), from, b.whereClause(),
		strings.Join(keys, ", "), strings.Join(keys, ", "))
	return query, b.args, nil
}
