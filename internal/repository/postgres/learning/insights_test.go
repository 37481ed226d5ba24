package learning

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"beps/internal/domain"
	models "beps/internal/domain/models/learning"
	statsModels "beps/internal/domain/models/statistics"
	"beps/internal/repository/postgres"
)

func TestPointTotalsQuery(t *testing.T) {
	tables := postgres.NewTableNames("test_")

	tests := []struct {
		group   models.RankGroup
		groupBy string
	}{
		{models.RankByUser, "GROUP BY u.id, u.name"},
		{models.RankByCompany, "GROUP BY COALESCE(u.company, '')"},
		{models.RankByDepartment, "GROUP BY COALESCE(u.company, ''), COALESCE(u.department, '')"},
	}
	for _, tt := range tests {
		t.Run(string(tt.group), func(t *testing.T) {
			q, err := pointTotalsQuery(tables, tt.group)
			if err != nil {
				t.Fatalf("pointTotalsQuery() error = %v", err)
			}
			for _, want := range []string{
				tt.groupBy,
				"FROM test_users u",
				"LEFT JOIN test_content_point_records pr",
				"e.earned::timestamptz >= $1 AND e.earned::timestamptz < $2",
				"WHERE NOT u.is_deleted",
			} {
				if !strings.Contains(q, want) {
					t.Errorf("query missing %q:\n%s", want, q)
				}
			}
		})
	}

	if _, err := pointTotalsQuery(tables, "team"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("unknown group error = %v, want ErrValidation", err)
	}
}

func TestTopViewedQueryFilters(t *testing.T) {
	tables := postgres.NewTableNames("")
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	until := from.AddDate(0, 3, 0)

	tests := []struct {
		name     string
		filter   statsModels.Filter
		wantCond string
		wantArgs int
	}{
		{"all", statsModels.Filter{Type: statsModels.FilterAll}, "", 3},
		{"company", statsModels.Filter{Type: statsModels.FilterCompany, Company: "Acme"}, "AND u.company = $3", 4},
		{"department", statsModels.Filter{Type: statsModels.FilterDepartment, Company: "Acme", Department: "Sales"}, "AND u.company = $3 AND u.department = $4", 5},
		{"user", statsModels.Filter{Type: statsModels.FilterUser, UserID: "bob"}, "AND u.id = $3", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, args := topViewedQuery(tables, tt.filter, from, until, 5)
			if !strings.Contains(q, tt.wantCond) {
				t.Errorf("query missing %q:\n%s", tt.wantCond, q)
			}
			if len(args) != tt.wantArgs || args[len(args)-1] != 5 {
				t.Errorf("args = %v", args)
			}
			if !strings.Contains(q, fmt.Sprintf("LIMIT $%d", len(args))) {
				t.Errorf("limit placeholder does not match %d args:\n%s", len(args), q)
			}
		})
	}
}

func TestDailyLearningQuery(t *testing.T) {
	tables := postgres.NewTableNames("")
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	q, args := dailyLearningQuery(tables, "", from, from.AddDate(0, 0, 7), 9*time.Hour)
	if strings.Contains(q, "v.user_id = $4") || len(args) != 3 {
		t.Errorf("all-user query filters a user: %v\n%s", args, q)
	}
	if args[2] != float64(9*3600) {
		t.Errorf("offset arg = %v, want 32400", args[2])
	}
	if !strings.Contains(q, "make_interval(secs => $3::float8))::date") {
		t.Errorf("date is not shifted by the offset:\n%s", q)
	}

	q, args = dailyLearningQuery(tables, "alice", from, from.AddDate(0, 0, 7), 0)
	if !strings.Contains(q, "AND v.user_id = $4") || len(args) != 4 || args[3] != "alice" {
		t.Errorf("user query = %v\n%s", args, q)
	}
}
