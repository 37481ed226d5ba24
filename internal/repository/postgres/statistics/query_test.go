package statistics

import (
	"strings"
	"testing"
	"time"

	models "beps/internal/domain/models/statistics"
	statsRepo "beps/internal/domain/repositories/statistics"
	"beps/internal/repository/postgres"
)

func TestBuildSummaryQuerySharedShape(t *testing.T) {
	tables := postgres.NewTableNames("test_")
	projection := []string{"user_id_key", "''", "SUM(1)"}
	groupBy := []string{"user_id_key"}
	filter := models.Filter{Type: models.FilterCompany, Company: "ACME"}

	cold, coldArgs, err := buildSummaryQuery(tables, models.SourceLogin, statsRepo.Scope{
		Tier: models.TierCold, PeriodType: models.PeriodQuarter, PeriodValue: "2025-Q1",
	}, filter, projection, groupBy)
	if err != nil {
		t.Fatalf("cold: %v", err)
	}

	start := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	warm, warmArgs, err := buildSummaryQuery(tables, models.SourceLogin, statsRepo.Scope{
		Tier: models.TierWarm, StartDate: start, EndDate: start.AddDate(0, 0, 9),
	}, filter, projection, groupBy)
	if err != nil {
		t.Fatalf("warm: %v", err)
	}

	if !strings.Contains(cold, "FROM test_login_summary_agg") {
		t.Errorf("cold query reads wrong table: %s", cold)
	}
	if !strings.Contains(warm, "FROM test_login_summary_day") {
		t.Errorf("warm query reads wrong table: %s", warm)
	}

	// Everything after the period predicate is identical.
	coldTail := cold[strings.Index(cold, "company_key"):]
	warmTail := warm[strings.Index(warm, "company_key"):]
	if coldTail != warmTail {
		t.Errorf("tails differ:\ncold: %s\nwarm: %s", coldTail, warmTail)
	}
	if len(coldArgs) != 3 || len(warmArgs) != 3 {
		t.Errorf("args = %d/%d, want 3/3", len(coldArgs), len(warmArgs))
	}
	if coldArgs[2] != "ACME" || warmArgs[2] != "ACME" {
		t.Errorf("filter arg not last: %v %v", coldArgs, warmArgs)
	}
}

func TestBuildSummaryQueryFilters(t *testing.T) {
	tables := postgres.NewTableNames("")
	scope := statsRepo.Scope{Tier: models.TierCold, PeriodType: models.PeriodYear, PeriodValue: "2024"}

	tests := []struct {
		name     string
		filter   models.Filter
		contains []string
		args     int
	}{
		{
			name:   "all",
			filter: models.Filter{Type: models.FilterAll},
			args:   2,
		},
		{
			name:     "department with company",
			filter:   models.Filter{Type: models.FilterDepartment, Company: "ACME", Department: "R&D"},
			contains: []string{"company_key = $3", "department_key = $4"},
			args:     4,
		},
		{
			name:     "bare department",
			filter:   models.Filter{Type: models.FilterDepartment, Department: "R&D"},
			contains: []string{"department_key = $3"},
			args:     3,
		},
		{
			name:     "user",
			filter:   models.Filter{Type: models.FilterUser, UserID: "alice"},
			contains: []string{"user_id_key = $3"},
			args:     3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := buildSummaryQuery(tables, models.SourceLearning, scope, tt.filter, []string{"COUNT(*)"}, nil)
			if err != nil {
				t.Fatalf("buildSummaryQuery() error = %v", err)
			}
			if !strings.Contains(query, "FROM learning_summary_agg") {
				t.Errorf("query = %s", query)
			}
			for _, want := range tt.contains {
				if !strings.Contains(query, want) {
					t.Errorf("query missing %q: %s", want, query)
				}
			}
			if len(args) != tt.args {
				t.Errorf("len(args) = %d, want %d", len(args), tt.args)
			}
		})
	}
}

func TestBuildSummaryQueryRejectsHot(t *testing.T) {
	_, _, err := buildSummaryQuery(postgres.NewTableNames(""), models.SourceLogin,
		statsRepo.Scope{Tier: models.TierHot}, models.Filter{Type: models.FilterAll}, []string{"1"}, nil)
	if err == nil {
		t.Fatal("expected error for hot tier")
	}
}

func TestBuildHotGroupQuery(t *testing.T) {
	tables := postgres.NewTableNames("")
	from := time.Date(2025, 4, 13, 15, 0, 0, 0, time.UTC)
	scope := statsRepo.Scope{Tier: models.TierHot, From: from, Until: from.Add(48 * time.Hour)}

	query, args, err := buildHotGroupQuery(tables, scope, models.Filter{Type: models.FilterUser, UserID: "bob"}, models.GroupUser)
	if err != nil {
		t.Fatalf("buildHotGroupQuery() error = %v", err)
	}
	for _, want := range []string{"FROM login_history l JOIN users u", "l.login_time >= $1 AND l.login_time < $2", "u.id = $3", "GROUP BY u.id"} {
		if !strings.Contains(query, want) {
			t.Errorf("query missing %q: %s", want, query)
		}
	}
	if len(args) != 3 {
		t.Errorf("len(args) = %d, want 3", len(args))
	}

	query, _, err = buildHotGroupQuery(tables, scope, models.Filter{Type: models.FilterAll}, models.GroupChannel)
	if err != nil {
		t.Fatalf("channel grouping error = %v", err)
	}
	if !strings.Contains(query, "content_viewing_history v") || !strings.Contains(query, "GROUP BY c.id") {
		t.Errorf("channel query = %s", query)
	}
}

func TestLoginDayQueryDerivesMissingLogout(t *testing.T) {
	q := loginDayQuery(postgres.NewTableNames("test_"))

	if !strings.Contains(q, "COALESCE(l.logout_time, l.login_time + COALESCE(l.session_duration, INTERVAL '0'))") {
		t.Errorf("logout hour does not fall back to login + duration:\n%s", q)
	}
	if strings.Contains(q, "EXTRACT(HOUR FROM (l.logout_time AT TIME ZONE") {
		t.Errorf("logout hour still reads the raw column:\n%s", q)
	}
	if n := strings.Count(q, "login_hour BETWEEN 8 AND 18 AND logout_hour <= 18"); n != 2 {
		t.Errorf("work-time condition appears %d times, want 2", n)
	}
	if !strings.Contains(q, "INSERT INTO test_login_summary_day") {
		t.Errorf("wrong target table:\n%s", q)
	}
}
