package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"beps/internal/domain"
	"beps/internal/domain/models"
	learningModels "beps/internal/domain/models/learning"
	statsModels "beps/internal/domain/models/statistics"
	learningSvc "beps/internal/domain/services/learning"
)

// fakeInsightService records the arguments of the last call.
type fakeInsightService struct {
	learningSvc.InsightService
	group  learningModels.RankGroup
	query  learningSvc.PeriodQuery
	userID string
	days   int
	ref    string
}

func (f *fakeInsightService) PointRank(_ context.Context, group learningModels.RankGroup, q learningSvc.PeriodQuery) (*learningModels.PointRanking, error) {
	f.group, f.query = group, q
	return &learningModels.PointRanking{Top: []learningModels.PointTotal{{UserID: "bob", Points: 7}}}, nil
}

func (f *fakeInsightService) TopViewedPages(_ context.Context, q learningSvc.PeriodQuery) ([]learningModels.PageViews, error) {
	f.query = q
	return []learningModels.PageViews{{FileID: 3, FileName: "Intro", ViewCount: 12}}, nil
}

func (f *fakeInsightService) UpdatedContents(_ context.Context, userID string, days int) ([]learningModels.UpdatedPage, error) {
	f.userID, f.days = userID, days
	if days <= 0 {
		return nil, &domain.ValidationError{Message: "days must be greater than 0"}
	}
	return nil, nil
}

func (f *fakeInsightService) ContinuousDays(_ context.Context, userID, ref string) (*learningModels.LearningStreak, error) {
	f.userID, f.ref = userID, ref
	return &learningModels.LearningStreak{UserID: userID, ReferenceDate: ref, ContinuousDays: 4}, nil
}

func (f *fakeInsightService) LearningTime(_ context.Context, userID, start, end string) (*learningModels.LearningTime, error) {
	f.userID = userID
	return &learningModels.LearningTime{UserID: userID, StartDate: start, EndDate: end}, nil
}

func (f *fakeInsightService) ChannelCompletion(_ context.Context, userID string) ([]learningModels.ChannelCompletion, error) {
	f.userID = userID
	return nil, nil
}

func insightMux(svc *fakeInsightService) *http.ServeMux {
	h := NewInsightHandler(svc, discardLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/learning/point/rank", h.PointRank)
	mux.HandleFunc("GET /api/learning/top_viewed_pages", h.TopViewedPages)
	mux.HandleFunc("GET /api/learning/updated_contents", h.UpdatedContents)
	mux.HandleFunc("GET /api/learning/continuous_learning_days", h.ContinuousDays)
	mux.HandleFunc("GET /api/learning/learning_time", h.LearningTime)
	mux.HandleFunc("GET /api/learning/channel_completion", h.ChannelCompletion)
	return mux
}

func TestInsightRoutes(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		status   int
		body     string
		validate func(t *testing.T, svc *fakeInsightService)
	}{
		{
			name:   "point rank defaults to users",
			target: "/api/learning/point/rank?period_type=year&period_value=2025",
			status: http.StatusOK,
			body:   `"total_points":7`,
			validate: func(t *testing.T, svc *fakeInsightService) {
				if svc.group != learningModels.RankByUser || svc.query.PeriodValue != "2025" {
					t.Errorf("group = %q query = %+v", svc.group, svc.query)
				}
			},
		},
		{
			name:   "top viewed pages parses the filter",
			target: "/api/learning/top_viewed_pages?filter_type=department&filter_value=Acme%7C%7CSales&period_type=quarter&period_value=2025-Q1",
			status: http.StatusOK,
			body:   `"top_pages":[{"file_id":3`,
			validate: func(t *testing.T, svc *fakeInsightService) {
				want := statsModels.Filter{Type: statsModels.FilterDepartment, Company: "Acme", Department: "Sales"}
				if svc.query.Filter != want || svc.query.PeriodType != statsModels.PeriodQuarter {
					t.Errorf("query = %+v", svc.query)
				}
			},
		},
		{
			name:   "top viewed pages rejects a filter without value",
			target: "/api/learning/top_viewed_pages?filter_type=company&period_type=year&period_value=2025",
			status: http.StatusBadRequest,
		},
		{
			name:   "updated contents defaults the window",
			target: "/api/learning/updated_contents",
			status: http.StatusOK,
			body:   `"days":14`,
			validate: func(t *testing.T, svc *fakeInsightService) {
				if svc.userID != "alice" || svc.days != learningSvc.DefaultUpdatedDays {
					t.Errorf("user = %q days = %d", svc.userID, svc.days)
				}
			},
		},
		{
			name:   "updated contents rejects zero days",
			target: "/api/learning/updated_contents?days=0",
			status: http.StatusBadRequest,
		},
		{
			name:   "updated contents rejects text days",
			target: "/api/learning/updated_contents?days=two",
			status: http.StatusBadRequest,
		},
		{
			name:   "streak for the caller",
			target: "/api/learning/continuous_learning_days?reference_date=2025-03-05",
			status: http.StatusOK,
			body:   `"continuous_learning_days":4`,
			validate: func(t *testing.T, svc *fakeInsightService) {
				if svc.userID != "alice" || svc.ref != "2025-03-05" {
					t.Errorf("user = %q ref = %q", svc.userID, svc.ref)
				}
			},
		},
		{
			name:   "learning time needs both dates",
			target: "/api/learning/learning_time?start_date=2025-03-01",
			status: http.StatusBadRequest,
		},
		{
			name:   "learning time",
			target: "/api/learning/learning_time?start_date=2025-03-01&end_date=2025-03-07",
			status: http.StatusOK,
			body:   `"end_date":"2025-03-07"`,
		},
		{
			name:   "channel completion for everyone",
			target: "/api/learning/channel_completion?type=all",
			status: http.StatusOK,
			validate: func(t *testing.T, svc *fakeInsightService) {
				if svc.userID != "" {
					t.Errorf("user = %q, want every user", svc.userID)
				}
			},
		},
		{
			name:   "channel completion for the caller",
			target: "/api/learning/channel_completion",
			status: http.StatusOK,
			validate: func(t *testing.T, svc *fakeInsightService) {
				if svc.userID != "alice" {
					t.Errorf("user = %q, want alice", svc.userID)
				}
			},
		},
		{
			name:   "channel completion rejects an unknown type",
			target: "/api/learning/channel_completion?type=team",
			status: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeInsightService{}
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			rec := httptest.NewRecorder()
			insightMux(svc).ServeHTTP(rec, withIdentity(req, "alice", models.RoleInternalUser))

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tt.status, rec.Body.String())
			}
			if tt.body != "" && !strings.Contains(rec.Body.String(), tt.body) {
				t.Errorf("body = %s, want %s", rec.Body.String(), tt.body)
			}
			if tt.validate != nil {
				tt.validate(t, svc)
			}
		})
	}
}

func TestInsightRoutesRequireIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/learning/continuous_learning_days", nil)
	rec := httptest.NewRecorder()
	insightMux(&fakeInsightService{}).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
