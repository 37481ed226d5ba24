package handler

import (
	"log/slog"
	"net/http"

	"beps/internal/domain"
	learningModels "beps/internal/domain/models/learning"
	statsModels "beps/internal/domain/models/statistics"
	learningSvc "beps/internal/domain/services/learning"
	"beps/internal/httputil"
)

// InsightHandler serves rankings and progress views to learners
type InsightHandler struct {
	insights learningSvc.InsightService
	logger   *slog.Logger
}

// NewInsightHandler creates a new insight handler
func NewInsightHandler(insights learningSvc.InsightService, logger *slog.Logger) *InsightHandler {
	return &InsightHandler{
		insights: insights,
		logger:   logger,
	}
}

// periodQuery reads filter_type, filter_value, period_type and period_value.
func periodQuery(r *http.Request) (learningSvc.PeriodQuery, error) {
	q := r.URL.Query()
	filter, err := statsModels.ParseFilter(q.Get("filter_type"), q.Get("filter_value"))
	if err != nil {
		return learningSvc.PeriodQuery{}, &domain.ValidationError{Message: err.Error()}
	}
	return learningSvc.PeriodQuery{
		Filter:      filter,
		PeriodType:  statsModels.PeriodType(q.Get("period_type")),
		PeriodValue: q.Get("period_value"),
	}, nil
}

// PointRank returns the groups tied for the most and fewest points
// GET /api/learning/point/rank?filter_type=all|company|department&period_type=&period_value=
func (h *InsightHandler) PointRank(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireIdentity(w, r); !ok {
		return
	}
	q := r.URL.Query()
	group := learningModels.RankGroup(q.Get("filter_type"))
	if group == "" {
		group = learningModels.RankByUser
	}

	ranking, err := h.insights.PointRank(r.Context(), group, learningSvc.PeriodQuery{
		PeriodType:  statsModels.PeriodType(q.Get("period_type")),
		PeriodValue: q.Get("period_value"),
	})
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, ranking)
}

// TopViewedPages returns the most viewed pages of a period
// GET /api/learning/top_viewed_pages?filter_type=&filter_value=&period_type=&period_value=
func (h *InsightHandler) TopViewedPages(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireIdentity(w, r); !ok {
		return
	}
	pq, err := periodQuery(r)
	if err != nil {
		handleError(w, err)
		return
	}
	pages, err := h.insights.TopViewedPages(r.Context(), pq)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"top_pages": pages})
}

// UpdateRanking returns the most and least recently updated pages
// GET /api/learning/rank-update-contents
func (h *InsightHandler) UpdateRanking(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireIdentity(w, r); !ok {
		return
	}
	ranking, err := h.insights.UpdateRanking(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, ranking)
}

// UpdatedContents lists recently updated pages for the caller
// GET /api/learning/updated_contents?days=14
func (h *InsightHandler) UpdatedContents(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	days, err := queryInt64(r, "days")
	if err != nil {
		handleError(w, err)
		return
	}
	n := learningSvc.DefaultUpdatedDays
	if days != nil {
		n = int(*days)
	}

	pages, err := h.insights.UpdatedContents(r.Context(), actor.UserID, n)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"days": n, "contents": pages})
}

// LearningRank places the caller by completed pages
// GET /api/learning/my_learning_rank
func (h *InsightHandler) LearningRank(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	rank, err := h.insights.LearningRank(r.Context(), actor.UserID)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, rank)
}

// ContinuousDays counts the caller's learning streak
// GET /api/learning/continuous_learning_days?reference_date=YYYY-MM-DD
func (h *InsightHandler) ContinuousDays(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	streak, err := h.insights.ContinuousDays(r.Context(), actor.UserID, r.URL.Query().Get("reference_date"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, streak)
}

// LearningTime compares the caller's daily learning with the average
// GET /api/learning/learning_time?start_date=&end_date=
func (h *InsightHandler) LearningTime(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	if q.Get("start_date") == "" || q.Get("end_date") == "" {
		handleError(w, &domain.ValidationError{Message: "start_date and end_date are required"})
		return
	}
	lt, err := h.insights.LearningTime(r.Context(), actor.UserID, q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, lt)
}

// CategoryProgress splits a period's learning time across channels
// GET /api/learning/category_progress?filter_type=&filter_value=&period_type=&period_value=
func (h *InsightHandler) CategoryProgress(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireIdentity(w, r); !ok {
		return
	}
	pq, err := periodQuery(r)
	if err != nil {
		handleError(w, err)
		return
	}
	shares, err := h.insights.CategoryProgress(r.Context(), pq)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"channels": shares})
}

// ChannelCompletion reports completed pages per channel
// GET /api/learning/channel_completion?type=user|all
func (h *InsightHandler) ChannelCompletion(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	userID := actor.UserID
	switch r.URL.Query().Get("type") {
	case "", "user":
	case "all":
		userID = ""
	default:
		handleError(w, &domain.ValidationError{Message: "type must be user or all"})
		return
	}

	channels, err := h.insights.ChannelCompletion(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"channels": channels})
}
