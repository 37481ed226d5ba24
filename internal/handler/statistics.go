package handler

import (
	"log/slog"
	"net/http"

	"beps/internal/domain"
	statsModels "beps/internal/domain/models/statistics"
	"beps/internal/domain/services"
	statsSvc "beps/internal/domain/services/statistics"
	"beps/internal/httputil"
)

// StatisticsHandler serves aggregation queries
type StatisticsHandler struct {
	engine     statsSvc.AggregationEngine
	authorizer services.ContentAuthorizer
	logger     *slog.Logger
}

// NewStatisticsHandler creates a new statistics handler
func NewStatisticsHandler(engine statsSvc.AggregationEngine, authorizer services.ContentAuthorizer, logger *slog.Logger) *StatisticsHandler {
	return &StatisticsHandler{
		engine:     engine,
		authorizer: authorizer,
		logger:     logger,
	}
}

// Query answers one metric
// GET /api/statistics/{metric}?filter_type=&filter_value=&period_type=&period_value=
func (h *StatisticsHandler) Query(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := h.authorizer.RequireDeveloper(actor); err != nil {
		handleError(w, err)
		return
	}

	q := r.URL.Query()
	filter, err := statsModels.ParseFilter(q.Get("filter_type"), q.Get("filter_value"))
	if err != nil {
		handleError(w, &domain.ValidationError{Message: err.Error()})
		return
	}

	result, err := h.engine.Query(r.Context(), statsModels.Query{
		Metric:      statsModels.Metric(r.PathValue("metric")),
		Filter:      filter,
		PeriodType:  statsModels.PeriodType(q.Get("period_type")),
		PeriodValue: q.Get("period_value"),
	})
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}
