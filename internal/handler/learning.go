package handler

import (
	"log/slog"
	"net/http"
	"time"

	learningModels "beps/internal/domain/models/learning"
	learningSvc "beps/internal/domain/services/learning"
	"beps/internal/httputil"
)

// recordViewResponse flattens the point grant next to the view id.
type recordViewResponse struct {
	ID int64 `json:"id"`
	learningModels.PointGrant
	Completion *learningModels.CompletionHistory `json:"completion,omitempty"`
}

// LearningHandler handles view recording and points
type LearningHandler struct {
	ledger learningSvc.LedgerService
	now    func() time.Time
	logger *slog.Logger
}

// NewLearningHandler creates a new learning handler
func NewLearningHandler(ledger learningSvc.LedgerService, logger *slog.Logger) *LearningHandler {
	return &LearningHandler{
		ledger: ledger,
		now:    time.Now,
		logger: logger,
	}
}

// Start returns the server clock; clients send it back as start_time when the view ends
// GET /api/learning/start
func (h *LearningHandler) Start(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireIdentity(w, r); !ok {
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]time.Time{"start_time": h.now().UTC()})
}

// RecordView records a finished view. Views shorter than the point duration
// are answered with 204 and nothing is stored.
// POST /api/learning/views
func (h *LearningHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req learningSvc.RecordViewRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}
	req.Actor = actor
	req.IPAddress = httputil.RemoteIP(r)

	result, err := h.ledger.RecordView(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	if result.TooShort {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, recordViewResponse{
		ID:         result.ViewID,
		PointGrant: result.Point,
		Completion: result.Completion,
	})
}

// Points returns the caller's point summary
// GET /api/learning/points
func (h *LearningHandler) Points(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	summary, err := h.ledger.PointSummary(r.Context(), actor.UserID)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, summary)
}
