package handler

import (
	"log/slog"
	"net/http"

	contentSvc "beps/internal/domain/services/content"
	"beps/internal/httputil"
)

// ManagerHandler handles content manager assignments
type ManagerHandler struct {
	managers contentSvc.ManagerService
	logger   *slog.Logger
}

// NewManagerHandler creates a new content manager handler
func NewManagerHandler(managers contentSvc.ManagerService, logger *slog.Logger) *ManagerHandler {
	return &ManagerHandler{
		managers: managers,
		logger:   logger,
	}
}

// List returns every assignment with its assignee
// GET /api/contents/content_manager
func (h *ManagerHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.managers.List(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, entries)
}

// Create assigns a manager
// POST /api/contents/content_manager
func (h *ManagerHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req contentSvc.ManagerRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}
	manager, err := h.managers.Create(r.Context(), actor, &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, manager)
}

// Update changes an assignment's user or target
// PUT /api/contents/content_manager/{id}
func (h *ManagerHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, ok := PathID(w, r, "id")
	if !ok {
		return
	}
	var req contentSvc.ManagerRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}
	manager, err := h.managers.Update(r.Context(), actor, id, &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, manager)
}

// Delete removes an assignment
// DELETE /api/contents/content_manager/{id}
func (h *ManagerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, ok := PathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.managers.Delete(r.Context(), actor, id); err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"message": "content manager deleted"})
}
