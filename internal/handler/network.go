package handler

import (
	"log/slog"
	"net/http"

	"beps/internal/domain/services"
	networkSvc "beps/internal/domain/services/network"
	"beps/internal/httputil"
)

// NetworkHandler exposes IP classifier administration
type NetworkHandler struct {
	classifier networkSvc.IPClassifier
	authorizer services.ContentAuthorizer
	logger     *slog.Logger
}

// NewNetworkHandler creates a new network handler
func NewNetworkHandler(classifier networkSvc.IPClassifier, authorizer services.ContentAuthorizer, logger *slog.Logger) *NetworkHandler {
	return &NetworkHandler{
		classifier: classifier,
		authorizer: authorizer,
		logger:     logger,
	}
}

// ReloadRanges reloads the internal IP ranges of this instance
// POST /api/admin/ip-ranges/reload
func (h *NetworkHandler) ReloadRanges(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := h.authorizer.RequireDeveloper(actor); err != nil {
		handleError(w, err)
		return
	}
	if err := h.classifier.Reload(r.Context()); err != nil {
		handleError(w, err)
		return
	}
	h.logger.Info("ip ranges reloaded", "user_id", actor.UserID, "ranges", h.classifier.Len())
	httputil.RespondJSON(w, http.StatusOK, map[string]int{"ranges": h.classifier.Len()})
}
