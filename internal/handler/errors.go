package handler

import (
	"errors"
	"net/http"

	"beps/internal/domain"
	notifSvc "beps/internal/domain/services/notification"
	"beps/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	var conflictErr *domain.ConflictError
	var tooLarge *domain.PayloadTooLargeError

	switch {
	case errors.Is(err, notifSvc.ErrNotLoaded):
		httputil.RespondErrorWithExtras(w, http.StatusNotFound, "push cache not loaded", map[string]interface{}{
			"code": notifSvc.ErrNotLoaded.Error(),
		})
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &tooLarge):
		httputil.RespondErrorWithExtras(w, http.StatusRequestEntityTooLarge, tooLarge.Error(), map[string]interface{}{
			"limit": tooLarge.Limit,
		})
	case errors.Is(err, domain.ErrTooLarge):
		httputil.RespondError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.As(err, &conflictErr):
		extras := map[string]interface{}{}
		if conflictErr.ResourceType != "" {
			extras["resource_type"] = conflictErr.ResourceType
		}
		if conflictErr.ResourceID != "" {
			extras["resource_id"] = conflictErr.ResourceID
		}
		httputil.RespondErrorWithExtras(w, http.StatusConflict, conflictErr.Error(), extras)
	case errors.Is(err, domain.ErrStorageUnavailable):
		httputil.RespondError(w, http.StatusServiceUnavailable, "object storage unavailable")
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
