package handler

import (
	"net/http"
	"strconv"
	"strings"

	"beps/internal/domain"
	"beps/internal/domain/models"
	"beps/internal/httputil"
)

// PathID parses a positive integer path parameter. On failure it writes a 400
// and returns false.
func PathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		httputil.RespondError(w, http.StatusBadRequest, "invalid "+name+": "+raw)
		return 0, false
	}
	return id, true
}

// requireIdentity returns the caller or writes a 401.
func requireIdentity(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	id, ok := httputil.GetIdentity(r.Context())
	if !ok {
		handleError(w, &domain.UnauthorizedError{Message: "authentication required"})
		return models.Identity{}, false
	}
	return id, true
}

// queryBool reads a boolean query flag, falling back to def when absent or malformed.
func queryBool(r *http.Request, name string, def bool) bool {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// queryInt64 reads an optional integer query parameter.
func queryInt64(r *http.Request, name string) (*int64, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, &domain.ValidationError{Message: "invalid " + name + ": " + v}
	}
	return &n, nil
}
