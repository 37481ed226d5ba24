package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		status   int
	}{
		{"not found", &NotFoundError{Message: "page 3"}, ErrNotFound, http.StatusNotFound},
		{"validation", &ValidationError{Message: "bad"}, ErrValidation, http.StatusBadRequest},
		{"forbidden", &ForbiddenError{Message: "no"}, ErrForbidden, http.StatusForbidden},
		{"unauthorized", &UnauthorizedError{Message: "who"}, ErrUnauthorized, http.StatusUnauthorized},
		{"too large", &PayloadTooLargeError{Message: "big", Limit: 10}, ErrTooLarge, http.StatusRequestEntityTooLarge},
		{"conflict", &ConflictError{Message: "dup"}, ErrConflict, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", wrapped, tt.sentinel)
			}

			var httpErr HTTPError
			if !errors.As(wrapped, &httpErr) {
				t.Fatalf("errors.As HTTPError failed")
			}
			if httpErr.StatusCode() != tt.status {
				t.Errorf("StatusCode() = %d, want %d", httpErr.StatusCode(), tt.status)
			}
		})
	}
}
