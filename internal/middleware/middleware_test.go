package middleware

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"beps/internal/domain"
	"beps/internal/domain/models"
	"beps/internal/httputil"
)

type fakeVerifier struct {
	valid map[string]*models.TokenClaims
}

func (f *fakeVerifier) VerifyToken(token string) (*models.TokenClaims, error) {
	if c, ok := f.valid[token]; ok {
		return c, nil
	}
	return nil, domain.ErrUnauthorized
}

func (f *fakeVerifier) Close() error { return nil }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAuth(t *testing.T) {
	claims := &models.TokenClaims{Role: models.RoleDevAdmin}
	claims.Subject = "alice"
	verifier := &fakeVerifier{valid: map[string]*models.TokenClaims{"good": claims}}

	var seen models.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = httputil.GetIdentity(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := Auth(verifier, discard())(next)

	tests := []struct {
		name   string
		header string
		cookie string
		want   int
	}{
		{"bearer", "Bearer good", "", http.StatusNoContent},
		{"lowercase scheme", "bearer good", "", http.StatusNoContent},
		{"cookie", "", "good", http.StatusNoContent},
		{"bad token", "Bearer nope", "", http.StatusUnauthorized},
		{"basic scheme", "Basic good", "good", http.StatusUnauthorized},
		{"missing", "", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = models.Identity{}
			req := httptest.NewRequest(http.MethodGet, "/api/learning/start", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusNoContent && (seen.UserID != "alice" || seen.Role != models.RoleDevAdmin) {
				t.Errorf("identity = %+v", seen)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(errors.New("boom"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("content type = %q", ct)
	}
}

func TestRequestLoggerKeepsStatus(t *testing.T) {
	h := RequestLogger(discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
}
