package httputil

import (
	"context"

	"beps/internal/domain/models"
)

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity adds the verified caller to the context
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentity extracts the verified caller from the context
func GetIdentity(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey).(models.Identity)
	return id, ok && id.UserID != ""
}
