package services

import (
	"context"

	"beps/internal/domain/models"
)

// ContentAuthorizer decides who may change content.
//
// Developers (SuperAdmin, DevAdmin) pass every check. Other callers need a
// content manager assignment on the page, its folder chain or its channel.
type ContentAuthorizer interface {
	// CanUpload returns domain.ErrForbidden unless the caller may stage
	// uploads for the page.
	CanUpload(ctx context.Context, actor models.Identity, pageID int64) error

	// CanApprove returns domain.ErrForbidden unless the caller may approve or
	// delete published content of the page.
	CanApprove(ctx context.Context, actor models.Identity, pageID int64) error

	// RequireDeveloper returns domain.ErrForbidden for non-developer roles.
	RequireDeveloper(actor models.Identity) error
}

// TokenVerifier validates an access token and returns its claims.
type TokenVerifier interface {
	VerifyToken(token string) (*models.TokenClaims, error)
}

// SessionRevoker invalidates an access token at the auth provider.
type SessionRevoker interface {
	Logout(ctx context.Context, token string) error
}
