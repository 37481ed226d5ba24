package models

import "github.com/golang-jwt/jwt/v5"

// Role is the role enumeration carried in access tokens.
type Role int

const (
	RoleSuperAdmin   Role = 1
	RoleDevAdmin     Role = 2
	RoleInternalUser Role = 5
	RoleExternalUser Role = 6
)

// IsDeveloper reports whether the role bypasses content manager checks.
func (r Role) IsDeveloper() bool {
	return r == RoleSuperAdmin || r == RoleDevAdmin
}

// Identity is the verified caller of a request.
type Identity struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// TokenClaims is the access token payload issued by the auth provider.
// The subject claim holds the user id.
type TokenClaims struct {
	jwt.RegisteredClaims
	Role Role   `json:"role"`
	Name string `json:"name,omitempty"`
}

// GetUserID returns the user ID from the JWT subject claim.
func (c *TokenClaims) GetUserID() string {
	return c.Subject
}

// Identity projects the claims onto the request identity.
func (c *TokenClaims) Identity() Identity {
	return Identity{UserID: c.Subject, Role: c.Role}
}
