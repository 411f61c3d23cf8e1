package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/vaulttrove/labels-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID string
	Email  string
	Role   enums.Role
	JTI    string
}

// AccessTokenClaims represents the typed JWT presented by clients. The
// identity provider owns user ids, so they are opaque strings.
type AccessTokenClaims struct {
	UserID string     `json:"user_id"`
	Email  string     `json:"email,omitempty"`
	Role   enums.Role `json:"role"`
	jwt.RegisteredClaims
}

// SubjectID returns the user id, falling back to the registered sub claim.
func (c *AccessTokenClaims) SubjectID() string {
	if c == nil {
		return ""
	}
	if c.UserID != "" {
		return c.UserID
	}
	return c.RegisteredClaims.Subject
}

// IsAdmin reports whether the token carries the admin role.
func (c *AccessTokenClaims) IsAdmin() bool {
	return c != nil && c.Role == enums.RoleAdmin
}
