package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleUser is the default role assigned at registration
	RoleUser UserRole = "user"
	// RoleAdmin marks accounts allowed through the admin gate
	RoleAdmin UserRole = "admin"
)

// Claims is the identity payload embedded in both access and refresh
// tokens. Both tokens of a pair carry the same claims at issuance time;
// they are never re-read from the store on verification.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Identity returns the identity triple without the registered claims.
func (c *Claims) Identity() (id, email, role string) {
	return c.UserID, c.Email, c.Role
}

// IsAdmin reports whether the claim-bound role equals "admin" exactly.
// Case sensitive, no hierarchy.
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// Expires returns the embedded expiry, or the zero time when absent.
func (c *Claims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// ClaimsForUser builds the minimal claims object for a user record.
func ClaimsForUser(u *User) Claims {
	return Claims{
		UserID: u.ID.Hex(),
		Email:  u.Email,
		Role:   u.Role,
	}
}
