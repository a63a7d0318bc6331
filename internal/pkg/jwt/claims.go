// internal/pkg/jwt/claims.go
package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity is the subject an access token is issued for.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// Claims represents the JWT claims. The subject id travels in the
// registered "sub" claim.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the subject id.
func (c *Claims) UserID() string {
	return c.Subject
}

// IsAdmin checks if the subject holds the admin role
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// Identity returns the identity the claims were issued for.
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.Subject, Email: c.Email, Role: c.Role}
}
