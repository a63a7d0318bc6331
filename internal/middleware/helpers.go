// internal/middleware/helpers.go
package middleware

import (
	"taskhub-service/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// GetUserID gets the authenticated user id from context
func GetUserID(c *gin.Context) (string, bool) {
	id := c.GetString(ctxUserID)
	return id, id != ""
}

// MustGetUserID gets the user id from context or panics. Only valid behind Auth().
func MustGetUserID(c *gin.Context) string {
	id, ok := GetUserID(c)
	if !ok {
		panic("user_id not found in context")
	}
	return id
}

func GetRole(c *gin.Context) (string, bool) {
	role := c.GetString(ctxRole)
	return role, role != ""
}

// GetIdentity rebuilds the token identity set by Auth().
func GetIdentity(c *gin.Context) jwt.Identity {
	return jwt.Identity{
		UserID: c.GetString(ctxUserID),
		Email:  c.GetString(ctxEmail),
		Role:   c.GetString(ctxRole),
	}
}

// SetIdentity stores an authenticated identity on the request context.
func SetIdentity(c *gin.Context, id jwt.Identity) {
	c.Set(ctxUserID, id.UserID)
	c.Set(ctxEmail, id.Email)
	c.Set(ctxRole, id.Role)
}

// IsAuthenticated checks if request is authenticated
func IsAuthenticated(c *gin.Context) bool {
	_, ok := GetUserID(c)
	return ok
}

// IsAdmin checks if user is an admin
func IsAdmin(c *gin.Context) bool {
	role, _ := GetRole(c)
	return role == jwt.RoleAdmin
}
