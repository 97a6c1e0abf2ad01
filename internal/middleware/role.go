package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/neighbourhood-events/portal/internal/models"
	"github.com/neighbourhood-events/portal/pkg/response"
)

// RequireRole returns a middleware that allows only the given roles.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{})
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			response.Unauthorized(c, "Please sign in to continue")
			c.Abort()
			return
		}
		if _, ok := allowed[u.Role]; !ok {
			response.Forbidden(c, "Access Denied: you do not have permission to view this page")
			c.Abort()
			return
		}
		c.Next()
	}
}
