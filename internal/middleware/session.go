package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/neighbourhood-events/portal/internal/models"
	"github.com/neighbourhood-events/portal/internal/session"
	"github.com/neighbourhood-events/portal/pkg/response"
)

const (
	// ContextClientID is the key for the browser's client id in gin context.
	ContextClientID = "client_id"
	// ContextUser is the key for the signed-in models.User in gin context.
	ContextUser = "user"

	// ClientCookie identifies the browser across sessions.
	ClientCookie = "portal_client"

	clientCookieMaxAge = 365 * 24 * 60 * 60
)

// Session resolves the client id and, when a valid token is presented for a client whose
// session still holds that user, the signed-in user. It never rejects a request; use
// RequireAuth on protected routes.
func Session(tokens *session.Tokens, store *session.Store, cookieName string, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID, err := c.Cookie(ClientCookie)
		if _, perr := uuid.Parse(clientID); err != nil || perr != nil {
			clientID = uuid.New().String()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(ClientCookie, clientID, clientCookieMaxAge, "/", "", secure, true)
		}

		if raw := bearer(c, cookieName); raw != "" {
			if claims, err := tokens.Validate(raw); err == nil {
				clientID = claims.ClientID
				if u := store.User(c.Request.Context(), clientID); u != nil && u.Username == claims.Username {
					c.Set(ContextUser, *u)
				}
			}
		}

		c.Set(ContextClientID, clientID)
		c.Next()
	}
}

func bearer(c *gin.Context, cookieName string) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return strings.TrimSpace(parts[1])
		}
	}
	if v, err := c.Cookie(cookieName); err == nil && v != "" {
		return v
	}
	return c.Query("token")
}

// RequireAuth rejects requests without a signed-in user.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			response.Unauthorized(c, "Please sign in to continue")
			c.Abort()
			return
		}
		c.Next()
	}
}

// ClientID returns the browser's client id.
func ClientID(c *gin.Context) string {
	return c.GetString(ContextClientID)
}

// CurrentUser returns the signed-in user.
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(ContextUser)
	if !ok {
		return models.User{}, false
	}
	u, ok := v.(models.User)
	return u, ok
}
