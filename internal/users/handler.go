package users

import (
	"github.com/gin-gonic/gin"

	"github.com/neighbourhood-events/portal/internal/apperr"
	"github.com/neighbourhood-events/portal/internal/middleware"
	"github.com/neighbourhood-events/portal/pkg/response"
)

// Handler handles GET /admin/users.
type Handler struct {
	svc *Service
}

// NewHandler creates a users handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List handles GET /admin/users?role=.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), middleware.ClientID(c), c.Query("role"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	response.OK(c, gin.H{"users": list, "count": len(list)})
}
