package reviews

import (
	"github.com/gin-gonic/gin"

	"github.com/neighbourhood-events/portal/internal/apperr"
	"github.com/neighbourhood-events/portal/internal/middleware"
	"github.com/neighbourhood-events/portal/pkg/response"
)

// Handler handles POST /reviews.
type Handler struct {
	svc *Service
}

// NewHandler creates a reviews handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Submit handles POST /reviews.
func (h *Handler) Submit(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	msg, err := h.svc.Submit(c.Request.Context(), u.Username, req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	response.Created(c, gin.H{"message": msg})
}
