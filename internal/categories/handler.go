package categories

import (
	"github.com/gin-gonic/gin"

	"github.com/neighbourhood-events/portal/internal/apperr"
	"github.com/neighbourhood-events/portal/pkg/response"
)

// AddRequest is the body for POST /admin/categories.
type AddRequest struct {
	Name string `json:"name" binding:"required"`
}

// Handler handles category HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a categories handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List handles GET /categories.
func (h *Handler) List(c *gin.Context) {
	response.OK(c, h.svc.List(c.Request.Context()))
}

// Add handles POST /admin/categories.
func (h *Handler) Add(c *gin.Context) {
	var req AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, ErrNameRequired.Message)
		return
	}
	cat, err := h.svc.Add(c.Request.Context(), req.Name)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	response.Created(c, cat)
}

// Remove handles DELETE /admin/categories/:name.
func (h *Handler) Remove(c *gin.Context) {
	if err := h.svc.Remove(c.Request.Context(), c.Param("name")); err != nil {
		apperr.Respond(c, err)
		return
	}
	response.NoContent(c)
}
