package analytics

import (
	"github.com/gin-gonic/gin"

	"github.com/neighbourhood-events/portal/internal/apperr"
	"github.com/neighbourhood-events/portal/internal/middleware"
	"github.com/neighbourhood-events/portal/pkg/response"
)

// Handler handles GET /admin/analytics.
type Handler struct {
	svc *Service
}

// NewHandler creates an analytics handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Get returns the analytics report.
func (h *Handler) Get(c *gin.Context) {
	report, err := h.svc.Report(c.Request.Context(), middleware.ClientID(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	response.OK(c, report)
}
