package events

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/neighbourhood-events/portal/internal/apperr"
	"github.com/neighbourhood-events/portal/internal/middleware"
	"github.com/neighbourhood-events/portal/internal/models"
	"github.com/neighbourhood-events/portal/internal/reconcile"
	"github.com/neighbourhood-events/portal/pkg/response"
)

// StatusRequest is the body for PUT /admin/events/:id/status.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Approved handles GET /events.
func (h *Handler) Approved(c *gin.Context) {
	list, err := h.svc.Approved(c.Request.Context(), middleware.ClientID(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	response.OK(c, list)
}

// Create handles POST /events.
func (h *Handler) Create(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e, err := h.svc.Create(c.Request.Context(), middleware.ClientID(c), u, req)
	if err != nil {
		h.logger.Info("create event rejected", zap.String("organizer", u.Username), zap.Error(err))
		apperr.Respond(c, err)
		return
	}
	response.Created(c, e)
}

// Mine handles GET /organizer/events.
func (h *Handler) Mine(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	list, err := h.svc.ByOrganizer(c.Request.Context(), middleware.ClientID(c), u.Username)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	response.OK(c, list)
}

// All handles GET /admin/events. Query parameters q, location, status, dateFrom and dateTo
// narrow the list.
func (h *Handler) All(c *gin.Context) {
	var f reconcile.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		response.BadRequest(c, "invalid query: "+err.Error())
		return
	}
	if err := f.Check(); err != nil {
		apperr.Respond(c, err)
		return
	}
	list, err := h.svc.All(c.Request.Context(), middleware.ClientID(c), f)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	response.OK(c, list)
}

// Pending handles GET /admin/events/pending.
func (h *Handler) Pending(c *gin.Context) {
	list, err := h.svc.Pending(c.Request.Context(), middleware.ClientID(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	response.OK(c, list)
}

// SetStatus handles PUT /admin/events/:id/status.
func (h *Handler) SetStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e, err := h.svc.SetStatus(c.Request.Context(), middleware.ClientID(c), models.ID(c.Param("id")), req.Status)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	response.OK(c, e)
}

// Update handles PUT /events/:id.
func (h *Handler) Update(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e, err := h.svc.Update(c.Request.Context(), middleware.ClientID(c), u, models.ID(c.Param("id")), req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	response.OK(c, e)
}

// Delete handles DELETE /events/:id.
func (h *Handler) Delete(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	if err := h.svc.Delete(c.Request.Context(), middleware.ClientID(c), u, models.ID(c.Param("id"))); err != nil {
		h.logger.Info("delete event rejected", zap.String("actor", u.Username), zap.Error(err))
		apperr.Respond(c, err)
		return
	}
	response.NoContent(c)
}
