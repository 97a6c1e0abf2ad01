package registrations

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/neighbourhood-events/portal/internal/apperr"
	"github.com/neighbourhood-events/portal/internal/middleware"
	"github.com/neighbourhood-events/portal/internal/models"
	"github.com/neighbourhood-events/portal/internal/reconcile"
	"github.com/neighbourhood-events/portal/pkg/response"
)

// Handler handles registration HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a registrations handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// MyEvents handles GET /me/events.
func (h *Handler) MyEvents(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	list := h.svc.MyEvents(c.Request.Context(), middleware.ClientID(c), u.Username)
	response.OK(c, gin.H{"events": list, "count": len(list)})
}

// Browse handles GET /me/browse?q=&location=&dateFrom=&dateTo=.
func (h *Handler) Browse(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	var f reconcile.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		response.BadRequest(c, "invalid query: "+err.Error())
		return
	}
	if err := f.Check(); err != nil {
		apperr.Respond(c, err)
		return
	}
	response.OK(c, nonNil(h.svc.Browse(c.Request.Context(), middleware.ClientID(c), u.Username, f)))
}

// Calendar handles GET /me/calendar.
func (h *Handler) Calendar(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	response.OK(c, h.svc.Calendar(c.Request.Context(), middleware.ClientID(c), u.Username))
}

// Overview handles GET /me/overview.
func (h *Handler) Overview(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	response.OK(c, h.svc.Overview(c.Request.Context(), middleware.ClientID(c), u.Username))
}

// Register handles POST /events/:id/registration.
func (h *Handler) Register(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	reg, err := h.svc.Register(c.Request.Context(), middleware.ClientID(c), u, models.ID(c.Param("id")))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	response.Created(c, reg)
}

// Cancel handles DELETE /events/:id/registration.
func (h *Handler) Cancel(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	if err := h.svc.Cancel(c.Request.Context(), middleware.ClientID(c), u, models.ID(c.Param("id"))); err != nil {
		apperr.Respond(c, err)
		return
	}
	response.OK(c, gin.H{"eventId": c.Param("id"), "cancelled": true})
}

// Check handles GET /events/:id/registration.
func (h *Handler) Check(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	ok := h.svc.Check(c.Request.Context(), middleware.ClientID(c), u.Username, models.ID(c.Param("id")))
	response.OK(c, gin.H{"isRegistered": ok})
}

// ForEvent handles GET /events/:id/registrations.
func (h *Handler) ForEvent(c *gin.Context) {
	ctx, clientID, id := c.Request.Context(), middleware.ClientID(c), models.ID(c.Param("id"))
	response.OK(c, gin.H{
		"registrations": h.svc.EventRegistrations(ctx, clientID, id),
		"count":         h.svc.EventCount(ctx, clientID, id),
	})
}

// ForOrganizer handles GET /organizer/registrations.
func (h *Handler) ForOrganizer(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	ctx, clientID := c.Request.Context(), middleware.ClientID(c)
	response.OK(c, gin.H{
		"registrations": h.svc.OrganizerRegistrations(ctx, clientID, u.Username),
		"count":         h.svc.OrganizerCount(ctx, clientID, u.Username),
	})
}
