// Package settings exposes the admin-editable system settings. They live only in the
// fallback cache, under one key shared by every client, so an admin's change applies to
// participants and organizers on other browsers too. The backend has no settings endpoint.
package settings

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/neighbourhood-events/portal/internal/apperr"
	"github.com/neighbourhood-events/portal/internal/localcache"
	"github.com/neighbourhood-events/portal/internal/middleware"
	"github.com/neighbourhood-events/portal/internal/models"
	"github.com/neighbourhood-events/portal/internal/validation"
	"github.com/neighbourhood-events/portal/pkg/response"
)

// Handler handles /admin/settings.
type Handler struct {
	cache  *localcache.Cache
	logger *zap.Logger
}

// NewHandler creates a settings handler.
func NewHandler(cache *localcache.Cache, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{cache: cache, logger: logger}
}

// Get handles GET /admin/settings.
func (h *Handler) Get(c *gin.Context) {
	s, err := h.cache.SystemSettings(c.Request.Context())
	if err != nil {
		response.ServiceUnavailable(c, "Settings are unavailable right now")
		return
	}
	response.OK(c, s)
}

// Update handles PUT /admin/settings.
func (h *Handler) Update(c *gin.Context) {
	var s models.SystemSettings
	if err := c.ShouldBindJSON(&s); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := validation.Struct(s); err != nil {
		apperr.Respond(c, err)
		return
	}
	if err := h.cache.SetSystemSettings(c.Request.Context(), s); err != nil {
		h.logger.Error("save settings", zap.String("client_id", middleware.ClientID(c)), zap.Error(err))
		response.ServiceUnavailable(c, "Failed to save settings")
		return
	}
	response.OK(c, s)
}

// Reset handles POST /admin/settings/reset.
func (h *Handler) Reset(c *gin.Context) {
	s, err := h.cache.ResetSystemSettings(c.Request.Context())
	if err != nil {
		h.logger.Error("reset settings", zap.String("client_id", middleware.ClientID(c)), zap.Error(err))
		response.ServiceUnavailable(c, "Failed to reset settings")
		return
	}
	response.OK(c, s)
}
