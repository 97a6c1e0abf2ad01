package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/neighbourhood-events/portal/internal/apperr"
	"github.com/neighbourhood-events/portal/internal/middleware"
	"github.com/neighbourhood-events/portal/pkg/response"
)

// ForgotPasswordRequest is the body for POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the body for POST /auth/reset-password.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	svc        *Service
	cookieName string
	secure     bool
	maxAge     int
	logger     *zap.Logger
}

// NewHandler creates an auth handler. The session token is also set as cookieName.
func NewHandler(svc *Service, cookieName string, secure bool, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		svc:        svc,
		cookieName: cookieName,
		secure:     secure,
		maxAge:     int(svc.tokens.TTL().Seconds()),
		logger:     logger,
	}
}

func (h *Handler) setCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, token, maxAge, "/", "", h.secure, true)
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	u, err := h.svc.Register(c.Request.Context(), middleware.ClientID(c), req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	response.Created(c, u)
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sess, err := h.svc.Login(c.Request.Context(), middleware.ClientID(c), req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	h.setCookie(c, sess.Token, h.maxAge)
	response.OK(c, sess)
}

// Logout handles POST /auth/logout.
func (h *Handler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), middleware.ClientID(c)); err != nil {
		h.logger.Warn("logout", zap.Error(err))
	}
	h.setCookie(c, "", -1)
	response.NoContent(c)
}

// Me handles GET /me.
func (h *Handler) Me(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		apperr.Respond(c, ErrNotSignedIn)
		return
	}
	response.OK(c, u)
}

// UpdateProfile handles PUT /profile.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sess, err := h.svc.UpdateProfile(c.Request.Context(), middleware.ClientID(c), req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	h.setCookie(c, sess.Token, h.maxAge)
	response.OK(c, sess)
}

// ForgotPassword handles POST /auth/forgot-password.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	link, err := h.svc.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	response.OK(c, link)
}

// ResetPassword handles POST /auth/reset-password.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	msg, err := h.svc.ResetPassword(c.Request.Context(), req.Token, req.Password)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	response.OK(c, gin.H{"message": msg})
}
