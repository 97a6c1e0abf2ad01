package dashboard

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/neighbourhood-events/portal/internal/analytics"
	"github.com/neighbourhood-events/portal/internal/middleware"
	"github.com/neighbourhood-events/portal/internal/models"
	"github.com/neighbourhood-events/portal/internal/reconcile"
	"github.com/neighbourhood-events/portal/internal/registrations"
	"github.com/neighbourhood-events/portal/pkg/response"
)

const accessDeniedMessage = "Access Denied: Invalid user role. Please contact administrator."

// Registrations is the part of the registrations service the dashboards read.
type Registrations interface {
	Overview(ctx context.Context, clientID, username string) registrations.Overview
	OrganizerCount(ctx context.Context, clientID, organizer string) int64
}

// Events is the part of the events service the dashboards read.
type Events interface {
	ByOrganizer(ctx context.Context, clientID, organizer string) ([]models.Event, error)
	Pending(ctx context.Context, clientID string) ([]models.Event, error)
}

// Analytics builds the admin statistics.
type Analytics interface {
	Report(ctx context.Context, clientID string) (*analytics.Report, error)
}

// Page bodies.
type (
	ParticipantDashboard struct {
		MyEventsCount int                     `json:"myEventsCount"`
		MyEvents      []reconcile.JoinedEvent `json:"myEvents"`
		Available     []models.Event          `json:"available"`
	}
	OrganizerDashboard struct {
		Events            []models.Event `json:"events"`
		RegistrationCount int64          `json:"registrationCount"`
	}
	AdminDashboard struct {
		Pending []models.Event    `json:"pending"`
		Report  *analytics.Report `json:"report,omitempty"`
	}
	Profile struct {
		User models.User `json:"user"`
	}
	Notifications struct {
		Preferences map[string]bool `json:"preferences"`
	}
)

// View is a rendered page.
type View struct {
	Decision
	Data interface{} `json:"data,omitempty"`
}

// Handler serves the role-specific pages.
type Handler struct {
	regs      Registrations
	events    Events
	analytics Analytics
	logger    *zap.Logger
}

// NewHandler creates a dashboard handler.
func NewHandler(regs Registrations, events Events, an Analytics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{regs: regs, events: events, analytics: an, logger: logger}
}

// Show returns a handler for page.
func (h *Handler) Show(page Page) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := middleware.CurrentUser(c)
		d := Route(Principal{Authenticated: ok, Role: u.Role}, page)
		switch d.Kind {
		case Redirect:
			response.Fail(c, http.StatusUnauthorized, "Please sign in to continue", d)
		case AccessDenied:
			h.logger.Warn("page denied", zap.String("username", u.Username), zap.String("role", string(u.Role)), zap.String("page", string(page)))
			response.Fail(c, http.StatusForbidden, accessDeniedMessage, d)
		default:
			response.OK(c, View{Decision: d, Data: h.build(c.Request.Context(), middleware.ClientID(c), u, page)})
		}
	}
}

func (h *Handler) build(ctx context.Context, clientID string, u models.User, page Page) interface{} {
	switch page {
	case PageProfile:
		return Profile{User: u}
	case PageNotifications:
		return Notifications{Preferences: DefaultPreferences(u.Role)}
	}

	switch u.Role {
	case models.RoleParticipant:
		o := h.regs.Overview(ctx, clientID, u.Username)
		return ParticipantDashboard{MyEventsCount: len(o.MyEvents), MyEvents: o.MyEvents, Available: o.Available}
	case models.RoleOrganizer:
		evs, err := h.events.ByOrganizer(ctx, clientID, u.Username)
		if err != nil {
			h.logger.Debug("organizer events", zap.Error(err))
		}
		if evs == nil {
			evs = []models.Event{}
		}
		return OrganizerDashboard{Events: evs, RegistrationCount: h.regs.OrganizerCount(ctx, clientID, u.Username)}
	default:
		pending, err := h.events.Pending(ctx, clientID)
		if err != nil {
			h.logger.Debug("pending events", zap.Error(err))
		}
		if pending == nil {
			pending = []models.Event{}
		}
		report, err := h.analytics.Report(ctx, clientID)
		if err != nil {
			h.logger.Debug("admin report", zap.Error(err))
		}
		return AdminDashboard{Pending: pending, Report: report}
	}
}

// DefaultPreferences returns the notification toggles offered to role and their
// initial state.
func DefaultPreferences(role models.Role) map[string]bool {
	switch role {
	case models.RoleAdmin:
		return map[string]bool{
			"systemFailureAlerts":         true,
			"databaseBackupNotifications": true,
			"userAccountSuspensions":      true,
			"platformMaintenanceAlerts":   true,
			"serverPerformanceWarnings":   true,
			"dataBreachAlerts":            true,
			"adminLoginAttempts":          true,
			"systemResourceUsage":         false,
		}
	case models.RoleOrganizer:
		return map[string]bool{
			"eventSubmissionApprovals":      true,
			"venueBookingConfirmations":     true,
			"attendeeCapacityWarnings":      true,
			"eventCancellationRequests":     true,
			"sponsorshipInquiries":          true,
			"eventBudgetAlerts":             true,
			"equipmentRequestNotifications": true,
			"eventFeedbackSummaries":        false,
		}
	}
	return map[string]bool{
		"upcomingEventReminders":       true,
		"eventLocationChanges":         true,
		"earlyBirdDiscountAlerts":      true,
		"friendActivityNotifications":  true,
		"eventWaitlistUpdates":         true,
		"personalizedEventSuggestions": true,
		"eventPhotoSharingAlerts":      false,
		"communityAnnouncementUpdates": false,
	}
}
