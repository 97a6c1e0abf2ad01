// Package dashboard decides which role-specific view a signed-in user sees and builds
// the view models behind them.
package dashboard

import (
	"strings"

	"github.com/neighbourhood-events/portal/internal/models"
)

// Page is a role-dependent page.
type Page string

const (
	PageDashboard     Page = "dashboard"
	PageProfile       Page = "profile"
	PageNotifications Page = "notifications"
)

// Kind is the outcome of routing a page request.
type Kind string

const (
	Render       Kind = "render"
	Redirect     Kind = "redirect"
	AccessDenied Kind = "access_denied"
)

// HomeLocation is where unauthenticated visitors are sent.
const HomeLocation = "/"

// Principal is who is asking for a page.
type Principal struct {
	Authenticated bool
	Role          models.Role
}

// Decision is the routing outcome. View is set for Render, Location for Redirect.
type Decision struct {
	Kind     Kind   `json:"kind"`
	View     string `json:"view,omitempty"`
	Location string `json:"location,omitempty"`
}

// Route maps a principal and a page to a decision. Unauthenticated principals are always
// redirected home. An unknown role or page is denied; there is no default view.
func Route(p Principal, page Page) Decision {
	if !p.Authenticated {
		return Decision{Kind: Redirect, Location: HomeLocation}
	}
	if !p.Role.Valid() {
		return Decision{Kind: AccessDenied}
	}
	switch page {
	case PageDashboard, PageProfile, PageNotifications:
		return Decision{Kind: Render, View: strings.ToLower(string(p.Role)) + "/" + string(page)}
	}
	return Decision{Kind: AccessDenied}
}
