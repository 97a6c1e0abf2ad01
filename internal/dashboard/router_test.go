package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/neighbourhood-events/portal/internal/models"
)

func TestRoute_UnauthenticatedAlwaysRedirects(t *testing.T) {
	roles := []models.Role{"", models.RoleAdmin, models.RoleOrganizer, models.RoleParticipant, "GUEST"}
	pages := []Page{PageDashboard, PageProfile, PageNotifications, "billing"}
	for _, r := range roles {
		for _, p := range pages {
			d := Route(Principal{Authenticated: false, Role: r}, p)
			assert.Equal(t, Decision{Kind: Redirect, Location: "/"}, d, "role %q page %q", r, p)
		}
	}
}

func TestRoute_InvalidRoleDenied(t *testing.T) {
	for _, r := range []models.Role{"", "GUEST", "admin "} {
		for _, p := range []Page{PageDashboard, PageProfile, PageNotifications} {
			d := Route(Principal{Authenticated: true, Role: r}, p)
			assert.Equal(t, AccessDenied, d.Kind, "role %q page %q", r, p)
			assert.Empty(t, d.View)
		}
	}
}

func TestRoute_RoleViews(t *testing.T) {
	tests := []struct {
		role models.Role
		page Page
		view string
	}{
		{models.RoleAdmin, PageDashboard, "admin/dashboard"},
		{models.RoleOrganizer, PageDashboard, "organizer/dashboard"},
		{models.RoleParticipant, PageDashboard, "participant/dashboard"},
		{models.RoleOrganizer, PageProfile, "organizer/profile"},
		{models.RoleParticipant, PageNotifications, "participant/notifications"},
	}
	for _, tt := range tests {
		d := Route(Principal{Authenticated: true, Role: tt.role}, tt.page)
		assert.Equal(t, Render, d.Kind)
		assert.Equal(t, tt.view, d.View)
	}
}

func TestRoute_UnknownPageDenied(t *testing.T) {
	d := Route(Principal{Authenticated: true, Role: models.RoleAdmin}, "billing")
	assert.Equal(t, AccessDenied, d.Kind)
}
