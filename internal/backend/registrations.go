package backend

import (
	"context"
	"net/http"

	"github.com/neighbourhood-events/portal/internal/models"
)

// RegisterForEvent records reg on the backend. reg carries the event snapshot.
func (c *Client) RegisterForEvent(ctx context.Context, reg models.Registration) (*models.Registration, error) {
	var resp struct {
		Registration *models.Registration `json:"registration"`
	}
	if err := c.do(ctx, "register_for_event", http.MethodPost, "/event-registrations/register", reg, &resp); err != nil {
		return nil, err
	}
	if resp.Registration == nil {
		return &reg, nil
	}
	return resp.Registration, nil
}

// UnregisterFromEvent cancels username's registration for eventID.
func (c *Client) UnregisterFromEvent(ctx context.Context, username string, eventID models.ID) error {
	path := "/event-registrations/unregister/" + seg(username) + "/" + seg(eventID.String())
	return c.do(ctx, "unregister_from_event", http.MethodDelete, path, nil, nil)
}

// UserRegistrations returns the registrations of username.
func (c *Client) UserRegistrations(ctx context.Context, username string) ([]models.Registration, error) {
	return c.listRegistrations(ctx, "user_registrations", "/event-registrations/user/"+seg(username))
}

// EventRegistrations returns the registrations for eventID.
func (c *Client) EventRegistrations(ctx context.Context, eventID models.ID) ([]models.Registration, error) {
	return c.listRegistrations(ctx, "event_registrations", "/event-registrations/event/"+seg(eventID.String()))
}

// OrganizerRegistrations returns registrations for every event of organizer.
func (c *Client) OrganizerRegistrations(ctx context.Context, organizer string) ([]models.Registration, error) {
	return c.listRegistrations(ctx, "organizer_registrations", "/event-registrations/organizer/"+seg(organizer))
}

func (c *Client) listRegistrations(ctx context.Context, op, path string) ([]models.Registration, error) {
	var list []models.Registration
	if err := c.do(ctx, op, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// EventRegistrationCount returns how many users joined eventID.
func (c *Client) EventRegistrationCount(ctx context.Context, eventID models.ID) (int64, error) {
	return c.count(ctx, "event_registration_count", "/event-registrations/count/event/"+seg(eventID.String()))
}

// OrganizerRegistrationCount returns how many registrations the events of organizer received.
func (c *Client) OrganizerRegistrationCount(ctx context.Context, organizer string) (int64, error) {
	return c.count(ctx, "organizer_registration_count", "/event-registrations/count/organizer/"+seg(organizer))
}

func (c *Client) count(ctx context.Context, op, path string) (int64, error) {
	var resp struct {
		Count int64 `json:"count"`
	}
	if err := c.do(ctx, op, http.MethodGet, path, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// CheckRegistration reports whether username is registered for eventID.
func (c *Client) CheckRegistration(ctx context.Context, username string, eventID models.ID) (bool, error) {
	var resp struct {
		IsRegistered bool `json:"isRegistered"`
	}
	path := "/event-registrations/check/" + seg(username) + "/" + seg(eventID.String())
	if err := c.do(ctx, "check_registration", http.MethodGet, path, nil, &resp); err != nil {
		return false, err
	}
	return resp.IsRegistered, nil
}
