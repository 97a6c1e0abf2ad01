package backend

import (
	"context"
	"net/http"

	"github.com/neighbourhood-events/portal/internal/models"
)

// ListEvents returns every event regardless of status.
func (c *Client) ListEvents(ctx context.Context) ([]models.Event, error) {
	return c.listEvents(ctx, "list_events", "/events")
}

// ListApprovedEvents returns the public catalog.
func (c *Client) ListApprovedEvents(ctx context.Context) ([]models.Event, error) {
	return c.listEvents(ctx, "list_approved_events", "/events/approved")
}

// ListPendingEvents returns events awaiting moderation.
func (c *Client) ListPendingEvents(ctx context.Context) ([]models.Event, error) {
	return c.listEvents(ctx, "list_pending_events", "/events/pending")
}

// ListEventsByOrganizer returns events created by organizer.
func (c *Client) ListEventsByOrganizer(ctx context.Context, organizer string) ([]models.Event, error) {
	return c.listEvents(ctx, "list_organizer_events", "/events/organizer/"+seg(organizer))
}

func (c *Client) listEvents(ctx context.Context, op, path string) ([]models.Event, error) {
	var list []models.Event
	if err := c.do(ctx, op, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// CreateEvent submits a new event. The backend stores it as PENDING unless told otherwise.
func (c *Client) CreateEvent(ctx context.Context, e models.Event) (*models.Event, error) {
	var created models.Event
	if err := c.do(ctx, "create_event", http.MethodPost, "/events", e, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateEventStatus approves or rejects an event. The body is the bare quoted status.
func (c *Client) UpdateEventStatus(ctx context.Context, id models.ID, status models.EventStatus) (*models.Event, error) {
	var updated models.Event
	if err := c.do(ctx, "update_event_status", http.MethodPut, "/events/"+seg(id.String())+"/status", string(status), &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// UpdateEvent replaces the editable fields of an event.
func (c *Client) UpdateEvent(ctx context.Context, id models.ID, e models.Event) (*models.Event, error) {
	var updated models.Event
	if err := c.do(ctx, "update_event", http.MethodPut, "/events/"+seg(id.String()), e, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, id models.ID) error {
	return c.do(ctx, "delete_event", http.MethodDelete, "/events/"+seg(id.String()), nil, nil)
}
