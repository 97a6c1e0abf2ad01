package backend

import (
	"context"
	"net/http"

	"github.com/neighbourhood-events/portal/internal/models"
)

// Stats returns the dashboard aggregates. RejectedEvents is derived from the other counts.
func (c *Client) Stats(ctx context.Context) (*models.Stats, error) {
	var s models.Stats
	if err := c.do(ctx, "analytics_stats", http.MethodGet, "/analytics/stats", nil, &s); err != nil {
		return nil, err
	}
	if s.RejectedEvents == 0 {
		if rejected := s.TotalEvents - s.ApprovedEvents - s.PendingEvents; rejected > 0 {
			s.RejectedEvents = rejected
		}
	}
	return &s, nil
}

// TopOrganizers returns organizers ranked by number of events.
func (c *Client) TopOrganizers(ctx context.Context) ([]models.OrganizerCount, error) {
	var list []models.OrganizerCount
	if err := c.do(ctx, "analytics_top_organizers", http.MethodGet, "/analytics/top-organizers", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}
