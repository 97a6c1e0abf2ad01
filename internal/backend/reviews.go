package backend

import (
	"context"
	"net/http"
	"strings"

	"github.com/neighbourhood-events/portal/internal/models"
)

// SubmitReview stores feedback for an event. The backend answers with plain text.
func (c *Client) SubmitReview(ctx context.Context, r models.Review) (string, error) {
	raw, err := c.send(ctx, "submit_review", http.MethodPost, "/reviews/submit", r)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
