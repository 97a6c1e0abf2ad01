// Package reviews submits participant feedback for events.
package reviews

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/neighbourhood-events/portal/internal/backend"
	"github.com/neighbourhood-events/portal/internal/models"
	"github.com/neighbourhood-events/portal/internal/validation"
)

// SubmitRequest is the body for POST /reviews.
type SubmitRequest struct {
	EventID    models.ID `json:"eventId" validate:"required"`
	EventTitle string    `json:"eventTitle"`
	Rating     int       `json:"rating" validate:"min=1,max=5"`
	Comment    string    `json:"comment" validate:"max=1000"`
}

// Service submits reviews to the backend.
type Service struct {
	api    *backend.Client
	logger *zap.Logger
}

// NewService creates a reviews service.
func NewService(api *backend.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, logger: logger}
}

// Submit validates req and stores it as username's review. It returns the backend's
// confirmation text.
func (s *Service) Submit(ctx context.Context, username string, req SubmitRequest) (string, error) {
	req.Comment = strings.TrimSpace(req.Comment)
	if err := validation.Struct(req); err != nil {
		return "", err
	}
	msg, err := s.api.SubmitReview(ctx, models.Review{
		Username:   username,
		EventID:    req.EventID,
		EventTitle: req.EventTitle,
		Rating:     req.Rating,
		Comment:    req.Comment,
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("review submitted", zap.String("username", username), zap.String("event_id", req.EventID.String()))
	return msg, nil
}
