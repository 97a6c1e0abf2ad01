// Package categories manages the admin-maintained event category list.
package categories

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/neighbourhood-events/portal/internal/apperr"
	"github.com/neighbourhood-events/portal/internal/backend"
	"github.com/neighbourhood-events/portal/internal/metrics"
	"github.com/neighbourhood-events/portal/internal/models"
	"github.com/neighbourhood-events/portal/internal/realtime"
)

var (
	ErrNameRequired  = apperr.New(apperr.Invalid, "Category name is required")
	ErrDuplicate     = apperr.New(apperr.Conflict, "Category already exists")
	ErrNotFound      = apperr.New(apperr.NotFound, "Category not found")
	ErrCategoryFloor = apperr.New(apperr.Invalid,
		fmt.Sprintf("Cannot delete category. At least %d categories must remain.", models.MinCategories))
)

// Notifier publishes live notifications.
type Notifier interface {
	Publish(topic, event string, payload interface{})
}

// Change is the payload of a category_updated notification.
type Change struct {
	Action   string          `json:"action"`
	Category models.Category `json:"category"`
}

// Service wraps the category endpoints.
type Service struct {
	api      *backend.Client
	notifier Notifier
	logger   *zap.Logger
}

// NewService creates a categories service. notifier may be nil.
func NewService(api *backend.Client, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, notifier: notifier, logger: logger}
}

// List returns the categories, or the built-in defaults when the backend is unavailable.
func (s *Service) List(ctx context.Context) []models.Category {
	list, err := s.api.ListCategories(ctx)
	if err != nil || len(list) == 0 {
		if err != nil {
			metrics.BackendFallbacks.WithLabelValues("list_categories").Inc()
			s.logger.Debug("list categories failed, using defaults", zap.Error(err))
		}
		out := make([]models.Category, 0, len(models.DefaultCategories))
		for _, name := range models.DefaultCategories {
			out = append(out, models.Category{Name: name})
		}
		return out
	}
	return list
}

// Add creates a category. Blank and duplicate names are rejected before the create call.
func (s *Service) Add(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	for _, c := range s.List(ctx) {
		if strings.EqualFold(c.Name, name) {
			return nil, ErrDuplicate
		}
	}
	created, err := s.api.AddCategory(ctx, name)
	if err != nil {
		return nil, err
	}
	s.publish("added", *created)
	return created, nil
}

// Remove deletes the category called name. It refuses, without calling the delete endpoint,
// when only the minimum number of categories is left.
func (s *Service) Remove(ctx context.Context, name string) error {
	list, err := s.api.ListCategories(ctx)
	if err != nil {
		return err
	}
	if len(list) <= models.MinCategories {
		return ErrCategoryFloor
	}
	name = strings.TrimSpace(name)
	for _, c := range list {
		if strings.EqualFold(c.Name, name) {
			if err := s.api.DeleteCategory(ctx, c.ID); err != nil {
				return err
			}
			s.publish("removed", c)
			return nil
		}
	}
	return ErrNotFound
}

func (s *Service) publish(action string, c models.Category) {
	if s.notifier != nil {
		s.notifier.Publish(realtime.TopicCatalog, realtime.EventCategoryUpdated, Change{Action: action, Category: c})
	}
}
