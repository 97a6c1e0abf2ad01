// Package users lists accounts for the admin user management page.
package users

import (
	"context"

	"go.uber.org/zap"

	"github.com/neighbourhood-events/portal/internal/apperr"
	"github.com/neighbourhood-events/portal/internal/backend"
	"github.com/neighbourhood-events/portal/internal/localcache"
	"github.com/neighbourhood-events/portal/internal/metrics"
	"github.com/neighbourhood-events/portal/internal/models"
)

var ErrInvalidRole = apperr.New(apperr.Invalid, "Invalid user role")

// Service lists users from the backend, or the cache-only accounts when it is unavailable.
type Service struct {
	api    *backend.Client
	cache  *localcache.Cache
	logger *zap.Logger
}

// NewService creates a users service.
func NewService(api *backend.Client, cache *localcache.Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, cache: cache, logger: logger}
}

// List returns every account, or only those holding role when role is non-empty.
func (s *Service) List(ctx context.Context, clientID, role string) ([]models.User, error) {
	var (
		want models.Role
		list []models.User
		err  error
	)
	if role != "" {
		var ok bool
		if want, ok = models.ParseRole(role); !ok {
			return nil, ErrInvalidRole
		}
		list, err = s.api.ListUsersByRole(ctx, want)
	} else {
		list, err = s.api.ListUsers(ctx)
	}
	if err == nil {
		if list == nil {
			list = []models.User{}
		}
		return list, nil
	}

	metrics.BackendFallbacks.WithLabelValues("list_users").Inc()
	s.logger.Debug("list users from cache", zap.String("client_id", clientID), zap.Error(err))
	cached, cerr := s.cache.RegisteredUsers(ctx, clientID)
	if cerr != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(cached))
	for _, cu := range cached {
		if want != "" && cu.Role != want {
			continue
		}
		out = append(out, cu.User)
	}
	return out, nil
}
