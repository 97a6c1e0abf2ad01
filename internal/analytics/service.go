// Package analytics serves the admin statistics. When the backend cannot answer, the same
// figures are computed from the client's fallback cache.
package analytics

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/neighbourhood-events/portal/internal/backend"
	"github.com/neighbourhood-events/portal/internal/localcache"
	"github.com/neighbourhood-events/portal/internal/metrics"
	"github.com/neighbourhood-events/portal/internal/models"
	"github.com/neighbourhood-events/portal/internal/reconcile"
)

// TopN is the length of the top-organizers ranking computed from the cache.
const TopN = 5

// Source tells where a report's figures came from.
type Source string

const (
	SourceBackend Source = "backend"
	SourceCache   Source = "cache"
)

// Report is the admin analytics page.
type Report struct {
	Stats         models.Stats            `json:"stats"`
	TopOrganizers []models.OrganizerCount `json:"topOrganizers"`
	Source        Source                  `json:"source"`
}

// Service builds analytics reports.
type Service struct {
	api    *backend.Client
	cache  *localcache.Cache
	logger *zap.Logger
}

// NewService creates an analytics service.
func NewService(api *backend.Client, cache *localcache.Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, cache: cache, logger: logger}
}

// Report returns backend statistics, or statistics computed from clientID's cache when
// the backend fails.
func (s *Service) Report(ctx context.Context, clientID string) (*Report, error) {
	stats, err := s.api.Stats(ctx)
	if err == nil {
		top, terr := s.api.TopOrganizers(ctx)
		if terr != nil {
			s.logger.Debug("top organizers unavailable", zap.Error(terr))
			top = []models.OrganizerCount{}
		}
		return &Report{Stats: *stats, TopOrganizers: top, Source: SourceBackend}, nil
	}

	metrics.BackendFallbacks.WithLabelValues("analytics").Inc()
	s.logger.Debug("analytics from cache", zap.String("client_id", clientID), zap.Error(err))
	events, err := s.cache.Events(ctx, clientID)
	if err != nil {
		return nil, err
	}
	users, err := s.cache.RegisteredUsers(ctx, clientID)
	if err != nil {
		return nil, err
	}
	regs, err := s.cache.Registrations(ctx, clientID)
	if err != nil {
		return nil, err
	}
	markers, err := s.cache.Cancelled(ctx, clientID)
	if err != nil {
		return nil, err
	}
	local := Compute(events, users, reconcile.ActiveRecords(regs, markers))
	return &local, nil
}

// Compute derives a report from cached documents. regs are the active registrations only.
func Compute(events []models.Event, users []models.CachedUser, regs []models.Registration) Report {
	st := models.Stats{
		TotalEvents:        int64(len(events)),
		TotalUsers:         int64(len(users)),
		TotalRegistrations: int64(len(regs)),
		UsersByRole:        map[models.Role]int64{},
	}
	perOrganizer := map[string]int64{}
	for _, e := range events {
		switch e.Status {
		case models.EventApproved:
			st.ApprovedEvents++
		case models.EventPending:
			st.PendingEvents++
		case models.EventRejected:
			st.RejectedEvents++
		}
		if e.OrganizerName != "" {
			perOrganizer[e.OrganizerName]++
		}
	}
	for _, u := range users {
		st.UsersByRole[u.Role]++
	}
	return Report{Stats: st, TopOrganizers: top(perOrganizer, TopN), Source: SourceCache}
}

func top(counts map[string]int64, n int) []models.OrganizerCount {
	out := make([]models.OrganizerCount, 0, len(counts))
	for name, c := range counts {
		out = append(out, models.OrganizerCount{Organizer: name, EventCount: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EventCount != out[j].EventCount {
			return out[i].EventCount > out[j].EventCount
		}
		return out[i].Organizer < out[j].Organizer
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
