// Package events serves the event catalog and the organizer and admin event workflows.
package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/neighbourhood-events/portal/internal/apperr"
	"github.com/neighbourhood-events/portal/internal/backend"
	"github.com/neighbourhood-events/portal/internal/localcache"
	"github.com/neighbourhood-events/portal/internal/metrics"
	"github.com/neighbourhood-events/portal/internal/models"
	"github.com/neighbourhood-events/portal/internal/realtime"
	"github.com/neighbourhood-events/portal/internal/reconcile"
	"github.com/neighbourhood-events/portal/internal/validation"
)

var (
	ErrInvalidStatus = apperr.New(apperr.Invalid, "Status must be APPROVED or REJECTED")
	ErrEventNotFound = apperr.New(apperr.NotFound, "Event not found")
	ErrNotOwner      = apperr.New(apperr.Forbidden, "You can only change events you organize")
)

// Notifier publishes live notifications.
type Notifier interface {
	Publish(topic, event string, payload interface{})
}

// CreateRequest is the organizer's new-event form.
type CreateRequest struct {
	Title         string `json:"title" validate:"required"`
	Description   string `json:"description" validate:"required"`
	Date          string `json:"date" validate:"required,date,notpast"`
	Time          string `json:"time" validate:"required"`
	Location      string `json:"location" validate:"required"`
	Category      string `json:"category"`
	ContactNumber string `json:"contactNumber" validate:"omitempty,phone"`
}

func (r *CreateRequest) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Date = strings.TrimSpace(r.Date)
	r.Time = strings.TrimSpace(r.Time)
	r.Location = strings.TrimSpace(r.Location)
	r.Category = strings.TrimSpace(r.Category)
	r.ContactNumber = strings.TrimSpace(r.ContactNumber)
	if r.Category == "" {
		r.Category = "Community"
	}
}

// Service reads the catalog with cache fallback and runs event writes.
type Service struct {
	api      *backend.Client
	cache    *localcache.Cache
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates an events service. notifier may be nil.
func NewService(api *backend.Client, cache *localcache.Cache, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, cache: cache, notifier: notifier, logger: logger, now: time.Now}
}

func (s *Service) fallback(op string, err error) {
	metrics.BackendFallbacks.WithLabelValues(op).Inc()
	s.logger.Debug("backend read failed, using cache", zap.String("op", op), zap.Error(err))
}

func (s *Service) publish(topic, event string, payload interface{}) {
	if s.notifier != nil {
		s.notifier.Publish(topic, event, payload)
	}
}

func (s *Service) cached(ctx context.Context, clientID string) []models.Event {
	local, err := s.cache.Events(ctx, clientID)
	if err != nil {
		s.logger.Warn("read cached events", zap.String("client_id", clientID), zap.Error(err))
		return nil
	}
	return local
}

// Approved returns the approved catalog: remote events first, then locally cached approved
// events not already listed by id or title. Remote events are written back to the cache.
func (s *Service) Approved(ctx context.Context, clientID string) ([]models.Event, error) {
	local := s.cached(ctx, clientID)
	remote, err := s.api.ListApprovedEvents(ctx)
	if err != nil {
		s.fallback("approved_events", err)
		return reconcile.MergeCatalog(nil, local), nil
	}
	if len(remote) > 0 {
		if _, err := s.cache.UpdateEvents(ctx, clientID, func(cur []models.Event) ([]models.Event, error) {
			return upsert(cur, remote...), nil
		}); err != nil {
			s.logger.Warn("write back approved events", zap.String("client_id", clientID), zap.Error(err))
		}
	}
	return reconcile.MergeCatalog(remote, local), nil
}

// All returns every event regardless of status, narrowed by f.
func (s *Service) All(ctx context.Context, clientID string, f reconcile.Filter) ([]models.Event, error) {
	remote, err := s.api.ListEvents(ctx)
	if err != nil {
		s.fallback("all_events", err)
		return reconcile.Search(s.cached(ctx, clientID), f), nil
	}
	return reconcile.Search(remote, f), nil
}

// Pending returns events waiting for moderation.
func (s *Service) Pending(ctx context.Context, clientID string) ([]models.Event, error) {
	remote, err := s.api.ListPendingEvents(ctx)
	if err != nil {
		s.fallback("pending_events", err)
		return filter(s.cached(ctx, clientID), func(e models.Event) bool {
			return e.Status == models.EventPending || e.Status == ""
		}), nil
	}
	return remote, nil
}

// ByOrganizer returns the events created by organizer.
func (s *Service) ByOrganizer(ctx context.Context, clientID, organizer string) ([]models.Event, error) {
	remote, err := s.api.ListEventsByOrganizer(ctx, organizer)
	if err != nil {
		s.fallback("organizer_events", err)
		return filter(s.cached(ctx, clientID), func(e models.Event) bool {
			return e.OrganizerName == organizer
		}), nil
	}
	return remote, nil
}

// Create validates and submits a new event for organizer. Validation, the past-date check and
// the per-organizer limit run before the create call; nothing is cached unless the backend
// accepts the event.
func (s *Service) Create(ctx context.Context, clientID string, organizer models.User, req CreateRequest) (*models.Event, error) {
	req.normalize()
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	settings, err := s.cache.SystemSettings(ctx)
	if err != nil {
		s.logger.Warn("read system settings", zap.Error(err))
	}
	if limit := settings.MaxEventsPerOrganizer; limit > 0 {
		own, err := s.ByOrganizer(ctx, clientID, organizer.Username)
		if err != nil {
			return nil, err
		}
		if len(own) >= limit {
			return nil, apperr.New(apperr.Conflict, fmt.Sprintf("You have reached the limit of %d events per organizer", limit))
		}
	}

	e := models.Event{
		Title:         req.Title,
		Description:   req.Description,
		Date:          req.Date,
		Time:          req.Time,
		Location:      req.Location,
		Category:      req.Category,
		ContactNumber: req.ContactNumber,
		OrganizerName: organizer.Username,
		Status:        models.EventPending,
	}
	created, err := s.api.CreateEvent(ctx, e)
	if err != nil {
		return nil, err
	}
	if created.Status == "" {
		created.Status = models.EventPending
	}

	if settings.AutoApproveEvents && created.Status != models.EventApproved && created.ID != "" {
		approved, err := s.api.UpdateEventStatus(ctx, created.ID, models.EventApproved)
		if err != nil {
			s.logger.Warn("auto-approve failed, event stays pending", zap.String("event_id", created.ID.String()), zap.Error(err))
		} else {
			created.Status = models.EventApproved
			if approved != nil && approved.Status != "" {
				created.Status = approved.Status
			}
		}
	}

	if _, err := s.cache.UpdateEvents(ctx, clientID, func(cur []models.Event) ([]models.Event, error) {
		return upsert(cur, *created), nil
	}); err != nil {
		s.logger.Warn("cache created event", zap.String("client_id", clientID), zap.Error(err))
	}
	s.publish(realtime.TopicCatalog, realtime.EventEventUpdated, created)
	return created, nil
}

// owned returns event id when actor may change it: admins may change any event, organizers
// only their own.
func (s *Service) owned(ctx context.Context, clientID string, actor models.User, id models.ID) (models.Event, error) {
	if id == "" {
		return models.Event{}, ErrEventNotFound
	}
	var pool []models.Event
	var err error
	if actor.Role == models.RoleAdmin {
		pool, err = s.All(ctx, clientID, reconcile.Filter{})
	} else {
		pool, err = s.ByOrganizer(ctx, clientID, actor.Username)
	}
	if err != nil {
		return models.Event{}, err
	}
	for _, e := range pool {
		if e.ID == id {
			return e, nil
		}
	}
	if actor.Role != models.RoleAdmin {
		all, err := s.All(ctx, clientID, reconcile.Filter{})
		if err != nil {
			return models.Event{}, err
		}
		for _, e := range all {
			if e.ID == id {
				return models.Event{}, ErrNotOwner
			}
		}
	}
	return models.Event{}, ErrEventNotFound
}

// Update edits an event's details. Its status and organizer are kept. Registrations already
// made keep the snapshot taken when they were created.
func (s *Service) Update(ctx context.Context, clientID string, actor models.User, id models.ID, req CreateRequest) (*models.Event, error) {
	req.normalize()
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	cur, err := s.owned(ctx, clientID, actor, id)
	if err != nil {
		return nil, err
	}

	next := cur
	next.Title = req.Title
	next.Description = req.Description
	next.Date = req.Date
	next.Time = req.Time
	next.Location = req.Location
	next.Category = req.Category
	next.ContactNumber = req.ContactNumber

	updated, err := s.api.UpdateEvent(ctx, id, next)
	if err != nil {
		return nil, err
	}
	if updated.ID == "" {
		updated.ID = id
	}
	if updated.Status == "" {
		updated.Status = cur.Status
	}
	if updated.OrganizerName == "" {
		updated.OrganizerName = cur.OrganizerName
	}

	if _, err := s.cache.UpdateEvents(ctx, clientID, func(list []models.Event) ([]models.Event, error) {
		return upsert(list, *updated), nil
	}); err != nil {
		s.logger.Warn("cache updated event", zap.String("client_id", clientID), zap.Error(err))
	}
	s.publish(realtime.TopicCatalog, realtime.EventEventUpdated, updated)
	return updated, nil
}

// Delete removes an event.
func (s *Service) Delete(ctx context.Context, clientID string, actor models.User, id models.ID) error {
	if _, err := s.owned(ctx, clientID, actor, id); err != nil {
		return err
	}
	if err := s.api.DeleteEvent(ctx, id); err != nil {
		return err
	}
	if _, err := s.cache.UpdateEvents(ctx, clientID, func(list []models.Event) ([]models.Event, error) {
		return filter(list, func(e models.Event) bool { return e.ID != id }), nil
	}); err != nil {
		s.logger.Warn("uncache deleted event", zap.String("client_id", clientID), zap.Error(err))
	}
	s.publish(realtime.TopicCatalog, realtime.EventEventDeleted, map[string]models.ID{"id": id})
	return nil
}

// SetStatus approves or rejects an event.
func (s *Service) SetStatus(ctx context.Context, clientID string, id models.ID, status string) (*models.Event, error) {
	st, ok := models.ParseEventStatus(status)
	if !ok || (st != models.EventApproved && st != models.EventRejected) {
		return nil, ErrInvalidStatus
	}
	if id == "" {
		return nil, ErrEventNotFound
	}

	updated, err := s.api.UpdateEventStatus(ctx, id, st)
	if err != nil {
		return nil, err
	}

	var result models.Event
	if _, err := s.cache.UpdateEvents(ctx, clientID, func(cur []models.Event) ([]models.Event, error) {
		result = models.Event{ID: id}
		if updated != nil && updated.ID != "" {
			result = *updated
		} else {
			for _, e := range cur {
				if e.ID == id {
					result = e
					break
				}
			}
		}
		result.Status = st
		return upsert(cur, result), nil
	}); err != nil {
		s.logger.Warn("cache event status", zap.String("client_id", clientID), zap.Error(err))
		result = models.Event{ID: id, Status: st}
		if updated != nil && updated.ID != "" {
			result = *updated
			result.Status = st
		}
	}

	s.publish(realtime.TopicCatalog, realtime.EventEventUpdated, result)
	return &result, nil
}

// upsert replaces events with the same id and appends the rest.
func upsert(cur []models.Event, events ...models.Event) []models.Event {
	out := append([]models.Event(nil), cur...)
	for _, e := range events {
		replaced := false
		if e.ID != "" {
			for i := range out {
				if out[i].ID == e.ID {
					out[i] = e
					replaced = true
					break
				}
			}
		}
		if !replaced {
			out = append(out, e)
		}
	}
	return out
}

func filter(events []models.Event, keep func(models.Event) bool) []models.Event {
	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
