// Package registrations decides which events a user is joined to and runs the join and
// cancel writes. Writes always reach the backend first; the session state, the fallback
// cache and live subscribers only see a change after the backend accepted it.
package registrations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/neighbourhood-events/portal/internal/apperr"
	"github.com/neighbourhood-events/portal/internal/backend"
	"github.com/neighbourhood-events/portal/internal/localcache"
	"github.com/neighbourhood-events/portal/internal/metrics"
	"github.com/neighbourhood-events/portal/internal/models"
	"github.com/neighbourhood-events/portal/internal/realtime"
	"github.com/neighbourhood-events/portal/internal/reconcile"
	"github.com/neighbourhood-events/portal/internal/session"
)

var (
	ErrRegistrationsClosed = apperr.New(apperr.Forbidden, "Event registrations are currently closed")
	ErrEventNotFound       = apperr.New(apperr.NotFound, "Event not found")
	ErrEventIncomplete     = apperr.New(apperr.Invalid, "This event is missing details and cannot be joined yet")
	ErrEventPast           = apperr.New(apperr.Invalid, "This event has already taken place")
	ErrAlreadyRegistered   = apperr.New(apperr.Conflict, "You are already registered for this event")
)

// Catalog supplies the approved events used for backfilling and browsing.
type Catalog interface {
	Approved(ctx context.Context, clientID string) ([]models.Event, error)
}

// Notifier publishes live notifications.
type Notifier interface {
	Publish(topic, event string, payload interface{})
}

// Change is the payload of a registration_changed notification.
type Change struct {
	Username string    `json:"username"`
	EventID  models.ID `json:"eventId"`
	Action   string    `json:"action"`
}

// Overview is everything the participant views need from one reconciliation.
type Overview struct {
	MyEvents  []reconcile.JoinedEvent   `json:"myEvents"`
	Upcoming  []models.Event            `json:"upcomingJoined"`
	Available []models.Event            `json:"available"`
	Calendar  []reconcile.CalendarEntry `json:"calendar"`
}

// Service orchestrates registration reads and writes.
type Service struct {
	api      *backend.Client
	catalog  Catalog
	store    *session.Store
	cache    *localcache.Cache
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a registrations service. notifier may be nil.
func NewService(api *backend.Client, catalog Catalog, store *session.Store, cache *localcache.Cache, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		api:      api,
		catalog:  catalog,
		store:    store,
		cache:    cache,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) fallback(op string, err error) {
	metrics.BackendFallbacks.WithLabelValues(op).Inc()
	s.logger.Debug("backend read failed, using local state", zap.String("op", op), zap.Error(err))
}

func (s *Service) events(ctx context.Context, clientID string) []models.Event {
	list, err := s.catalog.Approved(ctx, clientID)
	if err != nil {
		s.logger.Warn("load catalog", zap.String("client_id", clientID), zap.Error(err))
		return nil
	}
	return list
}

// view runs one reconciliation and returns the joined list and the catalog it used.
func (s *Service) view(ctx context.Context, clientID, username string) ([]reconcile.JoinedEvent, []models.Event) {
	remote, err := s.api.UserRegistrations(ctx, username)
	if err != nil {
		s.fallback("user_registrations", err)
		remote = nil
	}
	events := s.events(ctx, clientID)
	st := s.store.Snapshot(ctx, clientID)

	joined := reconcile.Merge(username, remote, st.Registrations, reconcile.NewCatalog(events))
	joined = reconcile.ApplyCancellations(joined, username, st.Cancelled)
	metrics.Reconciliations.Inc()
	return joined, events
}

// Joined returns every event username joined, cancelled ones included.
func (s *Service) Joined(ctx context.Context, clientID, username string) []reconcile.JoinedEvent {
	joined, _ := s.view(ctx, clientID, username)
	return joined
}

// MyEvents returns the events username is actively joined to.
func (s *Service) MyEvents(ctx context.Context, clientID, username string) []reconcile.JoinedEvent {
	return reconcile.Active(s.Joined(ctx, clientID, username))
}

// Browse returns upcoming events username has not joined that match f.
func (s *Service) Browse(ctx context.Context, clientID, username string, f reconcile.Filter) []models.Event {
	joined, events := s.view(ctx, clientID, username)
	_, available := reconcile.Partition(reconcile.Upcoming(events, s.now()), joined)
	return reconcile.Search(available, f)
}

// Calendar returns the catalog annotated with username's registration state.
func (s *Service) Calendar(ctx context.Context, clientID, username string) []reconcile.CalendarEntry {
	joined, events := s.view(ctx, clientID, username)
	return reconcile.Calendar(events, joined)
}

// Overview computes every participant view from a single reconciliation.
func (s *Service) Overview(ctx context.Context, clientID, username string) Overview {
	joined, events := s.view(ctx, clientID, username)
	mine, available := reconcile.Partition(reconcile.Upcoming(events, s.now()), joined)
	return Overview{
		MyEvents:  reconcile.Active(joined),
		Upcoming:  nonNil(mine),
		Available: nonNil(available),
		Calendar:  reconcile.Calendar(events, joined),
	}
}

// Register joins user to eventID. Every domain rule is checked before the backend call.
// Local state changes only after the backend accepted the registration.
func (s *Service) Register(ctx context.Context, clientID string, user models.User, eventID models.ID) (*models.Registration, error) {
	settings, err := s.cache.SystemSettings(ctx)
	if err != nil {
		s.logger.Warn("read system settings", zap.Error(err))
	}
	if !settings.AllowRegistrations {
		return nil, ErrRegistrationsClosed
	}
	if _, err := s.store.Load(ctx, clientID); err != nil {
		return nil, err
	}

	joined, events := s.view(ctx, clientID, user.Username)
	event, ok := reconcile.NewCatalog(events).Lookup(eventID)
	if !ok {
		return nil, ErrEventNotFound
	}
	if event.Title == "" || event.Date == "" {
		return nil, ErrEventIncomplete
	}
	if !event.IsUpcoming(s.now()) {
		return nil, ErrEventPast
	}
	for _, j := range reconcile.Active(joined) {
		if j.ID == eventID {
			return nil, ErrAlreadyRegistered
		}
	}

	reg := models.NewRegistration(user.Username, event)
	reg.RegisteredAt = s.now().UTC().Format(time.RFC3339)
	created, err := s.api.RegisterForEvent(ctx, reg)
	if err != nil {
		s.logger.Info("registration rejected", zap.String("username", user.Username), zap.String("event_id", eventID.String()), zap.Error(err))
		return nil, err
	}

	local := reg
	local.ID = models.ID(uuid.New().String())
	if created != nil && created.ID != "" {
		local.ID = created.ID
	}
	if _, err := s.store.Mutate(ctx, clientID, func(st *session.State) error {
		st.Registrations = append(withoutPair(st.Registrations, user.Username, eventID), local)
		st.Cancelled = withoutMarker(st.Cancelled, user.Username, eventID)
		return nil
	}); err != nil {
		return nil, err
	}

	s.publish(user.Username, eventID, "registered")
	return &local, nil
}

// Cancel cancels user's registration for eventID. The local record is kept with its
// cancelled flag set so calendar views can still show it; a registration only known to the
// backend is recorded locally from the snapshot read before the cancel call.
func (s *Service) Cancel(ctx context.Context, clientID string, user models.User, eventID models.ID) error {
	if _, err := s.store.Load(ctx, clientID); err != nil {
		return err
	}
	var snapshot *reconcile.JoinedEvent
	for _, j := range s.Joined(ctx, clientID, user.Username) {
		if j.ID == eventID {
			j := j
			snapshot = &j
			break
		}
	}

	if err := s.api.UnregisterFromEvent(ctx, user.Username, eventID); err != nil {
		s.logger.Info("cancellation rejected", zap.String("username", user.Username), zap.String("event_id", eventID.String()), zap.Error(err))
		return err
	}

	if _, err := s.store.Mutate(ctx, clientID, func(st *session.State) error {
		found := false
		for i := range st.Registrations {
			r := &st.Registrations[i]
			if r.Username == user.Username && r.EventID == eventID {
				r.Cancelled = true
				found = true
			}
		}
		if !found && snapshot != nil {
			st.Registrations = append(st.Registrations, models.Registration{
				ID:                snapshot.RegistrationID,
				Username:          user.Username,
				EventID:           eventID,
				EventTitle:        snapshot.Title,
				EventDate:         snapshot.Date,
				EventTime:         snapshot.Time,
				EventLocation:     snapshot.Location,
				EventCategory:     snapshot.Category,
				EventDescription:  snapshot.Description,
				OrganizerUsername: snapshot.OrganizerName,
				Cancelled:         true,
			})
		}
		st.Cancelled = append(withoutMarker(st.Cancelled, user.Username, eventID),
			models.CancelMarker{Username: user.Username, EventID: eventID})
		return nil
	}); err != nil {
		return err
	}

	s.publish(user.Username, eventID, "cancelled")
	return nil
}

func (s *Service) publish(username string, eventID models.ID, action string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(realtime.UserTopic(username), realtime.EventRegistrationChanged,
		Change{Username: username, EventID: eventID, Action: action})
}

// EventRegistrations lists who joined eventID.
func (s *Service) EventRegistrations(ctx context.Context, clientID string, eventID models.ID) []models.Registration {
	list, err := s.api.EventRegistrations(ctx, eventID)
	if err != nil {
		s.fallback("event_registrations", err)
		return s.localActive(ctx, clientID, func(r models.Registration) bool { return r.EventID == eventID })
	}
	return nonNil(list)
}

// OrganizerRegistrations lists registrations for every event of organizer.
func (s *Service) OrganizerRegistrations(ctx context.Context, clientID, organizer string) []models.Registration {
	list, err := s.api.OrganizerRegistrations(ctx, organizer)
	if err != nil {
		s.fallback("organizer_registrations", err)
		return s.localActive(ctx, clientID, func(r models.Registration) bool { return r.OrganizerUsername == organizer })
	}
	return nonNil(list)
}

// EventCount returns how many users joined eventID.
func (s *Service) EventCount(ctx context.Context, clientID string, eventID models.ID) int64 {
	n, err := s.api.EventRegistrationCount(ctx, eventID)
	if err != nil {
		s.fallback("event_registration_count", err)
		return int64(len(s.localActive(ctx, clientID, func(r models.Registration) bool { return r.EventID == eventID })))
	}
	return n
}

// OrganizerCount returns how many registrations the events of organizer received.
func (s *Service) OrganizerCount(ctx context.Context, clientID, organizer string) int64 {
	n, err := s.api.OrganizerRegistrationCount(ctx, organizer)
	if err != nil {
		s.fallback("organizer_registration_count", err)
		return int64(len(s.localActive(ctx, clientID, func(r models.Registration) bool { return r.OrganizerUsername == organizer })))
	}
	return n
}

// Check reports whether username is actively registered for eventID.
func (s *Service) Check(ctx context.Context, clientID, username string, eventID models.ID) bool {
	ok, err := s.api.CheckRegistration(ctx, username, eventID)
	if err == nil {
		return ok
	}
	s.fallback("check_registration", err)
	for _, j := range reconcile.Active(s.Joined(ctx, clientID, username)) {
		if j.ID == eventID {
			return true
		}
	}
	return false
}

func (s *Service) localActive(ctx context.Context, clientID string, keep func(models.Registration) bool) []models.Registration {
	st := s.store.Snapshot(ctx, clientID)
	out := []models.Registration{}
	for _, r := range reconcile.ActiveRecords(st.Registrations, st.Cancelled) {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func withoutPair(regs []models.Registration, username string, eventID models.ID) []models.Registration {
	out := make([]models.Registration, 0, len(regs))
	for _, r := range regs {
		if r.Username == username && r.EventID == eventID {
			continue
		}
		out = append(out, r)
	}
	return out
}

func withoutMarker(markers []models.CancelMarker, username string, eventID models.ID) []models.CancelMarker {
	out := make([]models.CancelMarker, 0, len(markers))
	for _, m := range markers {
		if m.Username == username && m.EventID == eventID {
			continue
		}
		out = append(out, m)
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
