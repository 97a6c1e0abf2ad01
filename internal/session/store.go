// Package session holds the authoritative per-client state: who is signed in, the local
// registration mirror and the cancellation markers. Every change goes through Store.Mutate,
// which then writes the new state to the fallback cache. The cache never writes back,
// except for the one-time hydrate when a client's state is first needed.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/neighbourhood-events/portal/internal/apperr"
	"github.com/neighbourhood-events/portal/internal/metrics"
	"github.com/neighbourhood-events/portal/internal/models"
)

// ErrUnavailable is returned when a client's state cannot be read from the cache. Writes
// refuse to run against a state that was never loaded.
var ErrUnavailable = apperr.New(apperr.Unavailable, "Your session is unavailable right now. Please try again.")

// Backing is the cache the store hydrates from and writes through to.
type Backing interface {
	CurrentUser(ctx context.Context, clientID string) (*models.User, error)
	SetCurrentUser(ctx context.Context, clientID string, u models.User) error
	ClearCurrentUser(ctx context.Context, clientID string) error
	Registrations(ctx context.Context, clientID string) ([]models.Registration, error)
	UpdateRegistrations(ctx context.Context, clientID string, fn func([]models.Registration) ([]models.Registration, error)) ([]models.Registration, error)
	Cancelled(ctx context.Context, clientID string) ([]models.CancelMarker, error)
	UpdateCancelled(ctx context.Context, clientID string, fn func([]models.CancelMarker) ([]models.CancelMarker, error)) ([]models.CancelMarker, error)
}

// State is one client's session. Registrations holds every local record on the client,
// whichever user created it.
type State struct {
	User          *models.User
	Registrations []models.Registration
	Cancelled     []models.CancelMarker
}

func (s State) clone() State {
	out := State{
		Registrations: append([]models.Registration(nil), s.Registrations...),
		Cancelled:     append([]models.CancelMarker(nil), s.Cancelled...),
	}
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	return out
}

type entry struct {
	mu     sync.Mutex
	loaded bool
	state  State
}

// Store keeps client states in an expiring LRU.
type Store struct {
	mu      sync.Mutex
	entries *expirable.LRU[string, *entry]
	backing Backing
	logger  *zap.Logger
}

// NewStore creates a store holding at most size clients, each for ttl since last write.
func NewStore(backing Backing, size int, ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if size <= 0 {
		size = 10000
	}
	return &Store{
		entries: expirable.NewLRU[string, *entry](size, nil, ttl),
		backing: backing,
		logger:  logger,
	}
}

func (s *Store) entry(clientID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries.Get(clientID); ok {
		return e
	}
	e := &entry{}
	s.entries.Add(clientID, e)
	return e
}

// hydrate loads state from the cache once. A failed read leaves the entry unloaded so the
// next access tries again. Caller holds e.mu.
func (s *Store) hydrate(ctx context.Context, clientID string, e *entry) error {
	if e.loaded {
		return nil
	}
	u, err := s.backing.CurrentUser(ctx, clientID)
	if err != nil {
		return fmt.Errorf("hydrate user: %w: %w", ErrUnavailable, err)
	}
	regs, err := s.backing.Registrations(ctx, clientID)
	if err != nil {
		return fmt.Errorf("hydrate registrations: %w: %w", ErrUnavailable, err)
	}
	markers, err := s.backing.Cancelled(ctx, clientID)
	if err != nil {
		return fmt.Errorf("hydrate cancellations: %w: %w", ErrUnavailable, err)
	}
	e.state = State{User: u, Registrations: regs, Cancelled: markers}
	e.loaded = true
	return nil
}

// Load returns a copy of the client's state, hydrating it from the cache first if needed.
func (s *Store) Load(ctx context.Context, clientID string) (State, error) {
	e := s.entry(clientID)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := s.hydrate(ctx, clientID, e); err != nil {
		return State{}, err
	}
	return e.state.clone(), nil
}

// Snapshot is Load for readers that can live with an empty state while the cache is down.
func (s *Store) Snapshot(ctx context.Context, clientID string) State {
	st, err := s.Load(ctx, clientID)
	if err != nil {
		s.logger.Warn("session hydrate", zap.String("client_id", clientID), zap.Error(err))
	}
	return st
}

// User returns the signed-in user, or nil.
func (s *Store) User(ctx context.Context, clientID string) *models.User {
	return s.Snapshot(ctx, clientID).User
}

// Mutate applies fn to a copy of the state and commits it when fn succeeds. The committed
// state is then written to the cache; cache write failures are logged, not returned, because
// the in-memory state is already authoritative. A state that could not be hydrated is never
// mutated: committing over it would drop what the cache still holds.
func (s *Store) Mutate(ctx context.Context, clientID string, fn func(*State) error) (State, error) {
	e := s.entry(clientID)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := s.hydrate(ctx, clientID, e); err != nil {
		return State{}, err
	}

	next := e.state.clone()
	if err := fn(&next); err != nil {
		return e.state.clone(), err
	}
	prev := e.state
	e.state = next
	s.sync(ctx, clientID, prev, next)
	return next.clone(), nil
}

func (s *Store) sync(ctx context.Context, clientID string, prev, next State) {
	fail := func(what string, err error) {
		metrics.CacheSyncErrors.Inc()
		s.logger.Warn("session cache sync", zap.String("client_id", clientID), zap.String("part", what), zap.Error(err))
	}
	switch {
	case next.User == nil && prev.User != nil:
		if err := s.backing.ClearCurrentUser(ctx, clientID); err != nil {
			fail("currentUser", err)
		}
	case next.User != nil && (prev.User == nil || *prev.User != *next.User):
		if err := s.backing.SetCurrentUser(ctx, clientID, *next.User); err != nil {
			fail("currentUser", err)
		}
	}
	if !sameRegistrations(prev.Registrations, next.Registrations) {
		if _, err := s.backing.UpdateRegistrations(ctx, clientID, func(cur []models.Registration) ([]models.Registration, error) {
			return applyDiff(cur, prev.Registrations, next.Registrations, func(a, b models.Registration) bool {
				return a.Username == b.Username && a.EventID == b.EventID
			}), nil
		}); err != nil {
			fail("eventRegistrations", err)
		}
	}
	if !sameMarkers(prev.Cancelled, next.Cancelled) {
		if _, err := s.backing.UpdateCancelled(ctx, clientID, func(cur []models.CancelMarker) ([]models.CancelMarker, error) {
			return applyDiff(cur, prev.Cancelled, next.Cancelled, func(a, b models.CancelMarker) bool { return a == b }), nil
		}); err != nil {
			fail("cancelledRegistrations", err)
		}
	}
}

// SetUser signs u in on the client.
func (s *Store) SetUser(ctx context.Context, clientID string, u models.User) error {
	_, err := s.Mutate(ctx, clientID, func(st *State) error {
		st.User = &u
		return nil
	})
	return err
}

// ClearUser signs the client out. Local registrations stay, as they would in browser storage.
func (s *Store) ClearUser(ctx context.Context, clientID string) error {
	_, err := s.Mutate(ctx, clientID, func(st *State) error {
		st.User = nil
		return nil
	})
	return err
}

func sameRegistrations(a, b []models.Registration) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameMarkers(a, b []models.CancelMarker) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// applyDiff replays the change from prev to next onto cur, the document as another writer
// may have left it. Removed entries are dropped from cur; an added entry that is the same
// record as a removed one takes its place, the rest are appended.
func applyDiff[T comparable](cur, prev, next []T, sameRecord func(a, b T) bool) []T {
	removed := subtract(prev, next)
	added := subtract(next, prev)
	out := append([]T(nil), cur...)

	for _, r := range removed {
		i := index(out, r)
		if i < 0 {
			continue
		}
		replaced := false
		for j, a := range added {
			if sameRecord(a, r) {
				out[i] = a
				added = append(added[:j], added[j+1:]...)
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out[:i], out[i+1:]...)
		}
	}
	return append(out, added...)
}

// subtract returns the entries of a not matched one-for-one by an entry of b.
func subtract[T comparable](a, b []T) []T {
	rest := append([]T(nil), b...)
	var out []T
	for _, v := range a {
		if i := index(rest, v); i >= 0 {
			rest = append(rest[:i], rest[i+1:]...)
			continue
		}
		out = append(out, v)
	}
	return out
}

func index[T comparable](s []T, v T) int {
	for i := range s {
		if s[i] == v {
			return i
		}
	}
	return -1
}
