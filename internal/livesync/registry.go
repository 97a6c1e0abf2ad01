package livesync

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/neighbourhood-events/portal/internal/metrics"
	"github.com/neighbourhood-events/portal/internal/realtime"
)

var _ realtime.Lifecycle = (*Registry)(nil)

type slot struct {
	poller *Poller
	conns  int
}

// Registry runs a poller for every client with at least one open connection.
type Registry struct {
	source   Source
	hub      Broadcaster
	interval time.Duration
	logger   *zap.Logger

	mu    sync.Mutex
	slots map[string]*slot
}

// NewRegistry creates a poller registry.
func NewRegistry(source Source, hub Broadcaster, interval time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		source:   source,
		hub:      hub,
		interval: interval,
		logger:   logger,
		slots:    make(map[string]*slot),
	}
}

// Acquire records a new connection for clientID, starting its poller on the first one.
// A connection for a different user replaces the running poller.
func (r *Registry) Acquire(clientID, username string) {
	r.mu.Lock()
	s := r.slots[clientID]
	var stale *Poller
	switch {
	case s == nil:
		s = &slot{}
		r.slots[clientID] = s
	case s.poller.Username() != username:
		stale = s.poller
		s.poller = nil
	}
	s.conns++
	if s.poller == nil {
		s.poller = NewPoller(clientID, username, r.source, r.hub, r.interval, r.logger)
		s.poller.Start()
	}
	metrics.LivePollers.Set(float64(len(r.slots)))
	r.mu.Unlock()

	if stale != nil {
		stale.Stop()
	}
}

// Release records a closed connection; the poller stops with the last one.
func (r *Registry) Release(clientID string) {
	r.mu.Lock()
	s := r.slots[clientID]
	if s == nil {
		r.mu.Unlock()
		return
	}
	s.conns--
	if s.conns > 0 {
		r.mu.Unlock()
		return
	}
	delete(r.slots, clientID)
	metrics.LivePollers.Set(float64(len(r.slots)))
	r.mu.Unlock()

	s.poller.Stop()
}

// Refresh asks clientID's poller for an immediate refresh.
func (r *Registry) Refresh(clientID string) {
	r.mu.Lock()
	s := r.slots[clientID]
	r.mu.Unlock()
	if s != nil {
		s.poller.Reload()
	}
}

// ReloadUser refreshes every client on which username is live.
func (r *Registry) ReloadUser(username string) {
	for _, p := range r.pollers(func(p *Poller) bool { return p.Username() == username }) {
		p.Reload()
	}
}

// ReloadAll refreshes every live client.
func (r *Registry) ReloadAll() {
	for _, p := range r.pollers(func(*Poller) bool { return true }) {
		p.Reload()
	}
}

func (r *Registry) pollers(keep func(*Poller) bool) []*Poller {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Poller
	for _, s := range r.slots {
		if keep(s.poller) {
			out = append(out, s.poller)
		}
	}
	return out
}

// Len returns the number of running pollers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}

// StopAll stops every poller. Used on shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	slots := r.slots
	r.slots = make(map[string]*slot)
	metrics.LivePollers.Set(0)
	r.mu.Unlock()
	for _, s := range slots {
		s.poller.Stop()
	}
}
