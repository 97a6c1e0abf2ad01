// Package livesync keeps connected browsers' registration views fresh. One poller runs
// per client with an open WebSocket; it re-reconciles on a timer and on demand and pushes
// the result as a snapshot event.
package livesync

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/neighbourhood-events/portal/internal/realtime"
	"github.com/neighbourhood-events/portal/internal/registrations"
)

// DefaultInterval is used when no poll interval is configured.
const DefaultInterval = 5 * time.Second

// Source reconciles a user's registrations.
type Source interface {
	Overview(ctx context.Context, clientID, username string) registrations.Overview
}

// Broadcaster delivers a message to the connections subscribed to a topic.
type Broadcaster interface {
	Broadcast(topic, event string, payload interface{})
}

// Snapshot is the payload of a snapshot event.
type Snapshot struct {
	Username string `json:"username"`
	registrations.Overview
	At time.Time `json:"at"`
}

// Poller refreshes one client's view: every interval and whenever Reload is called.
// Refreshes run one at a time on the poller's goroutine, so the last one to finish is
// the one the browser keeps.
type Poller struct {
	clientID string
	username string
	source   Source
	hub      Broadcaster
	interval time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	reloadCh chan struct{}
}

// NewPoller creates a poller for username signed in on clientID.
func NewPoller(clientID, username string, source Source, hub Broadcaster, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		clientID: clientID,
		username: username,
		source:   source,
		hub:      hub,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
		reloadCh: make(chan struct{}, 1),
	}
}

// Username is the user whose view the poller refreshes.
func (p *Poller) Username() string { return p.username }

// Start begins polling. Call Stop to release resources.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.mu.Unlock()

	go p.run(ctx)
	p.logger.Debug("live poller started", zap.String("client_id", p.clientID), zap.Duration("interval", p.interval))
}

// Stop cancels any refresh in flight and waits for the poller to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.cancel = nil
	<-p.done
	p.logger.Debug("live poller stopped", zap.String("client_id", p.clientID))
}

// Reload asks for a refresh now. Requests made while one is pending are merged.
func (p *Poller) Reload() {
	select {
	case p.reloadCh <- struct{}{}:
	default:
	}
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.reloadCh:
			p.refresh(ctx)
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

func (p *Poller) refresh(ctx context.Context) {
	o := p.source.Overview(ctx, p.clientID, p.username)
	if ctx.Err() != nil {
		return
	}
	p.hub.Broadcast(realtime.ClientTopic(p.clientID), realtime.EventSnapshot, Snapshot{
		Username: p.username,
		Overview: o,
		At:       time.Now().UTC(),
	})
}
