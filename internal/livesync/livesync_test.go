package livesync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neighbourhood-events/portal/internal/reconcile"
	"github.com/neighbourhood-events/portal/internal/registrations"
)

type countingSource struct {
	mu    sync.Mutex
	calls map[string]int
	block bool
}

func newSource() *countingSource { return &countingSource{calls: map[string]int{}} }

func (s *countingSource) Overview(ctx context.Context, clientID, username string) registrations.Overview {
	s.mu.Lock()
	s.calls[clientID]++
	block := s.block
	s.mu.Unlock()
	if block {
		<-ctx.Done()
	}
	return registrations.Overview{MyEvents: []reconcile.JoinedEvent{{ID: "42", Title: "Block Party"}}}
}

func (s *countingSource) count(clientID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[clientID]
}

type sink struct {
	mu     sync.Mutex
	topics []string
}

func (s *sink) Broadcast(topic, event string, payload interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := payload.(Snapshot); ok {
		s.topics = append(s.topics, topic+"/"+event)
	}
}

func (s *sink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.topics)
}

func TestPoller_TicksAndReloads(t *testing.T) {
	src := newSource()
	out := &sink{}
	p := NewPoller("c1", "alice", src, out, time.Hour, nil)
	p.Start()
	defer p.Stop()

	require.Eventually(t, func() bool { return src.count("c1") == 1 }, time.Second, 5*time.Millisecond)
	p.Reload()
	require.Eventually(t, func() bool { return src.count("c1") == 2 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return out.len() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "client:c1/snapshot", out.topics[0])

	fast := NewPoller("c2", "bob", src, out, 10*time.Millisecond, nil)
	fast.Start()
	defer fast.Stop()
	require.Eventually(t, func() bool { return src.count("c2") >= 3 }, time.Second, 5*time.Millisecond)
}

func TestPoller_StopCancelsInFlightRefresh(t *testing.T) {
	src := newSource()
	src.block = true
	out := &sink{}
	p := NewPoller("c1", "alice", src, out, time.Hour, nil)
	p.Start()
	require.Eventually(t, func() bool { return src.count("c1") == 1 }, time.Second, 5*time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return while a refresh was in flight")
	}
	assert.Zero(t, out.len())
}

func TestRegistry_RefCountsConnections(t *testing.T) {
	src := newSource()
	reg := NewRegistry(src, &sink{}, 10*time.Millisecond, nil)

	reg.Acquire("c1", "alice")
	reg.Acquire("c1", "alice")
	assert.Equal(t, 1, reg.Len())

	reg.Release("c1")
	assert.Equal(t, 1, reg.Len())
	require.Eventually(t, func() bool { return src.count("c1") >= 2 }, time.Second, 5*time.Millisecond)

	reg.Release("c1")
	assert.Zero(t, reg.Len())
	after := src.count("c1")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, src.count("c1"))

	reg.Release("unknown")
}

func TestRegistry_ReloadUser(t *testing.T) {
	src := newSource()
	reg := NewRegistry(src, &sink{}, time.Hour, nil)
	defer reg.StopAll()

	reg.Acquire("c1", "alice")
	reg.Acquire("c2", "bob")
	require.Eventually(t, func() bool { return src.count("c1") == 1 && src.count("c2") == 1 }, time.Second, 5*time.Millisecond)

	reg.ReloadUser("alice")
	require.Eventually(t, func() bool { return src.count("c1") == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, src.count("c2"))

	reg.Refresh("c2")
	require.Eventually(t, func() bool { return src.count("c2") == 2 }, time.Second, 5*time.Millisecond)
}

func TestRegistry_UserSwitchRestartsPoller(t *testing.T) {
	src := newSource()
	reg := NewRegistry(src, &sink{}, time.Hour, nil)
	defer reg.StopAll()

	reg.Acquire("c1", "alice")
	require.Eventually(t, func() bool { return src.count("c1") == 1 }, time.Second, 5*time.Millisecond)
	reg.Acquire("c1", "bob")
	assert.Equal(t, 1, reg.Len())
	require.Eventually(t, func() bool { return src.count("c1") == 2 }, time.Second, 5*time.Millisecond)

	reg.ReloadUser("alice")
	reg.ReloadUser("bob")
	require.Eventually(t, func() bool { return src.count("c1") == 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 3, src.count("c1"))
}
