package registrations

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neighbourhood-events/portal/internal/backend/backendtest"
	"github.com/neighbourhood-events/portal/internal/events"
	"github.com/neighbourhood-events/portal/internal/localcache"
	"github.com/neighbourhood-events/portal/internal/models"
	"github.com/neighbourhood-events/portal/internal/reconcile"
	"github.com/neighbourhood-events/portal/internal/session"
)

type recorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recorder) Publish(_ string, _ string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := payload.(Change); ok {
		r.changes = append(r.changes, c)
	}
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}

type fixture struct {
	svc     *Service
	srv     *backendtest.Server
	mr      *miniredis.Miniredis
	cache   *localcache.Cache
	store   *session.Store
	catalog *events.Service
	rec     *recorder
}

func setup(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cache := localcache.New(rdb, "test", 0, nil)
	srv := backendtest.New(t)
	api := srv.Client()
	store := session.NewStore(cache, 100, time.Hour, nil)
	rec := &recorder{}
	catalog := events.NewService(api, cache, nil, nil)

	svc := NewService(api, catalog, store, cache, rec, nil)
	svc.now = func() time.Time { return time.Date(2029, 6, 1, 12, 0, 0, 0, time.UTC) }
	return &fixture{svc: svc, srv: srv, mr: mr, cache: cache, store: store, catalog: catalog, rec: rec}
}

var alice = models.User{ID: "1", Username: "alice", Role: models.RoleParticipant}

func blockParty() models.Event {
	return models.Event{
		ID: "42", Title: "Block Party", Date: "2030-01-01", Time: "18:00",
		Location: "Elm Street", OrganizerName: "olga", Status: models.EventApproved,
	}
}

func ids(list []models.Event) []models.ID {
	out := make([]models.ID, 0, len(list))
	for _, e := range list {
		out = append(out, e.ID)
	}
	return out
}

func TestRegisterAndCancel_EndToEnd(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.srv.AddEvent(blockParty())

	reg, err := f.svc.Register(ctx, "c1", alice, "42")
	require.NoError(t, err)
	assert.Equal(t, models.ID("42"), reg.EventID)
	assert.Equal(t, "Block Party", reg.EventTitle)

	remote := f.srv.Registrations()
	require.Len(t, remote, 1)
	assert.Equal(t, models.ID("42"), remote[0].EventID)

	cached, err := f.cache.Registrations(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, models.ID("42"), cached[0].EventID)

	mine := f.svc.MyEvents(ctx, "c1", "alice")
	require.Len(t, mine, 1)
	assert.Equal(t, models.ID("42"), mine[0].ID)
	assert.NotContains(t, ids(f.svc.Browse(ctx, "c1", "alice", reconcile.Filter{})), models.ID("42"))

	require.NoError(t, f.svc.Cancel(ctx, "c1", alice, "42"))
	assert.Empty(t, f.svc.MyEvents(ctx, "c1", "alice"))
	assert.Contains(t, ids(f.svc.Browse(ctx, "c1", "alice", reconcile.Filter{})), models.ID("42"))

	cal := f.svc.Calendar(ctx, "c1", "alice")
	require.Len(t, cal, 1)
	assert.Equal(t, reconcile.CalendarCancelled, cal[0].State)

	assert.Equal(t, 2, f.rec.count())
}

func TestRegister_BackendFailureLeavesStateUntouched(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.srv.AddEvent(blockParty())
	f.srv.FailWrites(true)

	_, err := f.svc.Register(ctx, "c1", alice, "42")
	require.EqualError(t, err, "Internal server error")

	cached, err := f.cache.Registrations(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, cached)
	assert.Empty(t, f.store.Snapshot(ctx, "c1").Registrations)
	assert.Empty(t, f.svc.MyEvents(ctx, "c1", "alice"))
	assert.Zero(t, f.rec.count())
}

func TestRegister_UnreachableBackendLeavesStateUntouched(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, seedEvents(ctx, f.cache, "c1", []models.Event{blockParty()}))
	f.srv.Close()

	_, err := f.svc.Register(ctx, "c1", alice, "42")
	require.EqualError(t, err, "Unable to reach the server. Please try again.")
	assert.Empty(t, f.store.Snapshot(ctx, "c1").Registrations)
}

func TestRegister_DomainRulesCheckedBeforeBackend(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.srv.AddEvent(blockParty())
	f.srv.AddEvent(models.Event{ID: "7", Title: "Old Fair", Date: "2020-01-01", Time: "10:00", Location: "Park", Status: models.EventApproved})

	_, err := f.svc.Register(ctx, "c1", alice, "missing")
	assert.ErrorIs(t, err, ErrEventNotFound)

	_, err = f.svc.Register(ctx, "c1", alice, "7")
	assert.ErrorIs(t, err, ErrEventPast)

	_, err = f.svc.Register(ctx, "c1", alice, "42")
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, "c1", alice, "42")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	settings := models.DefaultSystemSettings()
	settings.AllowRegistrations = false
	require.NoError(t, f.cache.SetSystemSettings(ctx, settings))
	_, err = f.svc.Register(ctx, "c1", alice, "42")
	assert.ErrorIs(t, err, ErrRegistrationsClosed)

	assert.Equal(t, 1, f.srv.Hits("POST /api/event-registrations/register"))
}

func TestRegister_AfterCancelClearsMarker(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.srv.AddEvent(blockParty())

	_, err := f.svc.Register(ctx, "c1", alice, "42")
	require.NoError(t, err)
	require.NoError(t, f.svc.Cancel(ctx, "c1", alice, "42"))
	_, err = f.svc.Register(ctx, "c1", alice, "42")
	require.NoError(t, err)

	st := f.store.Snapshot(ctx, "c1")
	assert.Empty(t, st.Cancelled)
	require.Len(t, st.Registrations, 1)
	assert.False(t, st.Registrations[0].Cancelled)
	assert.Len(t, f.svc.MyEvents(ctx, "c1", "alice"), 1)
}

func TestCancel_BackendFailureKeepsRegistration(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.srv.AddEvent(blockParty())
	_, err := f.svc.Register(ctx, "c1", alice, "42")
	require.NoError(t, err)

	f.srv.FailWrites(true)
	require.Error(t, f.svc.Cancel(ctx, "c1", alice, "42"))
	assert.Len(t, f.svc.MyEvents(ctx, "c1", "alice"), 1)
	assert.Empty(t, f.store.Snapshot(ctx, "c1").Cancelled)
}

func TestCancel_RemoteOnlyRegistrationIsKeptLocallyAsCancelled(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.srv.AddEvent(blockParty())
	f.srv.AddRegistration(models.Registration{Username: "alice", EventID: "42"})

	require.Len(t, f.svc.MyEvents(ctx, "c1", "alice"), 1)
	require.NoError(t, f.svc.Cancel(ctx, "c1", alice, "42"))

	joined := f.svc.Joined(ctx, "c1", "alice")
	require.Len(t, joined, 1)
	assert.True(t, joined[0].Cancelled())
	assert.Equal(t, "Block Party", joined[0].Title)
}

func TestReads_DegradeToLocalState(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.srv.AddEvent(blockParty())
	_, err := f.svc.Register(ctx, "c1", alice, "42")
	require.NoError(t, err)

	f.srv.SetDown(true)
	mine := f.svc.MyEvents(ctx, "c1", "alice")
	require.Len(t, mine, 1)
	assert.Equal(t, reconcile.SourceLocal, mine[0].Source)

	assert.True(t, f.svc.Check(ctx, "c1", "alice", "42"))
	assert.Len(t, f.svc.EventRegistrations(ctx, "c1", "42"), 1)
	assert.Equal(t, int64(1), f.svc.OrganizerCount(ctx, "c1", "olga"))
}

func TestOverview(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.srv.AddEvent(blockParty())
	f.srv.AddEvent(models.Event{ID: "8", Title: "Book Swap", Date: "2030-03-01", Time: "11:00", Location: "Library", Status: models.EventApproved})
	_, err := f.svc.Register(ctx, "c1", alice, "42")
	require.NoError(t, err)

	o := f.svc.Overview(ctx, "c1", "alice")
	require.Len(t, o.MyEvents, 1)
	assert.Equal(t, []models.ID{"42"}, ids(o.Upcoming))
	assert.Equal(t, []models.ID{"8"}, ids(o.Available))
	assert.Len(t, o.Calendar, 2)

	assert.Equal(t, int64(1), f.svc.EventCount(ctx, "c1", "42"))
	assert.Len(t, f.svc.OrganizerRegistrations(ctx, "c1", "olga"), 1)
}

func TestRegister_UnavailableSessionStopsBeforeBackend(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.srv.AddEvent(blockParty())
	f.mr.Close()

	_, err := f.svc.Register(ctx, "c1", alice, "42")
	require.ErrorIs(t, err, session.ErrUnavailable)
	assert.Zero(t, f.srv.Hits("POST /api/event-registrations/register"))
	assert.Empty(t, f.srv.Registrations())

	err = f.svc.Cancel(ctx, "c1", alice, "42")
	require.ErrorIs(t, err, session.ErrUnavailable)
	assert.Zero(t, f.rec.count())
}

func TestRegister_ClosedByAdminOnAnotherClient(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.srv.AddEvent(blockParty())

	settings := models.DefaultSystemSettings()
	settings.AllowRegistrations = false
	require.NoError(t, f.cache.SetSystemSettings(ctx, settings))

	_, err := f.svc.Register(ctx, "participant-browser", alice, "42")
	assert.ErrorIs(t, err, ErrRegistrationsClosed)
	assert.Zero(t, f.srv.Hits("POST /api/event-registrations/register"))
}

func TestBrowse_Filter(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.srv.AddEvent(blockParty())
	f.srv.AddEvent(models.Event{
		ID: "43", Title: "Garden Swap", Date: "2030-03-10", Time: "09:00",
		Location: "Oak Park", Category: "Gardening", OrganizerName: "olga", Status: models.EventApproved,
	})

	assert.ElementsMatch(t, []models.ID{"42", "43"}, ids(f.svc.Browse(ctx, "c1", "alice", reconcile.Filter{})))
	assert.Equal(t, []models.ID{"42"}, ids(f.svc.Browse(ctx, "c1", "alice", reconcile.Filter{Query: "elm"})))
	assert.Equal(t, []models.ID{"43"}, ids(f.svc.Browse(ctx, "c1", "alice", reconcile.Filter{Query: "gardening"})))
	assert.Equal(t, []models.ID{"43"}, ids(f.svc.Browse(ctx, "c1", "alice", reconcile.Filter{From: "2030-02-01"})))
	assert.Empty(t, f.svc.Browse(ctx, "c1", "alice", reconcile.Filter{Location: "oak", To: "2030-01-31"}))
}

func TestMyEvents_KeepsSnapshotAfterOrganizerEdit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.srv.AddEvent(blockParty())

	_, err := f.svc.Register(ctx, "c1", alice, "42")
	require.NoError(t, err)

	olga := models.User{ID: "9", Username: "olga", Role: models.RoleOrganizer}
	updated, err := f.catalog.Update(ctx, "organizer-browser", olga, "42", events.CreateRequest{
		Title: "Winter Block Party", Description: "Moved indoors", Date: "2030-01-01",
		Time: "19:00", Location: "Community Hall",
	})
	require.NoError(t, err)
	assert.Equal(t, "Winter Block Party", updated.Title)

	mine := f.svc.MyEvents(ctx, "c1", "alice")
	require.Len(t, mine, 1)
	assert.Equal(t, "Block Party", mine[0].Title)
	assert.Equal(t, "Elm Street", mine[0].Location)
	assert.Equal(t, "18:00", mine[0].Time)

	browse := f.svc.Browse(ctx, "c1", "bob", reconcile.Filter{})
	require.Len(t, browse, 1)
	assert.Equal(t, "Winter Block Party", browse[0].Title)
}

func seedEvents(ctx context.Context, c *localcache.Cache, clientID string, events []models.Event) error {
	_, err := c.UpdateEvents(ctx, clientID, func([]models.Event) ([]models.Event, error) { return events, nil })
	return err
}
