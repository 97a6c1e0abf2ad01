package localcache

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neighbourhood-events/portal/internal/models"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, "test", 0, nil), mr
}

func TestCurrentUser_RoundTripAndClear(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	u, err := c.CurrentUser(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, u)

	require.NoError(t, c.SetCurrentUser(ctx, "c1", models.User{ID: "7", Username: "alice", Role: models.RoleParticipant}))
	assert.True(t, mr.Exists("test:client:c1:currentUser"))

	u, err = c.CurrentUser(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "alice", u.Username)

	other, err := c.CurrentUser(ctx, "c2")
	require.NoError(t, err)
	assert.Nil(t, other)

	require.NoError(t, c.ClearCurrentUser(ctx, "c1"))
	u, err = c.CurrentUser(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestUnreadableEntryIsTreatedAsEmpty(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("test:client:c1:eventRegistrations", "{not json"))

	regs, err := c.Registrations(context.Background(), "c1")
	require.NoError(t, err)
	assert.Empty(t, regs)

	regs, err = c.UpdateRegistrations(context.Background(), "c1", func(cur []models.Registration) ([]models.Registration, error) {
		return append(cur, models.Registration{Username: "alice", EventID: "1"}), nil
	})
	require.NoError(t, err)
	assert.Len(t, regs, 1)
}

func TestSystemSettings_DefaultsAndReset(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	s, err := c.SystemSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSystemSettings(), s)

	s.AllowRegistrations = false
	s.MaxEventsPerOrganizer = 2
	require.NoError(t, c.SetSystemSettings(ctx, s))

	got, err := c.SystemSettings(ctx)
	require.NoError(t, err)
	assert.False(t, got.AllowRegistrations)
	assert.Equal(t, 2, got.MaxEventsPerOrganizer)
	assert.True(t, mr.Exists("test:shared:systemSettings"))

	reset, err := c.ResetSystemSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSystemSettings(), reset)
}

func TestAddRegisteredUser_RejectsDuplicates(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	alice := models.CachedUser{User: models.User{Username: "alice", Email: "alice@example.com"}, PasswordHash: "h"}
	require.NoError(t, c.AddRegisteredUser(ctx, "c1", alice))

	err := c.AddRegisteredUser(ctx, "c1", models.CachedUser{User: models.User{Username: "alice", Email: "x@example.com"}})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	err = c.AddRegisteredUser(ctx, "c1", models.CachedUser{User: models.User{Username: "bob", Email: "ALICE@example.com"}})
	assert.ErrorIs(t, err, ErrEmailTaken)

	users, err := c.RegisteredUsers(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, users, 1)

	found, err := c.FindRegisteredUser(ctx, "c1", "alice")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "h", found.PasswordHash)
}

func TestUpdateRegistrations_ConcurrentWritersDoNotLoseUpdates(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.UpdateRegistrations(ctx, "c1", func(cur []models.Registration) ([]models.Registration, error) {
				return append(cur, models.Registration{Username: "alice", EventID: models.ID(fmt.Sprint(i))}), nil
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	regs, err := c.Registrations(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, regs, writers)
}
