package localcache

import (
	"context"
	"strings"

	"github.com/neighbourhood-events/portal/internal/apperr"
	"github.com/neighbourhood-events/portal/internal/models"
)

var (
	ErrUsernameTaken = apperr.New(apperr.Conflict, "Username already exists")
	ErrEmailTaken    = apperr.New(apperr.Conflict, "Email already exists")
)

// CurrentUser returns the signed-in user, or nil when nobody is signed in.
func (c *Cache) CurrentUser(ctx context.Context, clientID string) (*models.User, error) {
	var u models.User
	ok, err := get(ctx, c, c.key(clientID, KeyCurrentUser), KeyCurrentUser, &u)
	if err != nil || !ok {
		return nil, err
	}
	return &u, nil
}

func (c *Cache) SetCurrentUser(ctx context.Context, clientID string, u models.User) error {
	return c.put(ctx, c.key(clientID, KeyCurrentUser), KeyCurrentUser, u)
}

func (c *Cache) ClearCurrentUser(ctx context.Context, clientID string) error {
	return c.del(ctx, clientID, KeyCurrentUser)
}

// RegisteredUsers returns the cache-only accounts.
func (c *Cache) RegisteredUsers(ctx context.Context, clientID string) ([]models.CachedUser, error) {
	var users []models.CachedUser
	if _, err := get(ctx, c, c.key(clientID, KeyRegisteredUsers), KeyRegisteredUsers, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// FindRegisteredUser looks a cache-only account up by username.
func (c *Cache) FindRegisteredUser(ctx context.Context, clientID, username string) (*models.CachedUser, error) {
	users, err := c.RegisteredUsers(ctx, clientID)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Username == username {
			return &users[i], nil
		}
	}
	return nil, nil
}

// AddRegisteredUser appends u unless its username or email (case-insensitive) is taken.
func (c *Cache) AddRegisteredUser(ctx context.Context, clientID string, u models.CachedUser) error {
	_, err := update(ctx, c, c.key(clientID, KeyRegisteredUsers), KeyRegisteredUsers, func(cur []models.CachedUser) ([]models.CachedUser, error) {
		for _, existing := range cur {
			if existing.Username == u.Username {
				return nil, ErrUsernameTaken
			}
			if u.Email != "" && strings.EqualFold(existing.Email, u.Email) {
				return nil, ErrEmailTaken
			}
		}
		return append(cur, u), nil
	})
	return err
}

// Events returns the cached event catalog.
func (c *Cache) Events(ctx context.Context, clientID string) ([]models.Event, error) {
	var events []models.Event
	if _, err := get(ctx, c, c.key(clientID, KeyEvents), KeyEvents, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Cache) UpdateEvents(ctx context.Context, clientID string, fn func([]models.Event) ([]models.Event, error)) ([]models.Event, error) {
	return update(ctx, c, c.key(clientID, KeyEvents), KeyEvents, fn)
}

// Registrations returns every locally recorded registration for the client, across users.
func (c *Cache) Registrations(ctx context.Context, clientID string) ([]models.Registration, error) {
	var regs []models.Registration
	if _, err := get(ctx, c, c.key(clientID, KeyRegistrations), KeyRegistrations, &regs); err != nil {
		return nil, err
	}
	return regs, nil
}

func (c *Cache) UpdateRegistrations(ctx context.Context, clientID string, fn func([]models.Registration) ([]models.Registration, error)) ([]models.Registration, error) {
	return update(ctx, c, c.key(clientID, KeyRegistrations), KeyRegistrations, fn)
}

// Cancelled returns the cancellation markers.
func (c *Cache) Cancelled(ctx context.Context, clientID string) ([]models.CancelMarker, error) {
	var markers []models.CancelMarker
	if _, err := get(ctx, c, c.key(clientID, KeyCancelled), KeyCancelled, &markers); err != nil {
		return nil, err
	}
	return markers, nil
}

func (c *Cache) UpdateCancelled(ctx context.Context, clientID string, fn func([]models.CancelMarker) ([]models.CancelMarker, error)) ([]models.CancelMarker, error) {
	return update(ctx, c, c.key(clientID, KeyCancelled), KeyCancelled, fn)
}

// SystemSettings returns the saved settings, or the defaults when none were saved. The
// settings are shared by every client.
func (c *Cache) SystemSettings(ctx context.Context) (models.SystemSettings, error) {
	s := models.DefaultSystemSettings()
	ok, err := get(ctx, c, c.sharedKey(KeySystemSettings), KeySystemSettings, &s)
	if err != nil {
		return models.DefaultSystemSettings(), err
	}
	if !ok {
		return models.DefaultSystemSettings(), nil
	}
	return s, nil
}

func (c *Cache) SetSystemSettings(ctx context.Context, s models.SystemSettings) error {
	return c.put(ctx, c.sharedKey(KeySystemSettings), KeySystemSettings, s)
}

// ResetSystemSettings restores and returns the defaults.
func (c *Cache) ResetSystemSettings(ctx context.Context) (models.SystemSettings, error) {
	s := models.DefaultSystemSettings()
	if err := c.SetSystemSettings(ctx, s); err != nil {
		return s, err
	}
	return s, nil
}
