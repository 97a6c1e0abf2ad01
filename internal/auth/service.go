// Package auth signs users in and out and manages accounts. When the backend cannot be
// reached, sign-in and sign-up fall back to cache-only accounts on the client.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/neighbourhood-events/portal/internal/apperr"
	"github.com/neighbourhood-events/portal/internal/backend"
	"github.com/neighbourhood-events/portal/internal/localcache"
	"github.com/neighbourhood-events/portal/internal/metrics"
	"github.com/neighbourhood-events/portal/internal/models"
	"github.com/neighbourhood-events/portal/internal/session"
	"github.com/neighbourhood-events/portal/internal/validation"
)

var (
	ErrInvalidCredentials = apperr.New(apperr.Unauthorized, "Invalid username or password")
	ErrNotSignedIn        = apperr.New(apperr.Unauthorized, "Please sign in to continue")
)

// LoginRequest is the body for POST /auth/login. Role is the role picked on the sign-in
// form; when set it must match the account's role.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,role"`
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Username      string `json:"username" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=6"`
	Role          string `json:"role" validate:"required,role"`
	ContactNumber string `json:"contactNumber" validate:"omitempty,phone"`
}

// ProfileRequest is the body for PUT /profile.
type ProfileRequest struct {
	Username string `json:"username"`
	Password string `json:"password" validate:"omitempty,min=6"`
}

// Session is a signed-in user and the token presented on later requests.
type Session struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
	// Offline is set when the account was checked against the cache only.
	Offline bool `json:"offline,omitempty"`
}

// Service implements account operations.
type Service struct {
	api    *backend.Client
	cache  *localcache.Cache
	store  *session.Store
	tokens *session.Tokens
	logger *zap.Logger
}

// NewService creates an auth service.
func NewService(api *backend.Client, cache *localcache.Cache, store *session.Store, tokens *session.Tokens, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, cache: cache, store: store, tokens: tokens, logger: logger}
}

// degraded reports whether err means the backend is unavailable rather than refusing.
func degraded(err error) bool {
	var be *backend.Error
	return errors.As(err, &be) && (be.Unreachable() || be.Status >= 500)
}

func roleMismatch(actual, wanted models.Role) error {
	return apperr.New(apperr.Forbidden,
		fmt.Sprintf("User is registered as %s, not %s", actual.DisplayName(), wanted.DisplayName()))
}

// Login authenticates against the backend, or against the client's cache-only accounts
// when the backend is unavailable, and signs the user in on clientID.
func (s *Service) Login(ctx context.Context, clientID string, req LoginRequest) (*Session, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	offline := false
	u, err := s.api.Login(ctx, req.Username, req.Password)
	if err != nil {
		if !degraded(err) {
			return nil, err
		}
		metrics.BackendFallbacks.WithLabelValues("login").Inc()
		s.logger.Info("backend login unavailable, trying cached accounts",
			zap.String("client_id", clientID), zap.Error(err))
		u, err = s.cachedLogin(ctx, clientID, req.Username, req.Password)
		if err != nil {
			return nil, err
		}
		offline = true
	}

	if req.Role != "" {
		wanted, _ := models.ParseRole(req.Role)
		if u.Role != wanted {
			return nil, roleMismatch(u.Role, wanted)
		}
	}
	return s.signIn(ctx, clientID, *u, offline)
}

func (s *Service) cachedLogin(ctx context.Context, clientID, username, password string) (*models.User, error) {
	cached, err := s.cache.FindRegisteredUser(ctx, clientID, username)
	if err != nil {
		return nil, apperr.New(apperr.Unavailable, "Unable to reach the server. Please try again.")
	}
	if cached == nil || !passwordMatches(password, cached.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	u := cached.User
	return &u, nil
}

func (s *Service) signIn(ctx context.Context, clientID string, u models.User, offline bool) (*Session, error) {
	token, err := s.tokens.Issue(clientID, u)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	if err := s.store.SetUser(ctx, clientID, u); err != nil {
		return nil, err
	}
	s.logger.Info("user signed in",
		zap.String("client_id", clientID), zap.String("username", u.Username), zap.Bool("offline", offline))
	return &Session{Token: token, User: u, Offline: offline}, nil
}

// Register creates an account. When the backend is unavailable the account is kept in
// the client's cache with a bcrypt hash of the password. The new user is not signed in.
func (s *Service) Register(ctx context.Context, clientID string, req RegisterRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	role, _ := models.ParseRole(req.Role)

	u, err := s.api.Register(ctx, backend.RegisterRequest{
		Username:      req.Username,
		Email:         req.Email,
		Password:      req.Password,
		Role:          role,
		ContactNumber: req.ContactNumber,
	})
	if err == nil {
		return u, nil
	}
	if !degraded(err) {
		return nil, err
	}

	metrics.BackendFallbacks.WithLabelValues("register").Inc()
	hash, herr := hashPassword(req.Password)
	if herr != nil {
		return nil, fmt.Errorf("hash password: %w", herr)
	}
	// Duplicates are checked against this client's cache only; the backend may already
	// hold the same username once it is reachable again.
	local := models.CachedUser{
		User: models.User{
			ID:            models.ID("local-" + uuid.New().String()),
			Username:      req.Username,
			Email:         req.Email,
			Role:          role,
			ContactNumber: req.ContactNumber,
		},
		PasswordHash: hash,
	}
	if err := s.cache.AddRegisteredUser(ctx, clientID, local); err != nil {
		return nil, err
	}
	s.logger.Info("account kept in cache", zap.String("client_id", clientID), zap.String("username", req.Username))
	return &local.User, nil
}

// Logout signs the client out. Local registrations stay on the client.
func (s *Service) Logout(ctx context.Context, clientID string) error {
	return s.store.ClearUser(ctx, clientID)
}

// Me returns the user signed in on clientID.
func (s *Service) Me(ctx context.Context, clientID string) (*models.User, error) {
	u := s.store.User(ctx, clientID)
	if u == nil {
		return nil, ErrNotSignedIn
	}
	return u, nil
}

// UpdateProfile changes the signed-in user's username and/or password and re-issues the
// session token for the new username.
func (s *Service) UpdateProfile(ctx context.Context, clientID string, req ProfileRequest) (*Session, error) {
	current, err := s.Me(ctx, clientID)
	if err != nil {
		return nil, err
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.Username == "" && req.Password == "" {
		return nil, apperr.New(apperr.Invalid, "Nothing to update")
	}

	updated, err := s.api.UpdateUser(ctx, current.ID, backend.UpdateUserRequest{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}
	u := *current
	if updated.Username != "" {
		u.Username = updated.Username
	}
	if updated.Email != "" {
		u.Email = updated.Email
	}
	return s.signIn(ctx, clientID, u, false)
}

// ForgotPassword asks the backend to send a reset link to email.
func (s *Service) ForgotPassword(ctx context.Context, email string) (*backend.ResetLink, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, validation.FieldErrors{"email": "Valid email is required"}
	}
	return s.api.SendResetLink(ctx, email)
}

// ResetPassword sets a new password with a reset token.
func (s *Service) ResetPassword(ctx context.Context, token, password string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", apperr.New(apperr.Invalid, "Reset token is required")
	}
	if len(password) < 6 {
		return "", validation.FieldErrors{"password": "Password must be at least 6 characters"}
	}
	return s.api.ResetPassword(ctx, token, password)
}
