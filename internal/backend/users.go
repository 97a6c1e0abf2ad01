package backend

import (
	"context"
	"net/http"

	"github.com/neighbourhood-events/portal/internal/models"
)

// RegisterRequest is the body for POST /users/register.
type RegisterRequest struct {
	Username      string      `json:"username"`
	Email         string      `json:"email"`
	Password      string      `json:"password"`
	Role          models.Role `json:"role"`
	ContactNumber string      `json:"contactNumber,omitempty"`
}

// UpdateUserRequest is the body for PUT /users/{id}.
type UpdateUserRequest struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, "register", http.MethodPost, "/users/register", req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login authenticates username/password and returns the account.
func (c *Client) Login(ctx context.Context, username, password string) (*models.User, error) {
	body := map[string]string{"username": username, "password": password}
	var u models.User
	if err := c.do(ctx, "login", http.MethodPost, "/users/login", body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns every account.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var list []models.User
	if err := c.do(ctx, "list_users", http.MethodGet, "/users", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ListUsersByRole returns the accounts holding role.
func (c *Client) ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	var list []models.User
	if err := c.do(ctx, "list_users_by_role", http.MethodGet, "/users/role/"+seg(string(role)), nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateUser changes the username and/or password of account id.
func (c *Client) UpdateUser(ctx context.Context, id models.ID, req UpdateUserRequest) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, "update_user", http.MethodPut, "/users/"+seg(id.String()), req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
