package backend

import (
	"context"
	"net/http"
)

// ResetLink is the answer to a password reset request.
type ResetLink struct {
	Message   string `json:"message"`
	ResetLink string `json:"resetLink,omitempty"`
}

// SendResetLink asks the backend to send a password reset link to email.
func (c *Client) SendResetLink(ctx context.Context, email string) (*ResetLink, error) {
	var out ResetLink
	if err := c.do(ctx, "send_reset_link", http.MethodPost, "/forgot-password/send-reset-link", map[string]string{"email": email}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResetPassword sets a new password using a reset token.
func (c *Client) ResetPassword(ctx context.Context, token, password string) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	body := map[string]string{"token": token, "password": password}
	if err := c.do(ctx, "reset_password", http.MethodPost, "/forgot-password/reset-password", body, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}
