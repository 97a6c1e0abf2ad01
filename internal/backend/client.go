// Package backend wraps the REST backend that owns users, events, registrations and
// categories. Every method returns either a value or an *Error carrying a message that
// can be shown to the user as-is.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Error is a failed backend call.
type Error struct {
	Op      string
	Status  int // 0 when the request never got a response
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Unreachable reports whether the request failed before the backend answered.
func (e *Error) Unreachable() bool { return e.Status == 0 }

// Client calls the backend REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// New creates a backend client. baseURL includes the /api prefix.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger.With(zap.String("component", "backend_client")),
	}
}

// envelope is the status wrapper some endpoints return alongside their payload.
type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e envelope) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	raw, err := c.send(ctx, op, method, path, in)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Op: op, Status: http.StatusOK, Message: "Unexpected response from server", Err: fmt.Errorf("decode %s: %w", op, err)}
	}
	return nil
}

// send performs the request and returns the raw body of a successful response.
func (c *Client) send(ctx context.Context, op, method, path string, in any) ([]byte, error) {
	var body io.Reader = http.NoBody
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, &Error{Op: op, Message: "Invalid request", Err: fmt.Errorf("encode %s: %w", op, err)}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &Error{Op: op, Message: "Invalid request", Err: fmt.Errorf("build %s: %w", op, err)}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("backend unreachable", zap.String("op", op), zap.Error(err))
		return nil, &Error{Op: op, Message: "Unable to reach the server. Please try again.", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{Op: op, Status: resp.StatusCode, Message: "Unable to read server response", Err: err}
	}

	var env envelope
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		_ = json.Unmarshal(trimmed, &env)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.text()
		if msg == "" {
			msg = fmt.Sprintf("Request failed with status %d", resp.StatusCode)
		}
		return nil, &Error{Op: op, Status: resp.StatusCode, Message: msg}
	}
	if env.Success != nil && !*env.Success {
		msg := env.text()
		if msg == "" {
			msg = "Request was rejected by the server"
		}
		return nil, &Error{Op: op, Status: resp.StatusCode, Message: msg}
	}
	return raw, nil
}

func seg(s string) string { return url.PathEscape(s) }
