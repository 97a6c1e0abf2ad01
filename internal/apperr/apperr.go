// Package apperr carries domain-rule failures to the HTTP layer with a user-facing message.
package apperr

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/neighbourhood-events/portal/internal/backend"
	"github.com/neighbourhood-events/portal/internal/validation"
	"github.com/neighbourhood-events/portal/pkg/response"
)

// Kind classifies a domain error.
type Kind int

const (
	Invalid Kind = iota
	Unauthorized
	Forbidden
	NotFound
	Conflict
	Unavailable
)

// Error is a domain-rule violation detected before (or instead of) a backend call.
type Error struct {
	Kind    Kind
	Message string
}

// New creates a domain error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string { return e.Message }

// Respond writes err using the matching response helper.
func Respond(c *gin.Context, err error) {
	var fields validation.FieldErrors
	if errors.As(err, &fields) {
		response.ValidationFailed(c, "Please correct the highlighted fields", fields)
		return
	}

	var de *Error
	if errors.As(err, &de) {
		switch de.Kind {
		case Unauthorized:
			response.Unauthorized(c, de.Message)
		case Forbidden:
			response.Forbidden(c, de.Message)
		case NotFound:
			response.NotFound(c, de.Message)
		case Conflict:
			response.Conflict(c, de.Message)
		case Unavailable:
			response.ServiceUnavailable(c, de.Message)
		default:
			response.BadRequest(c, de.Message)
		}
		return
	}

	var be *backend.Error
	if errors.As(err, &be) {
		switch {
		case be.Unreachable() || be.Status >= 500:
			response.BadGateway(c, be.Message)
		case be.Status == 401:
			response.Unauthorized(c, be.Message)
		case be.Status == 404:
			response.NotFound(c, be.Message)
		case be.Status == 409:
			response.Conflict(c, be.Message)
		default:
			response.BadRequest(c, be.Message)
		}
		return
	}

	response.Internal(c, "Something went wrong. Please try again.")
}
