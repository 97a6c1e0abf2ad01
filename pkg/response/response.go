// Package response writes the JSON envelope every API route answers with.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the standard API response envelope. Fields carries per-field messages for
// form validation failures.
type Body struct {
	Success bool              `json:"success"`
	Data    interface{}       `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Status sends an error body with an arbitrary status code.
func Status(c *gin.Context, code int, err string) {
	c.JSON(code, Body{Success: false, Error: err})
}

// Fail sends an error body that also carries data, e.g. where to go instead.
func Fail(c *gin.Context, code int, err string, data interface{}) {
	c.JSON(code, Body{Success: false, Error: err, Data: data})
}

// ValidationFailed sends 400 with one message per offending field.
func ValidationFailed(c *gin.Context, err string, fields map[string]string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: err, Fields: fields})
}

func BadRequest(c *gin.Context, err string)   { Status(c, http.StatusBadRequest, err) }
func Unauthorized(c *gin.Context, err string) { Status(c, http.StatusUnauthorized, err) }
func Forbidden(c *gin.Context, err string)    { Status(c, http.StatusForbidden, err) }
func NotFound(c *gin.Context, err string)     { Status(c, http.StatusNotFound, err) }
func Conflict(c *gin.Context, err string)     { Status(c, http.StatusConflict, err) }

// BadGateway is used when the backend could not be reached or failed.
func BadGateway(c *gin.Context, err string) { Status(c, http.StatusBadGateway, err) }

func ServiceUnavailable(c *gin.Context, err string) {
	Status(c, http.StatusServiceUnavailable, err)
}

func Internal(c *gin.Context, err string) { Status(c, http.StatusInternalServerError, err) }
