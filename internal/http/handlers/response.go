// Package handlers implements the HTTP endpoints of the public API.
//
// This file holds the shared response utilities. Every error leaves the API
// as the same envelope:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "resource not found"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-newsletter-backend/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors.
	RequestID string `json:"request_id,omitempty"`
	// Stable, machine-readable code (see errors.go constants).
	Code string `json:"code"`
	// Human-readable message, safe to show to users.
	Message string `json:"message"`
}

// fail aborts the request with the standard envelope. Server-side errors
// (>= 500) are additionally logged with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail exposes fail to the router for NoRoute/NoMethod fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a JSON success response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
