// Package httpapi exposes the service over HTTP: a gin router, the
// bearer-token request gate, and handlers for auth, projects, tasks,
// comments, and notifications.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maurya-kamminana/taskmaster/internal/auth"
	"github.com/maurya-kamminana/taskmaster/internal/session"
)

// Error codes returned alongside 401 so clients can tell a dead access
// token (refresh it) from a rejected one (log in again).
const (
	CodeTokenExpired = "token_expired"
	CodeTokenInvalid = "token_invalid"
)

type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type successBody struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func sendError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorBody{Status: "error", Message: message})
}

func sendErrorCode(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorBody{Status: "error", Message: message, Code: code})
}

func sendSuccess(c *gin.Context, status int, message string, data any) {
	c.JSON(status, successBody{Status: "success", Message: message, Data: data})
}

// sendAuthError maps the auth failure taxonomy onto HTTP statuses. Raw
// lower-level errors never reach the client.
func (s *Server) sendAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrValidation):
		sendError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrUserExists):
		sendError(c, http.StatusBadRequest, "User already exists")
	case errors.Is(err, auth.ErrInvalidCredentials):
		sendError(c, http.StatusBadRequest, "Invalid credentials")
	case errors.Is(err, auth.ErrTokenExpired):
		sendErrorCode(c, http.StatusUnauthorized, CodeTokenExpired, "Token expired")
	case errors.Is(err, auth.ErrTokenInvalid):
		sendErrorCode(c, http.StatusUnauthorized, CodeTokenInvalid, "Invalid token")
	case errors.Is(err, session.ErrStoreUnavailable):
		s.log.WithError(err).Error("revocation store unreachable")
		sendError(c, http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		s.log.WithError(err).Error("unhandled auth error")
		sendError(c, http.StatusInternalServerError, "Internal server error")
	}
}

func (s *Server) sendInternalError(c *gin.Context, err error) {
	s.log.WithError(err).Error("request failed")
	sendError(c, http.StatusInternalServerError, "Internal server error")
}
