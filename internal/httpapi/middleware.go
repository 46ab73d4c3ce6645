package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/maurya-kamminana/taskmaster/internal/token"
)

const identityKey = "taskmaster.identity"

// requireAuth is the per-request gate on every protected route. It
// extracts the bearer access token, verifies it, and attaches the
// resolved identity to the request context. It never touches the
// revocation store; access tokens live and die by signature and expiry.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			sendErrorCode(c, http.StatusUnauthorized, CodeTokenInvalid, "Missing bearer token")
			return
		}

		identity, err := s.codec.VerifyAccess(raw)
		if err != nil {
			if errors.Is(err, token.ErrExpired) {
				sendErrorCode(c, http.StatusUnauthorized, CodeTokenExpired, "Token expired")
				return
			}
			sendErrorCode(c, http.StatusUnauthorized, CodeTokenInvalid, "Invalid token")
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// identityFrom returns the identity attached by requireAuth. Calling it
// from an unprotected route is a programming error.
func identityFrom(c *gin.Context) token.Identity {
	return c.MustGet(identityKey).(token.Identity)
}
