package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleGetUser returns the caller's own record. The id in the path must
// match the authenticated subject; looking up other users is forbidden.
func (s *Server) handleGetUser(c *gin.Context) {
	identity := identityFrom(c)
	if c.Param("id") != identity.SubjectID {
		sendError(c, http.StatusForbidden, "Forbidden")
		return
	}

	user, err := s.users.FindByID(c.Request.Context(), identity.SubjectID)
	if err != nil {
		s.sendInternalError(c, err)
		return
	}
	if user == nil {
		sendError(c, http.StatusNotFound, "User not found")
		return
	}

	sendSuccess(c, http.StatusOK, "", user)
}
