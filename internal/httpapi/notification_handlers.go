package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/maurya-kamminana/taskmaster/internal/models"
)

// Notification handlers operate strictly on the caller's own rows; a
// notification owned by someone else is indistinguishable from a missing
// one.

func (s *Server) handleListNotifications(c *gin.Context) {
	notifications, err := s.notifications.ListForUser(c.Request.Context(), identityFrom(c).SubjectID)
	if err != nil {
		s.sendInternalError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "", notifications)
}

func (s *Server) handleCreateNotification(c *gin.Context) {
	var req struct {
		Type    models.NotificationType `json:"type"`
		Message string                  `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if !req.Type.Valid() {
		sendError(c, http.StatusBadRequest, "Unknown notification type")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		sendError(c, http.StatusBadRequest, "Message is required")
		return
	}

	n, err := s.notifications.Create(c.Request.Context(), models.Notification{
		UserID:  identityFrom(c).SubjectID,
		Type:    req.Type,
		Message: req.Message,
	})
	if err != nil {
		s.sendInternalError(c, err)
		return
	}
	sendSuccess(c, http.StatusCreated, "Notification created", n)
}

func (s *Server) handleGetNotification(c *gin.Context) {
	n, err := s.notifications.FindByID(c.Request.Context(), c.Param("id"), identityFrom(c).SubjectID)
	if err != nil {
		s.sendInternalError(c, err)
		return
	}
	if n == nil {
		sendError(c, http.StatusNotFound, "Notification not found")
		return
	}
	sendSuccess(c, http.StatusOK, "", n)
}

func (s *Server) handleMarkNotificationRead(c *gin.Context) {
	ok, err := s.notifications.MarkRead(c.Request.Context(), c.Param("id"), identityFrom(c).SubjectID)
	if err != nil {
		s.sendInternalError(c, err)
		return
	}
	if !ok {
		sendError(c, http.StatusNotFound, "Notification not found")
		return
	}
	sendSuccess(c, http.StatusOK, "Notification marked read", nil)
}

func (s *Server) handleMarkAllNotificationsRead(c *gin.Context) {
	updated, err := s.notifications.MarkAllRead(c.Request.Context(), identityFrom(c).SubjectID)
	if err != nil {
		s.sendInternalError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "Notifications marked read", gin.H{"updated": updated})
}

func (s *Server) handleDeleteNotification(c *gin.Context) {
	ok, err := s.notifications.Delete(c.Request.Context(), c.Param("id"), identityFrom(c).SubjectID)
	if err != nil {
		s.sendInternalError(c, err)
		return
	}
	if !ok {
		sendError(c, http.StatusNotFound, "Notification not found")
		return
	}
	sendSuccess(c, http.StatusOK, "Notification deleted", nil)
}

func (s *Server) handleDeleteAllNotifications(c *gin.Context) {
	deleted, err := s.notifications.DeleteAll(c.Request.Context(), identityFrom(c).SubjectID)
	if err != nil {
		s.sendInternalError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "Notifications deleted", gin.H{"deleted": deleted})
}
