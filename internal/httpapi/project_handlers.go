package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/maurya-kamminana/taskmaster/internal/models"
	"github.com/maurya-kamminana/taskmaster/internal/notify"
)

// memberAccess loads a project and the caller's role in it. It answers
// 404 for an unknown project and 403 for a non-member, and reports
// whether the handler may proceed.
func (s *Server) memberAccess(c *gin.Context, projectID string) (*models.Project, *models.Role, bool) {
	project, err := s.projects.FindByID(c.Request.Context(), projectID)
	if err != nil {
		s.sendInternalError(c, err)
		return nil, nil, false
	}
	if project == nil {
		sendError(c, http.StatusNotFound, "Project not found")
		return nil, nil, false
	}

	role, err := s.projects.FindRole(c.Request.Context(), identityFrom(c).SubjectID, projectID)
	if err != nil {
		s.sendInternalError(c, err)
		return nil, nil, false
	}
	if role == nil {
		sendError(c, http.StatusForbidden, "Not a member of this project")
		return nil, nil, false
	}
	return project, role, true
}

func (s *Server) handleListProjects(c *gin.Context) {
	projects, err := s.projects.ListForUser(c.Request.Context(), identityFrom(c).SubjectID)
	if err != nil {
		s.sendInternalError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "", projects)
}

func (s *Server) handleCreateProject(c *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		sendError(c, http.StatusBadRequest, "Project name is required")
		return
	}

	project, err := s.projects.Create(c.Request.Context(), models.Project{
		Name:        req.Name,
		Description: req.Description,
		ManagerID:   identityFrom(c).SubjectID,
	})
	if err != nil {
		s.sendInternalError(c, err)
		return
	}
	sendSuccess(c, http.StatusCreated, "Project created", project)
}

func (s *Server) handleGetProject(c *gin.Context) {
	project, _, ok := s.memberAccess(c, c.Param("id"))
	if !ok {
		return
	}
	sendSuccess(c, http.StatusOK, "", project)
}

// handleUpdateProject applies a partial update. Only the creator may
// rename or redescribe a project.
func (s *Server) handleUpdateProject(c *gin.Context) {
	project, _, ok := s.memberAccess(c, c.Param("id"))
	if !ok {
		return
	}
	if project.ManagerID != identityFrom(c).SubjectID {
		sendError(c, http.StatusForbidden, "Only the project creator may update it")
		return
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			sendError(c, http.StatusBadRequest, "Project name cannot be empty")
			return
		}
		project.Name = name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}

	if err := s.projects.Update(c.Request.Context(), *project); err != nil {
		s.sendInternalError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "Project updated", project)
}

func (s *Server) handleDeleteProject(c *gin.Context) {
	project, _, ok := s.memberAccess(c, c.Param("id"))
	if !ok {
		return
	}
	if project.ManagerID != identityFrom(c).SubjectID {
		sendError(c, http.StatusForbidden, "Only the project creator may delete it")
		return
	}

	if _, err := s.projects.Delete(c.Request.Context(), project.ID); err != nil {
		s.sendInternalError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "Project deleted", nil)
}

func (s *Server) handleListProjectUsers(c *gin.Context) {
	project, _, ok := s.memberAccess(c, c.Param("id"))
	if !ok {
		return
	}
	members, err := s.projects.ListMembers(c.Request.Context(), project.ID)
	if err != nil {
		s.sendInternalError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "", members)
}

func (s *Server) handleAddProjectUser(c *gin.Context) {
	project, role, ok := s.memberAccess(c, c.Param("id"))
	if !ok {
		return
	}
	if role.Role != models.RoleManager {
		sendError(c, http.StatusForbidden, "Only a Manager may add users")
		return
	}

	var req struct {
		UserID string             `json:"user_id"`
		Role   models.ProjectRole `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		sendError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if !req.Role.Valid() {
		sendError(c, http.StatusBadRequest, "Role must be Manager, Contributor, or Viewer")
		return
	}

	target, err := s.users.FindByID(c.Request.Context(), req.UserID)
	if err != nil {
		s.sendInternalError(c, err)
		return
	}
	if target == nil {
		sendError(c, http.StatusNotFound, "User not found")
		return
	}

	existing, err := s.projects.FindRole(c.Request.Context(), req.UserID, project.ID)
	if err != nil {
		s.sendInternalError(c, err)
		return
	}
	if existing != nil {
		sendError(c, http.StatusBadRequest, "User already has a role in this project")
		return
	}

	if err := s.projects.AddRole(c.Request.Context(), req.UserID, project.ID, req.Role); err != nil {
		s.sendInternalError(c, err)
		return
	}

	s.publisher.Publish(c.Request.Context(), notify.TopicUserAdded, notify.Event{
		ProjectID:    project.ID,
		ProjectName:  project.Name,
		ActorID:      identityFrom(c).SubjectID,
		Message:      fmt.Sprintf("You have been added to project %s as %s", project.Name, req.Role),
		RecipientIDs: []string{req.UserID},
	})
	sendSuccess(c, http.StatusOK, "User added to project", nil)
}

func (s *Server) handleRemoveProjectUser(c *gin.Context) {
	project, role, ok := s.memberAccess(c, c.Param("id"))
	if !ok {
		return
	}
	if role.Role != models.RoleManager {
		sendError(c, http.StatusForbidden, "Only a Manager may remove users")
		return
	}

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		sendError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.UserID == project.ManagerID {
		sendError(c, http.StatusBadRequest, "The project creator cannot be removed")
		return
	}

	removed, err := s.projects.RemoveRole(c.Request.Context(), req.UserID, project.ID)
	if err != nil {
		s.sendInternalError(c, err)
		return
	}
	if !removed {
		sendError(c, http.StatusNotFound, "User has no role in this project")
		return
	}

	s.publisher.Publish(c.Request.Context(), notify.TopicUserRemoved, notify.Event{
		ProjectID:    project.ID,
		ProjectName:  project.Name,
		ActorID:      identityFrom(c).SubjectID,
		Message:      fmt.Sprintf("You have been removed from project %s", project.Name),
		RecipientIDs: []string{req.UserID},
	})
	sendSuccess(c, http.StatusOK, "User removed from project", nil)
}
