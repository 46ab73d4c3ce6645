package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/maurya-kamminana/taskmaster/internal/models"
	"github.com/maurya-kamminana/taskmaster/internal/notify"
)

type taskRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	AssigneeID  *string             `json:"assignee_id"`
}

// validateTask normalizes and checks the shared task fields. An empty
// status or priority falls back to the defaults; an assignee must hold a
// role in the project.
func (s *Server) validateTask(c *gin.Context, projectID string, req *taskRequest) bool {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		sendError(c, http.StatusBadRequest, "Task title is required")
		return false
	}
	if req.Status == "" {
		req.Status = models.StatusToDo
	}
	if !req.Status.Valid() {
		sendError(c, http.StatusBadRequest, "Status must be To Do, In Progress, or Done")
		return false
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if !req.Priority.Valid() {
		sendError(c, http.StatusBadRequest, "Priority must be Low, Medium, or High")
		return false
	}
	if req.AssigneeID != nil {
		role, err := s.projects.FindRole(c.Request.Context(), *req.AssigneeID, projectID)
		if err != nil {
			s.sendInternalError(c, err)
			return false
		}
		if role == nil {
			sendError(c, http.StatusBadRequest, "Assignee must be a project member")
			return false
		}
	}
	return true
}

func (s *Server) handleCreateTask(c *gin.Context) {
	project, role, ok := s.memberAccess(c, c.Param("id"))
	if !ok {
		return
	}
	if !role.Role.CanEditTasks() {
		sendError(c, http.StatusForbidden, "Viewers cannot create tasks")
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if !s.validateTask(c, project.ID, &req) {
		return
	}

	task, err := s.tasks.Create(c.Request.Context(), models.Task{
		ProjectID:   project.ID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
	})
	if err != nil {
		s.sendInternalError(c, err)
		return
	}
	sendSuccess(c, http.StatusCreated, "Task created", task)
}

func (s *Server) handleListProjectTasks(c *gin.Context) {
	project, _, ok := s.memberAccess(c, c.Param("id"))
	if !ok {
		return
	}
	tasks, err := s.tasks.ListForProject(c.Request.Context(), project.ID)
	if err != nil {
		s.sendInternalError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "", tasks)
}

// taskAccess loads a task and gates on membership in its owning project.
func (s *Server) taskAccess(c *gin.Context) (*models.Task, *models.Project, *models.Role, bool) {
	task, err := s.tasks.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.sendInternalError(c, err)
		return nil, nil, nil, false
	}
	if task == nil {
		sendError(c, http.StatusNotFound, "Task not found")
		return nil, nil, nil, false
	}
	project, role, ok := s.memberAccess(c, task.ProjectID)
	if !ok {
		return nil, nil, nil, false
	}
	return task, project, role, true
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, _, _, ok := s.taskAccess(c)
	if !ok {
		return
	}
	sendSuccess(c, http.StatusOK, "", task)
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	task, project, role, ok := s.taskAccess(c)
	if !ok {
		return
	}
	if !role.Role.CanEditTasks() {
		sendError(c, http.StatusForbidden, "Viewers cannot update tasks")
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if !s.validateTask(c, task.ProjectID, &req) {
		return
	}

	task.Title = req.Title
	task.Description = req.Description
	task.Status = req.Status
	task.Priority = req.Priority
	task.AssigneeID = req.AssigneeID
	if err := s.tasks.Update(c.Request.Context(), *task); err != nil {
		s.sendInternalError(c, err)
		return
	}

	actor := identityFrom(c).SubjectID
	if task.AssigneeID != nil && *task.AssigneeID != actor {
		s.publisher.Publish(c.Request.Context(), notify.TopicTaskUpdated, notify.Event{
			ProjectID:    project.ID,
			ProjectName:  project.Name,
			ActorID:      actor,
			TaskID:       task.ID,
			TaskTitle:    task.Title,
			Message:      fmt.Sprintf("Task %s was updated (%s)", task.Title, task.Status),
			RecipientIDs: []string{*task.AssigneeID},
		})
	}
	sendSuccess(c, http.StatusOK, "Task updated", task)
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	task, _, role, ok := s.taskAccess(c)
	if !ok {
		return
	}
	if !role.Role.CanEditTasks() {
		sendError(c, http.StatusForbidden, "Viewers cannot delete tasks")
		return
	}
	if _, err := s.tasks.Delete(c.Request.Context(), task.ID); err != nil {
		s.sendInternalError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "Task deleted", nil)
}

func (s *Server) handleListComments(c *gin.Context) {
	task, _, _, ok := s.taskAccess(c)
	if !ok {
		return
	}
	comments, err := s.comments.ListForTask(c.Request.Context(), task.ID)
	if err != nil {
		s.sendInternalError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "", comments)
}

func (s *Server) handleCreateComment(c *gin.Context) {
	task, project, _, ok := s.taskAccess(c)
	if !ok {
		return
	}

	var req struct {
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}
	req.Comment = strings.TrimSpace(req.Comment)
	if req.Comment == "" {
		sendError(c, http.StatusBadRequest, "Comment is required")
		return
	}
	if len(req.Comment) > 500 {
		sendError(c, http.StatusBadRequest, "Comment must be at most 500 characters")
		return
	}

	actor := identityFrom(c).SubjectID
	comment, err := s.comments.Create(c.Request.Context(), models.Comment{
		TaskID:  task.ID,
		UserID:  actor,
		Comment: req.Comment,
	})
	if err != nil {
		s.sendInternalError(c, err)
		return
	}

	if task.AssigneeID != nil && *task.AssigneeID != actor {
		s.publisher.Publish(c.Request.Context(), notify.TopicCommentAdded, notify.Event{
			ProjectID:    project.ID,
			ProjectName:  project.Name,
			ActorID:      actor,
			TaskID:       task.ID,
			TaskTitle:    task.Title,
			Message:      fmt.Sprintf("New comment on task %s", task.Title),
			RecipientIDs: []string{*task.AssigneeID},
		})
	}
	sendSuccess(c, http.StatusCreated, "Comment added", comment)
}
