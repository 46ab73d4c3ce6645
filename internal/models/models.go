// Package models holds the fixed-field domain structs shared by the
// repositories, services, and HTTP layer.
package models

import "time"

// TaskStatus enumerates the task workflow states.
type TaskStatus string

const (
	StatusToDo       TaskStatus = "To Do"
	StatusInProgress TaskStatus = "In Progress"
	StatusDone       TaskStatus = "Done"
)

// Valid reports whether s is one of the known workflow states.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// TaskPriority enumerates task priorities.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "Low"
	PriorityMedium TaskPriority = "Medium"
	PriorityHigh   TaskPriority = "High"
)

// Valid reports whether p is one of the known priorities.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ProjectRole is the role a user holds within a single project.
type ProjectRole string

const (
	RoleManager     ProjectRole = "Manager"
	RoleContributor ProjectRole = "Contributor"
	RoleViewer      ProjectRole = "Viewer"
)

// Valid reports whether r is one of the roles the schema accepts.
func (r ProjectRole) Valid() bool {
	switch r {
	case RoleManager, RoleContributor, RoleViewer:
		return true
	}
	return false
}

// CanEditTasks reports whether the role may create, update, or delete tasks.
func (r ProjectRole) CanEditTasks() bool {
	return r == RoleManager || r == RoleContributor
}

// NotificationType classifies a notification row.
type NotificationType string

const (
	NotifyUserAdded    NotificationType = "project_user_added"
	NotifyUserRemoved  NotificationType = "project_user_removed"
	NotifyTaskUpdated  NotificationType = "task_updated"
	NotifyCommentAdded NotificationType = "comment_added"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotifyUserAdded, NotifyUserRemoved, NotifyTaskUpdated, NotifyCommentAdded:
		return true
	}
	return false
}

// User is the account record. The password hash is never serialized.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserSummary is the subset of user fields embedded in project and task
// listings.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Project is a container for tasks and role assignments. ManagerID is the
// creator and cannot be removed from the project.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ManagerID   string    `json:"manager_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Task belongs to exactly one project. AssigneeID is nil for unassigned
// tasks.
type Task struct {
	ID          string       `json:"id"`
	ProjectID   string       `json:"project_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	AssigneeID  *string      `json:"assignee_id"`
	CreatedAt   time.Time    `json:"created_at"`

	// Assignee is populated by listing queries that join users.
	Assignee *UserSummary `json:"assignee,omitempty"`
}

// Role links a user to a project with a project-scoped role.
type Role struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	ProjectID string      `json:"project_id"`
	Role      ProjectRole `json:"role"`
}

// ProjectMember is a role row joined with the member's user summary.
type ProjectMember struct {
	Role ProjectRole `json:"role"`
	User UserSummary `json:"user"`
}

// Comment is attached to a task.
type Comment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	UserID    string    `json:"user_id"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`

	// Author is populated by listing queries that join users.
	Author *UserSummary `json:"author,omitempty"`
}

// Notification is a per-user inbox entry produced by the notifier worker.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}
