package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/maurya-kamminana/taskmaster/internal/models"
)

// TaskRepository persists tasks.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository binds a repository to db.
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a task and returns it with its generated id.
func (r *TaskRepository) Create(ctx context.Context, task models.Task) (models.Task, error) {
	task.ID = uuid.NewString()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO tasks (id, project_id, title, description, status, priority, assignee_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, task.ID, task.ProjectID, task.Title, task.Description, task.Status, task.Priority, task.AssigneeID).
		Scan(&task.CreatedAt)
	if err != nil {
		return models.Task{}, fmt.Errorf("inserting task: %w", err)
	}
	return task, nil
}

// FindByID returns a task or (nil, nil).
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	var t models.Task
	err := r.db.QueryRowContext(ctx, `
		SELECT id, project_id, title, description, status, priority, assignee_id, created_at
		FROM tasks WHERE id = $1
	`, id).Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.AssigneeID, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying task: %w", err)
	}
	return &t, nil
}

// ListForProject returns the project's tasks with assignee summaries.
func (r *TaskRepository) ListForProject(ctx context.Context, projectID string) ([]models.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.project_id, t.title, t.description, t.status, t.priority,
		       t.assignee_id, t.created_at, u.id, u.username, u.email
		FROM tasks t
		LEFT JOIN users u ON u.id = t.assignee_id
		WHERE t.project_id = $1
		ORDER BY t.created_at
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var t models.Task
		var uID, uName, uEmail sql.NullString
		err := rows.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status, &t.Priority,
			&t.AssigneeID, &t.CreatedAt, &uID, &uName, &uEmail)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		if uID.Valid {
			t.Assignee = &models.UserSummary{ID: uID.String, Username: uName.String, Email: uEmail.String}
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Update overwrites the mutable task fields.
func (r *TaskRepository) Update(ctx context.Context, task models.Task) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = $2, description = $3, status = $4, priority = $5, assignee_id = $6
		WHERE id = $1
	`, task.ID, task.Title, task.Description, task.Status, task.Priority, task.AssigneeID)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	return nil
}

// Delete removes a task and reports whether a row was deleted.
func (r *TaskRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("deleting task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
