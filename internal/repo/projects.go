package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/maurya-kamminana/taskmaster/internal/models"
)

// ProjectRepository persists projects and their role assignments.
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository binds a repository to db.
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts a project and, in the same transaction, a Manager role
// row for its creator.
func (r *ProjectRepository) Create(ctx context.Context, project models.Project) (models.Project, error) {
	project.ID = uuid.NewString()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Project{}, fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO projects (id, name, description, manager_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, project.ID, project.Name, project.Description, project.ManagerID).Scan(&project.CreatedAt)
	if err != nil {
		return models.Project{}, fmt.Errorf("inserting project: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO roles (id, user_id, project_id, role)
		VALUES ($1, $2, $3, $4)
	`, uuid.NewString(), project.ManagerID, project.ID, models.RoleManager)
	if err != nil {
		return models.Project{}, fmt.Errorf("inserting manager role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Project{}, fmt.Errorf("committing project: %w", err)
	}
	return project, nil
}

// ListForUser returns every project in which the user holds a role.
func (r *ProjectRepository) ListForUser(ctx context.Context, userID string) ([]models.Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.description, p.manager_id, p.created_at
		FROM projects p
		JOIN roles r ON r.project_id = p.id
		WHERE r.user_id = $1
		ORDER BY p.created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.ManagerID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// FindByID returns a project or (nil, nil).
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*models.Project, error) {
	var p models.Project
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, manager_id, created_at
		FROM projects WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Description, &p.ManagerID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying project: %w", err)
	}
	return &p, nil
}

// Update overwrites name and description.
func (r *ProjectRepository) Update(ctx context.Context, project models.Project) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE projects SET name = $2, description = $3 WHERE id = $1
	`, project.ID, project.Name, project.Description)
	if err != nil {
		return fmt.Errorf("updating project: %w", err)
	}
	return nil
}

// Delete removes a project and reports whether a row was deleted.
func (r *ProjectRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("deleting project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindRole returns the role row for a user within a project, or (nil, nil).
func (r *ProjectRepository) FindRole(ctx context.Context, userID, projectID string) (*models.Role, error) {
	var role models.Role
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, project_id, role
		FROM roles WHERE user_id = $1 AND project_id = $2
	`, userID, projectID).Scan(&role.ID, &role.UserID, &role.ProjectID, &role.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying role: %w", err)
	}
	return &role, nil
}

// AddRole grants a role within a project.
func (r *ProjectRepository) AddRole(ctx context.Context, userID, projectID string, role models.ProjectRole) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO roles (id, user_id, project_id, role)
		VALUES ($1, $2, $3, $4)
	`, uuid.NewString(), userID, projectID, role)
	if err != nil {
		return fmt.Errorf("inserting role: %w", err)
	}
	return nil
}

// RemoveRole revokes a user's role and reports whether one existed.
func (r *ProjectRepository) RemoveRole(ctx context.Context, userID, projectID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM roles WHERE user_id = $1 AND project_id = $2
	`, userID, projectID)
	if err != nil {
		return false, fmt.Errorf("deleting role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListMembers returns the project's role rows joined with user summaries.
func (r *ProjectRepository) ListMembers(ctx context.Context, projectID string) ([]models.ProjectMember, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.role, u.id, u.username, u.email
		FROM roles r
		JOIN users u ON u.id = r.user_id
		WHERE r.project_id = $1
		ORDER BY u.username
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	members := []models.ProjectMember{}
	for rows.Next() {
		var m models.ProjectMember
		if err := rows.Scan(&m.Role, &m.User.ID, &m.User.Username, &m.User.Email); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
