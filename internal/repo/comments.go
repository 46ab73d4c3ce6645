package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/maurya-kamminana/taskmaster/internal/models"
)

// CommentRepository persists task comments.
type CommentRepository struct {
	db *sql.DB
}

// NewCommentRepository binds a repository to db.
func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create inserts a comment and returns it with its generated id.
func (r *CommentRepository) Create(ctx context.Context, comment models.Comment) (models.Comment, error) {
	comment.ID = uuid.NewString()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO comments (id, task_id, user_id, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, comment.ID, comment.TaskID, comment.UserID, comment.Comment).Scan(&comment.CreatedAt)
	if err != nil {
		return models.Comment{}, fmt.Errorf("inserting comment: %w", err)
	}
	return comment, nil
}

// ListForTask returns the task's comments, oldest first, with author summaries.
func (r *CommentRepository) ListForTask(ctx context.Context, taskID string) ([]models.Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.task_id, c.user_id, c.comment, c.created_at, u.id, u.username, u.email
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.task_id = $1
		ORDER BY c.created_at
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		var author models.UserSummary
		err := rows.Scan(&c.ID, &c.TaskID, &c.UserID, &c.Comment, &c.CreatedAt,
			&author.ID, &author.Username, &author.Email)
		if err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		c.Author = &author
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
