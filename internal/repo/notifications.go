package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/maurya-kamminana/taskmaster/internal/models"
)

// NotificationRepository persists per-user notifications. Every read and
// mutation is scoped to the owning user so one user can never see or touch
// another's inbox.
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository binds a repository to db.
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification and returns it with its generated id.
func (r *NotificationRepository) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	n.ID = uuid.NewString()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO notifications (id, user_id, type, message, read)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, n.ID, n.UserID, n.Type, n.Message, n.Read).Scan(&n.CreatedAt)
	if err != nil {
		return models.Notification{}, fmt.Errorf("inserting notification: %w", err)
	}
	return n, nil
}

// ListForUser returns the user's notifications, newest first.
func (r *NotificationRepository) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, type, message, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.Read, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// FindByID returns the notification only if it belongs to userID, or
// (nil, nil).
func (r *NotificationRepository) FindByID(ctx context.Context, id, userID string) (*models.Notification, error) {
	var n models.Notification
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, type, message, read, created_at
		FROM notifications
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.Read, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying notification: %w", err)
	}
	return &n, nil
}

// MarkRead flags one of the user's notifications as read and reports whether
// the row existed.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return false, fmt.Errorf("marking notification read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkAllRead flags every unread notification for the user and returns how
// many rows changed.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("marking notifications read: %w", err)
	}
	return res.RowsAffected()
}

// Delete removes one of the user's notifications and reports whether a row
// was deleted.
func (r *NotificationRepository) Delete(ctx context.Context, id, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM notifications WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return false, fmt.Errorf("deleting notification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteAll clears the user's inbox and returns how many rows were deleted.
func (r *NotificationRepository) DeleteAll(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("deleting notifications: %w", err)
	}
	return res.RowsAffected()
}
