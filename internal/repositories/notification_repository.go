package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"goldhub/internal/database"
	"goldhub/internal/models"

	"go.uber.org/zap"
)

// notificationRepository implements NotificationRepository on Postgres.
type notificationRepository struct {
	*BaseRepository
}

// NewNotificationRepository creates a Postgres notification repository.
func NewNotificationRepository(db *database.Manager, logger *zap.Logger) NotificationRepository {
	return &notificationRepository{BaseRepository: NewBaseRepository(db, logger)}
}

// Create persists a notification.
func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	var metadataRaw []byte
	if n.Metadata != nil {
		var err error
		metadataRaw, err = json.Marshal(n.Metadata)
		if err != nil {
			return fmt.Errorf("encode notification metadata: %w", err)
		}
	}

	query := `
		INSERT INTO notifications (user_id, kind, title, message, link, metadata, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
		RETURNING id`

	err := r.QueryRowContext(ctx, query,
		n.UserID, n.Kind, n.Title, n.Message, n.Link, metadataRaw, n.CreatedAt,
	).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListByUser returns the user's most recent notifications.
func (r *notificationRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	query := `
		SELECT id, user_id, kind, title, message, link, metadata, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := r.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("select notifications for user %d: %w", userID, err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var (
			n           models.Notification
			metadataRaw []byte
		)
		if err := rows.Scan(
			&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Message,
			&n.Link, &metadataRaw, &n.IsRead, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if len(metadataRaw) > 0 {
			if err := json.Unmarshal(metadataRaw, &n.Metadata); err != nil {
				return nil, fmt.Errorf("decode notification metadata: %w", err)
			}
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkRead marks a notification as read, scoped to its owner.
func (r *notificationRepository) MarkRead(ctx context.Context, notificationID, userID int64) error {
	query := `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`

	result, err := r.ExecContext(ctx, query, notificationID, userID)
	if err != nil {
		return fmt.Errorf("mark notification %d read: %w", notificationID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("notification %d not found for user %d", notificationID, userID)
	}
	return nil
}
