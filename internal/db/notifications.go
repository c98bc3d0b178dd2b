package db

import (
	"context"
	"errors"
	"fmt"

	"macro-journal/internal/models"

	"github.com/jackc/pgx/v4"
)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// ListNotifications returns the user's notifications, newest first.
func (db *PostgresDB) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	query := `
        SELECT id, user_id, title, body, timestamp, read
        FROM notifications
        WHERE user_id = $1
        ORDER BY timestamp DESC
    `

	rows, err := db.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Timestamp, &n.Read); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read notifications: %w", err)
	}

	return notifications, nil
}

// InsertNotification persists a new notification row.
func (db *PostgresDB) InsertNotification(ctx context.Context, n *models.Notification) error {
	query := `
        INSERT INTO notifications (id, user_id, title, body, timestamp, read)
        VALUES ($1, $2, $3, $4, $5, $6)
    `

	_, err := db.pool.Exec(ctx, query, n.ID, n.UserID, n.Title, n.Body, n.Timestamp, n.Read)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// MarkNotificationRead flips the read flag. The user scope makes the update
// a no-op when the row belongs to someone else.
func (db *PostgresDB) MarkNotificationRead(ctx context.Context, id, userID string) error {
	query := `
        UPDATE notifications
        SET read = TRUE
        WHERE id = $1 AND user_id = $2
    `

	_, err := db.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// DeleteNotification removes a dismissed notification, scoped to its owner.
func (db *PostgresDB) DeleteNotification(ctx context.Context, id, userID string) error {
	query := `
        DELETE FROM notifications
        WHERE id = $1 AND user_id = $2
    `

	_, err := db.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}
