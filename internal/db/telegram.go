package db

import (
	"context"
	"fmt"
)

// TelegramLink connects a user to a Telegram chat used as the pop-up
// notification surface. Enabled tracks whether the user allowed pushes.
type TelegramLink struct {
	UserID  string
	ChatID  int64
	Enabled bool
}

// GetTelegramLink returns the user's chat link, or (nil, nil) when the
// user never connected a chat.
func (db *PostgresDB) GetTelegramLink(ctx context.Context, userID string) (*TelegramLink, error) {
	query := `
        SELECT user_id, chat_id, enabled
        FROM telegram_links
        WHERE user_id = $1
    `

	var link TelegramLink
	err := db.pool.QueryRow(ctx, query, userID).Scan(&link.UserID, &link.ChatID, &link.Enabled)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get telegram link: %w", err)
	}

	return &link, nil
}

// SaveTelegramLink upserts the user's chat link.
func (db *PostgresDB) SaveTelegramLink(ctx context.Context, link *TelegramLink) error {
	query := `
        INSERT INTO telegram_links (user_id, chat_id, enabled)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id) DO UPDATE
        SET chat_id = $2, enabled = $3, updated_at = NOW()
    `

	if _, err := db.pool.Exec(ctx, query, link.UserID, link.ChatID, link.Enabled); err != nil {
		return fmt.Errorf("failed to save telegram link: %w", err)
	}
	return nil
}
