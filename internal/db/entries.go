package db

import (
	"context"
	"fmt"

	"macro-journal/internal/models"
)

// ListEntries returns every entry owned by the user, oldest first.
func (db *PostgresDB) ListEntries(ctx context.Context, userID string) ([]models.Entry, error) {
	query := `
        SELECT id, user_id, date, time, food, macros
        FROM entries
        WHERE user_id = $1
        ORDER BY date, id
    `

	rows, err := db.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []models.Entry
	for rows.Next() {
		var e models.Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Date, &e.Time, &e.Food, &e.Macros); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}

	return entries, nil
}
