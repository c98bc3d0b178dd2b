package db

import (
	"context"
	"encoding/json"
	"fmt"
)

// GetSetting returns the raw JSON value for a per-user setting key, or
// (nil, nil) when the key has never been written.
func (db *PostgresDB) GetSetting(ctx context.Context, userID, key string) (json.RawMessage, error) {
	query := `
        SELECT value
        FROM settings
        WHERE user_id = $1 AND key = $2
    `

	var value json.RawMessage
	err := db.pool.QueryRow(ctx, query, userID, key).Scan(&value)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get setting %q: %w", key, err)
	}

	return value, nil
}

// UpsertSetting writes a per-user, per-key singleton. The unique constraint
// on (user_id, key) makes the upsert well-defined.
func (db *PostgresDB) UpsertSetting(ctx context.Context, userID, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode setting %q: %w", key, err)
	}

	query := `
        INSERT INTO settings (user_id, key, value)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, key) DO UPDATE
        SET value = $3, updated_at = NOW()
    `

	if _, err := db.pool.Exec(ctx, query, userID, key, raw); err != nil {
		return fmt.Errorf("failed to upsert setting %q: %w", key, err)
	}
	return nil
}
