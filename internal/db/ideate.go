package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mrwolf/ppl-server/internal/models"
)

// AppendIdeateLog stores one ideation turn and returns it with its id and
// timestamp set
func (db *DB) AppendIdeateLog(ctx context.Context, entry models.IdeateLog) (*models.IdeateLog, error) {
	if entry.UserID == "" {
		return nil, models.NewValidationError("user_id", "is required")
	}
	if entry.Role != models.RoleUser && entry.Role != models.RoleAssistant {
		return nil, models.NewValidationError("role", "must be user or assistant")
	}

	var extracted sql.NullString
	if len(entry.ExtractedInterests) > 0 {
		data, err := json.Marshal(entry.ExtractedInterests)
		if err != nil {
			return nil, fmt.Errorf("encoding extracted interests: %w", err)
		}
		extracted = sql.NullString{String: string(data), Valid: true}
	}

	now := db.now()
	result, err := db.conn.ExecContext(ctx, `
		INSERT INTO ideate_logs (user_id, role, content, extracted_interests, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, entry.UserID, entry.Role, entry.Content, extracted, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("inserting ideate log: %w", err)
	}
	if entry.ID, err = result.LastInsertId(); err != nil {
		return nil, err
	}
	entry.Timestamp = parseTime(formatTime(now))
	return &entry, nil
}

// ListIdeateLogs returns a user's most recent ideation turns, oldest first.
// A limit of zero or less returns the whole conversation
func (db *DB) ListIdeateLogs(ctx context.Context, userID string, limit int) ([]models.IdeateLog, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, role, content, extracted_interests, timestamp FROM (
			SELECT * FROM ideate_logs
			WHERE user_id = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.IdeateLog
	for rows.Next() {
		var entry models.IdeateLog
		var extracted sql.NullString
		var ts string
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Role, &entry.Content, &extracted, &ts); err != nil {
			return nil, err
		}
		if extracted.Valid && extracted.String != "" {
			if err := json.Unmarshal([]byte(extracted.String), &entry.ExtractedInterests); err != nil {
				return nil, fmt.Errorf("decoding extracted interests for log %d: %w", entry.ID, err)
			}
		}
		entry.Timestamp = parseTime(ts)
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
