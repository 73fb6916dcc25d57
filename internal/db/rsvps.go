package db

import (
	"context"
	"fmt"

	"github.com/mrwolf/ppl-server/internal/models"
)

// UpsertRSVP records a user's response for an event, overwriting any earlier
// response
func (db *DB) UpsertRSVP(ctx context.Context, userID, eventID, response string) error {
	if userID == "" {
		return models.NewValidationError("user_id", "is required")
	}
	if !models.ValidRSVPResponse(response) {
		return models.NewValidationError("response", "must be can_go or unavailable")
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO rsvps (user_id, event_id, response, timestamp)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, event_id) DO UPDATE SET
			response = excluded.response,
			timestamp = excluded.timestamp
	`, userID, eventID, response, db.timestamp())
	if isForeignKeyViolation(err) {
		return fmt.Errorf("event %s: %w", eventID, models.ErrNotFound)
	}
	return err
}

// TallyRSVPs counts responses for an event
func (db *DB) TallyRSVPs(ctx context.Context, eventID string) (models.RSVPTally, error) {
	var t models.RSVPTally
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN response = 'can_go' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN response = 'unavailable' THEN 1 ELSE 0 END), 0)
		FROM rsvps
		WHERE event_id = ?
	`, eventID).Scan(&t.CanGo, &t.Unavailable)
	return t, err
}

// GetRSVP returns a user's response for an event, or "" if none
func (db *DB) GetRSVP(ctx context.Context, userID, eventID string) (string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT response FROM rsvps WHERE user_id = ? AND event_id = ?
	`, userID, eventID)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var response string
	if rows.Next() {
		if err := rows.Scan(&response); err != nil {
			return "", err
		}
	}
	return response, rows.Err()
}

// CountAttendedEvents counts completed events the user said they could go to
func (db *DB) CountAttendedEvents(ctx context.Context, userID string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT r.event_id)
		FROM rsvps r
		JOIN events e ON e.id = r.event_id
		WHERE r.user_id = ? AND r.response = 'can_go' AND e.status = 'completed'
	`, userID).Scan(&n)
	return n, err
}
