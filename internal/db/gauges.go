package db

import (
	"context"
	"fmt"

	"github.com/mrwolf/ppl-server/internal/models"
)

// UpsertGauge records a user's yes/no for an activity type. A later call for
// the same pair overwrites the response and timestamp
func (db *DB) UpsertGauge(ctx context.Context, userID, activityTypeID, response string) error {
	if userID == "" {
		return models.NewValidationError("user_id", "is required")
	}
	if !models.ValidGaugeResponse(response) {
		return models.NewValidationError("response", "must be yes or no")
	}

	now := db.timestamp()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO gauges (user_id, activity_type_id, response, timestamp)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, activity_type_id) DO UPDATE SET
			response = excluded.response,
			timestamp = excluded.timestamp
	`, userID, activityTypeID, response, now)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("activity type %s: %w", activityTypeID, models.ErrNotFound)
	}
	return err
}

// AggregateCounts returns yes/no totals for one activity type
func (db *DB) AggregateCounts(ctx context.Context, activityTypeID string) (models.GaugeCounts, error) {
	var c models.GaugeCounts
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN response = 'yes' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN response = 'no' THEN 1 ELSE 0 END), 0)
		FROM gauges
		WHERE activity_type_id = ?
	`, activityTypeID).Scan(&c.Yes, &c.No)
	return c, err
}

// AllAggregateCounts returns yes/no totals for every gauged activity type in
// a single grouped read
func (db *DB) AllAggregateCounts(ctx context.Context) (map[string]models.GaugeCounts, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT
			activity_type_id,
			SUM(CASE WHEN response = 'yes' THEN 1 ELSE 0 END),
			SUM(CASE WHEN response = 'no' THEN 1 ELSE 0 END)
		FROM gauges
		GROUP BY activity_type_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]models.GaugeCounts)
	for rows.Next() {
		var id string
		var c models.GaugeCounts
		if err := rows.Scan(&id, &c.Yes, &c.No); err != nil {
			return nil, err
		}
		counts[id] = c
	}
	return counts, rows.Err()
}

// GaugesForUser returns every gauge a user has recorded
func (db *DB) GaugesForUser(ctx context.Context, userID string) ([]models.Gauge, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT user_id, activity_type_id, response, timestamp
		FROM gauges
		WHERE user_id = ?
		ORDER BY timestamp DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gauges []models.Gauge
	for rows.Next() {
		var g models.Gauge
		var ts string
		if err := rows.Scan(&g.UserID, &g.ActivityTypeID, &g.Response, &ts); err != nil {
			return nil, err
		}
		g.Timestamp = parseTime(ts)
		gauges = append(gauges, g)
	}
	return gauges, rows.Err()
}
