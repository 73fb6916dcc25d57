package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mrwolf/ppl-server/internal/models"
)

const eventColumns = `id, activity_type_id, status, venue_id, scheduled_time, rsvp_deadline, match_reason, host_user_id, created_at, updated_at`

// CreateEvent inserts a new event. When the event would be a second active
// event for its activity type the partial unique index rejects it and
// models.ErrConflict is returned
func (db *DB) CreateEvent(ctx context.Context, ev models.Event) (*models.Event, error) {
	if ev.ActivityTypeID == "" {
		return nil, models.NewValidationError("activity_type_id", "is required")
	}
	if ev.Status == "" {
		ev.Status = models.StatusPendingRSVP
	}
	ev.ID = newID()
	now := db.now()
	ev.CreatedAt = parseTime(formatTime(now))
	ev.UpdatedAt = ev.CreatedAt

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.ActivityTypeID, ev.Status, nullString(ev.VenueID), nullTime(ev.ScheduledTime), nullTime(ev.RSVPDeadline),
		ev.MatchReason, nullString(ev.HostUserID), formatTime(now), formatTime(now))
	switch {
	case isUniqueViolation(err):
		return nil, fmt.Errorf("active event for activity type %s: %w", ev.ActivityTypeID, models.ErrConflict)
	case isForeignKeyViolation(err):
		return nil, fmt.Errorf("activity type %s or venue %s: %w", ev.ActivityTypeID, ev.VenueID, models.ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("inserting event: %w", err)
	}
	return &ev, nil
}

// GetEvent returns an event by id
func (db *DB) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if err != nil {
		return nil, notFound(err, "event "+id)
	}
	return ev, nil
}

// ListEventsByStatus returns events in any of the given statuses, soonest first
func (db *DB) ListEventsByStatus(ctx context.Context, statuses ...string) ([]models.Event, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	query := `SELECT ` + eventColumns + ` FROM events WHERE status IN (?` + repeatPlaceholders(len(statuses)-1) + `)
		ORDER BY scheduled_time ASC, created_at ASC`
	args := make([]interface{}, len(statuses))
	for i, s := range statuses {
		args[i] = s
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

// ListActiveEvents returns events that block promotion of their activity type
func (db *DB) ListActiveEvents(ctx context.Context) ([]models.Event, error) {
	return db.ListEventsByStatus(ctx, models.StatusPendingRSVP, models.StatusConfirmed)
}

// ActiveActivityTypeIDs returns the set of activity types that currently have
// an active event
func (db *DB) ActiveActivityTypeIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT activity_type_id FROM events
		WHERE status IN ('pending_rsvp', 'confirmed')
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	active := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		active[id] = true
	}
	return active, rows.Err()
}

// UpdateEventStatus moves an event from one status to another. The update
// only applies if the event is still in from; otherwise models.ErrConflict
// is returned so callers never overwrite a concurrent transition
func (db *DB) UpdateEventStatus(ctx context.Context, id, from, to string) error {
	result, err := db.conn.ExecContext(ctx, `
		UPDATE events SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, to, db.timestamp(), id, from)
	if isUniqueViolation(err) {
		return fmt.Errorf("event %s: another active event exists: %w", id, models.ErrConflict)
	}
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := db.GetEvent(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("event %s is no longer %s: %w", id, from, models.ErrConflict)
	}
	return nil
}

// EventsDue returns events in status whose time column is at or before t.
// column is either "rsvp_deadline" or "scheduled_time"
func (db *DB) EventsDue(ctx context.Context, status, column string, t time.Time) ([]models.Event, error) {
	if column != "rsvp_deadline" && column != "scheduled_time" {
		return nil, fmt.Errorf("unsupported column %q", column)
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE status = ? AND `+column+` IS NOT NULL AND `+column+` <= ?
		ORDER BY `+column+` ASC
	`, status, formatTime(t))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

func scanEvent(s scanner) (*models.Event, error) {
	var ev models.Event
	var venueID, scheduled, deadline, hostUserID sql.NullString
	var createdStr, updatedStr string
	if err := s.Scan(&ev.ID, &ev.ActivityTypeID, &ev.Status, &venueID, &scheduled, &deadline, &ev.MatchReason, &hostUserID, &createdStr, &updatedStr); err != nil {
		return nil, err
	}
	ev.VenueID = venueID.String
	ev.ScheduledTime = parseNullTime(scheduled)
	ev.RSVPDeadline = parseNullTime(deadline)
	ev.HostUserID = hostUserID.String
	ev.CreatedAt = parseTime(createdStr)
	ev.UpdatedAt = parseTime(updatedStr)
	return &ev, nil
}

func repeatPlaceholders(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		s += ", ?"
	}
	return s
}
