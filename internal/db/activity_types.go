package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mrwolf/ppl-server/internal/models"
)

const activityTypeColumns = `id, name, display_name, venue_type, min_attendees, description, image_ref, created_at`

// EnsureActivityType inserts an activity type unless one with the same name
// exists, and returns the stored row either way
func (db *DB) EnsureActivityType(ctx context.Context, at models.ActivityType) (*models.ActivityType, error) {
	if at.Name == "" {
		return nil, models.NewValidationError("name", "is required")
	}
	if at.DisplayName == "" {
		at.DisplayName = at.Name
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO activity_types (id, name, display_name, venue_type, min_attendees, description, image_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, newID(), at.Name, at.DisplayName, at.VenueType, at.MinAttendees, nullString(at.Description), nullString(at.ImageRef), db.timestamp())
	if err != nil {
		return nil, fmt.Errorf("inserting activity type %s: %w", at.Name, err)
	}

	return db.GetActivityTypeByName(ctx, at.Name)
}

// GetActivityType returns an activity type by id
func (db *DB) GetActivityType(ctx context.Context, id string) (*models.ActivityType, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+activityTypeColumns+` FROM activity_types WHERE id = ?`, id)
	at, err := scanActivityType(row)
	if err != nil {
		return nil, notFound(err, "activity type "+id)
	}
	return at, nil
}

// GetActivityTypeByName returns an activity type by its unique name
func (db *DB) GetActivityTypeByName(ctx context.Context, name string) (*models.ActivityType, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+activityTypeColumns+` FROM activity_types WHERE name = ?`, name)
	at, err := scanActivityType(row)
	if err != nil {
		return nil, notFound(err, "activity type "+name)
	}
	return at, nil
}

// ListActivityTypes returns every activity type ordered by creation
func (db *DB) ListActivityTypes(ctx context.Context) ([]models.ActivityType, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+activityTypeColumns+` FROM activity_types ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []models.ActivityType
	for rows.Next() {
		at, err := scanActivityType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, *at)
	}
	return types, rows.Err()
}

// SetActivityTypeMetadata attaches generated metadata. Empty values leave the
// stored value untouched
func (db *DB) SetActivityTypeMetadata(ctx context.Context, id, description, imageRef string) error {
	result, err := db.conn.ExecContext(ctx, `
		UPDATE activity_types
		SET description = COALESCE(?, description),
		    image_ref = COALESCE(?, image_ref)
		WHERE id = ?
	`, nullString(description), nullString(imageRef), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("activity type %s: %w", id, models.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanActivityType(s scanner) (*models.ActivityType, error) {
	var at models.ActivityType
	var description, imageRef sql.NullString
	var createdStr string
	if err := s.Scan(&at.ID, &at.Name, &at.DisplayName, &at.VenueType, &at.MinAttendees, &description, &imageRef, &createdStr); err != nil {
		return nil, err
	}
	at.Description = description.String
	at.ImageRef = imageRef.String
	at.CreatedAt = parseTime(createdStr)
	return &at, nil
}
