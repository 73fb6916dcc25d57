package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mrwolf/ppl-server/internal/models"
)

// FindOrCreateVenue returns the id of the venue with the same (name,
// venue_type), inserting it first if absent. Concurrent callers converge on
// the same row through the UNIQUE constraint
func (db *DB) FindOrCreateVenue(ctx context.Context, v models.Venue) (string, error) {
	if v.Name == "" {
		return "", models.NewValidationError("name", "is required")
	}
	if v.VenueType == "" {
		return "", models.NewValidationError("venue_type", "is required")
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO venues (id, name, address, venue_type, lat, lng, is_private_home)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name, venue_type) DO NOTHING
	`, newID(), v.Name, v.Address, v.VenueType, nullFloat(v.Lat), nullFloat(v.Lng), boolInt(v.IsPrivateHome))
	if err != nil {
		return "", fmt.Errorf("inserting venue %s: %w", v.Name, err)
	}

	var id string
	err = db.conn.QueryRowContext(ctx, `
		SELECT id FROM venues WHERE name = ? AND venue_type = ?
	`, v.Name, v.VenueType).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("reading venue %s: %w", v.Name, err)
	}
	return id, nil
}

// GetVenue returns a venue by id
func (db *DB) GetVenue(ctx context.Context, id string) (*models.Venue, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, name, address, venue_type, lat, lng, is_private_home FROM venues WHERE id = ?
	`, id)
	v, err := scanVenue(row)
	if err != nil {
		return nil, notFound(err, "venue "+id)
	}
	return v, nil
}

// ListVenues returns every venue
func (db *DB) ListVenues(ctx context.Context) ([]models.Venue, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, name, address, venue_type, lat, lng, is_private_home FROM venues ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var venues []models.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		venues = append(venues, *v)
	}
	return venues, rows.Err()
}

func scanVenue(s scanner) (*models.Venue, error) {
	var v models.Venue
	var lat, lng sql.NullFloat64
	var private int
	if err := s.Scan(&v.ID, &v.Name, &v.Address, &v.VenueType, &lat, &lng, &private); err != nil {
		return nil, err
	}
	if lat.Valid {
		v.Lat = &lat.Float64
	}
	if lng.Valid {
		v.Lng = &lng.Float64
	}
	v.IsPrivateHome = private == 1
	return &v, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
