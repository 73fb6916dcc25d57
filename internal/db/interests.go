package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/mrwolf/ppl-server/internal/models"
)

// AddInterest stores an active interest for a user. The partial unique index
// on active interests rejects a second active copy of the same canonical
// value, which is returned as models.ErrConflict
func (db *DB) AddInterest(ctx context.Context, in models.Interest) (*models.Interest, error) {
	in.CanonicalValue = strings.ToLower(strings.TrimSpace(in.CanonicalValue))
	in.RawValue = strings.TrimSpace(in.RawValue)
	if in.UserID == "" {
		return nil, models.NewValidationError("user_id", "is required")
	}
	if in.CanonicalValue == "" {
		return nil, models.NewValidationError("canonical_value", "cannot be empty")
	}
	if !models.ValidCategory(in.Category) {
		return nil, models.NewValidationError("category", "must be one of hobby, problem, learning, skill")
	}
	if !models.ValidSource(in.Source) {
		return nil, models.NewValidationError("source", "must be one of onboarding, chat, inferred")
	}
	if in.RawValue == "" {
		in.RawValue = in.CanonicalValue
	}

	in.ID = newID()
	in.IsActive = true
	now := db.now()
	in.CreatedAt = parseTime(formatTime(now))
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO interests (id, user_id, category, canonical_value, raw_value, source, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?)
	`, in.ID, in.UserID, in.Category, in.CanonicalValue, in.RawValue, in.Source, formatTime(now))
	switch {
	case isUniqueViolation(err):
		return nil, fmt.Errorf("interest %q: %w", in.CanonicalValue, models.ErrConflict)
	case err != nil:
		return nil, fmt.Errorf("inserting interest: %w", err)
	}
	return &in, nil
}

// ListInterests returns a user's active interests
func (db *DB) ListInterests(ctx context.Context, userID string) ([]models.Interest, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, category, canonical_value, raw_value, source, is_active, created_at
		FROM interests
		WHERE user_id = ? AND is_active = 1
		ORDER BY created_at ASC, rowid ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var interests []models.Interest
	for rows.Next() {
		var in models.Interest
		var active int
		var createdStr string
		if err := rows.Scan(&in.ID, &in.UserID, &in.Category, &in.CanonicalValue, &in.RawValue, &in.Source, &active, &createdStr); err != nil {
			return nil, err
		}
		in.IsActive = active == 1
		in.CreatedAt = parseTime(createdStr)
		interests = append(interests, in)
	}
	return interests, rows.Err()
}

// DeactivateInterest soft-deletes an interest owned by userID
func (db *DB) DeactivateInterest(ctx context.Context, userID, interestID string) error {
	result, err := db.conn.ExecContext(ctx, `
		UPDATE interests SET is_active = 0
		WHERE id = ? AND user_id = ? AND is_active = 1
	`, interestID, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("interest %s: %w", interestID, models.ErrNotFound)
	}
	return nil
}

// CountUsersWithInterest counts distinct users, other than userID, holding
// the canonical value as an active interest
func (db *DB) CountUsersWithInterest(ctx context.Context, canonicalValue, excludeUserID string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT user_id) FROM interests
		WHERE canonical_value = ? AND is_active = 1 AND user_id != ?
	`, strings.ToLower(strings.TrimSpace(canonicalValue)), excludeUserID).Scan(&n)
	return n, err
}
