package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mrwolf/ppl-server/internal/models"
)

// StartPromotionRun records the start of a promotion pass
func (db *DB) StartPromotionRun(ctx context.Context, trigger string) (int64, error) {
	result, err := db.conn.ExecContext(ctx, `
		INSERT INTO promotion_runs (trigger_source, status, started_at)
		VALUES (?, 'running', ?)
	`, trigger, db.timestamp())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// CompletePromotionRun marks a promotion pass finished
func (db *DB) CompletePromotionRun(ctx context.Context, runID int64, created, failed int, errMsg string) error {
	status := "completed"
	if errMsg != "" {
		status = "failed"
	}
	_, err := db.conn.ExecContext(ctx, `
		UPDATE promotion_runs
		SET status = ?, created_count = ?, failed_count = ?, completed_at = ?, error_message = ?
		WHERE id = ?
	`, status, created, failed, db.timestamp(), nullString(errMsg), runID)
	return err
}

// GetLastPromotionRun returns the most recent run, or nil if there is none
func (db *DB) GetLastPromotionRun(ctx context.Context) (*models.PromotionRun, error) {
	var run models.PromotionRun
	var startedStr string
	var completedStr, errMsg sql.NullString
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, trigger_source, status, created_count, failed_count, started_at, completed_at, error_message
		FROM promotion_runs
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&run.ID, &run.Trigger, &run.Status, &run.CreatedCount, &run.FailedCount, &startedStr, &completedStr, &errMsg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.StartedAt = parseTime(startedStr)
	run.CompletedAt = parseNullTime(completedStr)
	run.ErrorMessage = errMsg.String
	return &run, nil
}
