package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/mrwolf/ppl-server/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS activity_types (
    id TEXT PRIMARY KEY,
    name TEXT UNIQUE NOT NULL,
    display_name TEXT NOT NULL,
    venue_type TEXT NOT NULL,
    min_attendees INTEGER NOT NULL DEFAULT 0,
    description TEXT,
    image_ref TEXT,
    created_at TEXT NOT NULL
);

-- Interests are soft-deleted via is_active
CREATE TABLE IF NOT EXISTS interests (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    category TEXT NOT NULL,
    canonical_value TEXT NOT NULL,
    raw_value TEXT NOT NULL,
    source TEXT NOT NULL,
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS gauges (
    user_id TEXT NOT NULL,
    activity_type_id TEXT NOT NULL REFERENCES activity_types(id),
    response TEXT NOT NULL CHECK (response IN ('yes', 'no')),
    timestamp TEXT NOT NULL,
    PRIMARY KEY (user_id, activity_type_id)
);

CREATE TABLE IF NOT EXISTS venues (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    address TEXT NOT NULL,
    venue_type TEXT NOT NULL,
    lat REAL,
    lng REAL,
    is_private_home INTEGER NOT NULL DEFAULT 0,
    UNIQUE (name, venue_type)
);

CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    activity_type_id TEXT NOT NULL REFERENCES activity_types(id),
    status TEXT NOT NULL,
    venue_id TEXT REFERENCES venues(id),
    scheduled_time TEXT,
    rsvp_deadline TEXT,
    match_reason TEXT NOT NULL,
    host_user_id TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rsvps (
    user_id TEXT NOT NULL,
    event_id TEXT NOT NULL REFERENCES events(id),
    response TEXT NOT NULL CHECK (response IN ('can_go', 'unavailable')),
    timestamp TEXT NOT NULL,
    PRIMARY KEY (user_id, event_id)
);

-- Ideation turns, oldest first per user
CREATE TABLE IF NOT EXISTS ideate_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
    content TEXT NOT NULL,
    extracted_interests TEXT,
    timestamp TEXT NOT NULL
);

-- One row per promotion pass
CREATE TABLE IF NOT EXISTS promotion_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    trigger_source TEXT NOT NULL,
    status TEXT NOT NULL,
    created_count INTEGER NOT NULL DEFAULT 0,
    failed_count INTEGER NOT NULL DEFAULT 0,
    started_at TEXT NOT NULL,
    completed_at TEXT,
    error_message TEXT
);

-- At most one active event per activity type
CREATE UNIQUE INDEX IF NOT EXISTS idx_events_one_active
    ON events(activity_type_id) WHERE status IN ('pending_rsvp', 'confirmed');

-- At most one active copy of an interest per user
CREATE UNIQUE INDEX IF NOT EXISTS idx_interests_one_active
    ON interests(user_id, canonical_value) WHERE is_active = 1;

CREATE INDEX IF NOT EXISTS idx_ideate_logs_user ON ideate_logs(user_id, id);
CREATE INDEX IF NOT EXISTS idx_interests_user ON interests(user_id, is_active);
CREATE INDEX IF NOT EXISTS idx_interests_canonical ON interests(canonical_value);
CREATE INDEX IF NOT EXISTS idx_gauges_activity ON gauges(activity_type_id);
CREATE INDEX IF NOT EXISTS idx_events_status ON events(status);
CREATE INDEX IF NOT EXISTS idx_rsvps_event ON rsvps(event_id);
CREATE INDEX IF NOT EXISTS idx_promotion_runs_started ON promotion_runs(started_at);
`

// DB is the durable store shared by every component
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	db := &DB{conn: conn, now: time.Now}
	if err := db.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

func (db *DB) migrate() error {
	_, err := db.conn.Exec(schema)
	if err != nil {
		return fmt.Errorf("executing migration: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the connection is usable
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// SetClock overrides the time source used for timestamps
func (db *DB) SetClock(now func() time.Time) {
	if now != nil {
		db.now = now
	}
}

func (db *DB) timestamp() string {
	return formatTime(db.now())
}

func newID() string {
	return uuid.NewString()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

// isUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY
// constraint
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

// notFound maps sql.ErrNoRows to models.ErrNotFound
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	return err
}
