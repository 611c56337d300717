// Package activity stores the user action log (user_actions_log). The log is
// append-heavy and queried newest-first with cursors, so it lives in SQLite
// rather than the document store.
package activity

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/ksuid"
	"go.opentelemetry.io/otel/attribute"
	_ "modernc.org/sqlite"
)

// Entry is one row of the user action log.
type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"`
	Subject   string    `json:"subject,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Index provides access to the activity log database.
type Index struct {
	db *sql.DB
}

// Open creates or opens the activity log at the given path and applies the
// schema. The sqlite driver is registered through otelsql so queries are
// traced.
func Open(path string) (*Index, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create activity log directory: %w", err)
		}
	}

	driverName, err := otelsql.Register("sqlite",
		otelsql.WithAttributes(attribute.String("db.system", "sqlite")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register traced sqlite driver: %w", err)
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open activity log: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS user_actions_log (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			type       TEXT NOT NULL,
			subject    TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_actions_user_time
			ON user_actions_log (user_id, created_at DESC);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply activity log schema: %w", err)
	}

	log.Info().Str("path", path).Msg("Activity log opened")
	return &Index{db: db}, nil
}

// Close closes the database.
func (idx *Index) Close() error {
	if idx.db != nil {
		return idx.db.Close()
	}
	return nil
}

// Record appends an entry to the log. A missing ID or timestamp is filled in.
func (idx *Index) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = ksuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	_, err := idx.db.ExecContext(ctx, `
		INSERT INTO user_actions_log (id, user_id, type, subject, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.ID, e.UserID, e.Type, e.Subject, e.Timestamp.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

// Recent returns a user's log entries, newest first, with cursor-based
// pagination. Pass an empty cursor for the first page; the returned cursor is
// empty when no further page exists.
func (idx *Index) Recent(ctx context.Context, userID string, limit int, cursor string) ([]Entry, string, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, user_id, type, subject, created_at
		FROM user_actions_log WHERE user_id = ?`
	args := []any{userID}

	if cursor != "" {
		query += ` AND created_at < ?`
		args = append(args, cursor)
	}

	query += ` ORDER BY created_at DESC LIMIT ?`
	// Fetch one extra to determine if there's a next page
	args = append(args, limit+1)

	rows, err := idx.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Type, &e.Subject, &createdAt); err != nil {
			continue
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(entries) > limit {
		entries = entries[:limit]
		nextCursor = entries[len(entries)-1].Timestamp.Format(time.RFC3339Nano)
	}

	return entries, nextCursor, nil
}

// CountForUser returns the number of log entries for a user.
func (idx *Index) CountForUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := idx.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_actions_log WHERE user_id = ?`, userID).Scan(&count)
	return count, err
}
