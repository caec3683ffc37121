// ABOUTME: SQLite-backed thought log using modernc.org/sqlite
// ABOUTME: Persists diagnostic thought entries with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ThoughtEntry is a persisted thought log record.
type ThoughtEntry struct {
	ID        int64     `json:"id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ThoughtLog persists thought entries in SQLite. This is a diagnostic side
// log; conversation state never flows through it.
type ThoughtLog struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewThoughtLog opens (or creates) the thought log database at the given
// path. Parent directories are created if needed.
func NewThoughtLog(path string, logger *slog.Logger) (*ThoughtLog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "thoughtlog")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	l := &ThoughtLog{db: db, logger: logger}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("thought log initialized", "path", path)
	return l, nil
}

// createSchema creates the thoughts table if it doesn't exist
func (l *ThoughtLog) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS thoughts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sender TEXT NOT NULL,
			content TEXT NOT NULL,
			timestamp INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_thoughts_sender
			ON thoughts(sender);
	`
	_, err := l.db.Exec(schema)
	return err
}

// SaveThought inserts a thought entry and returns it with its generated id.
func (l *ThoughtLog) SaveThought(ctx context.Context, sender, content string) (*ThoughtEntry, error) {
	now := time.Now()
	result, err := l.db.ExecContext(ctx,
		"INSERT INTO thoughts (sender, content, timestamp) VALUES (?, ?, ?)",
		sender, content, now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("inserting thought: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading insert id: %w", err)
	}

	return &ThoughtEntry{
		ID:        id,
		Sender:    sender,
		Content:   content,
		Timestamp: now,
	}, nil
}

// ListThoughts returns entries ordered newest first. An empty sender returns
// all entries. limit <= 0 means no limit.
func (l *ThoughtLog) ListThoughts(ctx context.Context, sender string, limit int) ([]*ThoughtEntry, error) {
	query := "SELECT id, sender, content, timestamp FROM thoughts"
	args := []any{}
	if sender != "" {
		query += " WHERE sender = ?"
		args = append(args, sender)
	}
	query += " ORDER BY timestamp DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying thoughts: %w", err)
	}
	defer rows.Close()

	var entries []*ThoughtEntry
	for rows.Next() {
		var entry ThoughtEntry
		var ts int64
		if err := rows.Scan(&entry.ID, &entry.Sender, &entry.Content, &ts); err != nil {
			return nil, fmt.Errorf("scanning thought: %w", err)
		}
		entry.Timestamp = time.UnixMilli(ts)
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating thoughts: %w", err)
	}

	return entries, nil
}

// Close closes the underlying database.
func (l *ThoughtLog) Close() error {
	return l.db.Close()
}
