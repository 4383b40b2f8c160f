package audit

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// schema is created on first open. The column set mirrors the CSV layout so
// either sink can answer the same questions.
const schema = `
CREATE TABLE IF NOT EXISTS access_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	time_stamp  TEXT NOT NULL,
	event       TEXT NOT NULL,
	user_name   TEXT NOT NULL,
	ip_address  TEXT NOT NULL,
	access      TEXT NOT NULL,
	server      TEXT NOT NULL,
	nb_queued_requests_on_server INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	request_id  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_access_log_time ON access_log(time_stamp);
CREATE INDEX IF NOT EXISTS idx_access_log_event ON access_log(event);
`

const insertRecord = `
INSERT INTO access_log
	(time_stamp, event, user_name, ip_address, access, server,
	 nb_queued_requests_on_server, error, request_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SQLiteRecorder appends access records to a SQLite database.
type SQLiteRecorder struct {
	db   *sql.DB
	stmt *sql.Stmt
}

// NewSQLiteRecorder opens (creating if necessary) the database at path and
// ensures the access_log schema exists.
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database %q: %w", path, err)
	}

	// WAL keeps concurrent appends from blocking readers.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create audit schema: %w", err)
	}

	stmt, err := db.Prepare(insertRecord)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare audit insert: %w", err)
	}

	slog.Info("audit database initialized", "path", path)
	return &SQLiteRecorder{db: db, stmt: stmt}, nil
}

// Record appends one record.
func (r *SQLiteRecorder) Record(rec Record) error {
	_, err := r.stmt.Exec(
		rec.Timestamp.Format(time.RFC3339Nano),
		rec.Event,
		rec.User,
		rec.ClientIP,
		rec.Access,
		rec.Server,
		rec.QueueDepth,
		rec.Error,
		rec.RequestID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert access record: %w", err)
	}
	return nil
}

// Close releases the prepared statement and database handle.
func (r *SQLiteRecorder) Close() error {
	if err := r.stmt.Close(); err != nil {
		slog.Warn("error closing audit statement", "error", err)
	}
	return r.db.Close()
}
