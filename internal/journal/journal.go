// Package journal keeps an append-only SQLite record of the administrative
// operations svcctl performs, so operators can see who changed a service and
// whether it worked.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS operations (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    at        INTEGER NOT NULL,
    machine   TEXT    NOT NULL DEFAULT '',
    service   TEXT    NOT NULL,
    operation TEXT    NOT NULL,
    detail    TEXT    NOT NULL DEFAULT '',
    error     TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS operations_service ON operations (service, at);
`

// Entry is one recorded operation. Err is empty when the operation succeeded.
type Entry struct {
	ID        int64
	Time      time.Time
	Machine   string
	Service   string
	Operation string
	Detail    string
	Err       string
}

// OK reports whether the operation succeeded.
func (e Entry) OK() bool { return e.Err == "" }

// Filter narrows List. Zero values match everything; Limit 0 means 50.
type Filter struct {
	Service string
	Since   time.Time
	Limit   int
}

// Journal is a handle on the journal database. It is safe for concurrent use.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// DefaultPath returns the journal location under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "svcctl", "journal.db"), nil
}

// Open opens or creates the journal at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("error: cannot create journal directory: %w", err)
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, fmt.Errorf("error: cannot open journal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("error: cannot initialise journal: %w", err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

// Record appends an entry for op on service. A nil opErr records success.
func (j *Journal) Record(ctx context.Context, machine, service, op, detail string, opErr error) error {
	var msg string
	if opErr != nil {
		msg = opErr.Error()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO operations (at, machine, service, operation, detail, error) VALUES (?, ?, ?, ?, ?, ?)`,
		j.now().UnixMilli(), machine, service, op, detail, msg)
	if err != nil {
		return fmt.Errorf("error: failed to record %s of %s: %w", op, service, err)
	}
	return nil
}

// List returns matching entries, newest first.
func (j *Journal) List(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.Service != "" {
		where = append(where, "service = ? COLLATE NOCASE")
		args = append(args, f.Service)
	}
	if !f.Since.IsZero() {
		where = append(where, "at >= ?")
		args = append(args, f.Since.UnixMilli())
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, at, machine, service, operation, detail, error FROM operations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error: failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e  Entry
			at int64
		)
		if err := rows.Scan(&e.ID, &at, &e.Machine, &e.Service, &e.Operation, &e.Detail, &e.Err); err != nil {
			return nil, fmt.Errorf("error: failed to scan journal row: %w", err)
		}
		e.Time = time.UnixMilli(at)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error: failed to iterate journal rows: %w", err)
	}
	return entries, nil
}

// Prune deletes entries older than before and returns how many were removed.
func (j *Journal) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx, `DELETE FROM operations WHERE at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("error: failed to prune journal: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database. Closing a nil journal is a no-op.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	if err != nil && !errors.Is(err, sql.ErrConnDone) {
		return err
	}
	return nil
}
