// Package sqlite implements the storage ports on an embedded SQLite
// database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// pragmas applied to every connection. WAL lets the import loop write while
// the web GUI reads.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"foreign_keys(ON)",
	"cache_size(-64000)",
}

// DB holds separate writer and reader pools on the same database file.
// The writer is capped at one connection so concurrent writes queue instead
// of failing with "database is locked".
type DB struct {
	Writer *sql.DB
	Reader *sql.DB
	path   string
}

// NewDB opens the database at dbPath and verifies both pools.
func NewDB(ctx context.Context, dbPath string) (*DB, error) {
	params := make([]string, 0, len(pragmas))
	for _, p := range pragmas {
		params = append(params, "_pragma="+p)
	}
	dsn := fmt.Sprintf("file:%s?%s", dbPath, strings.Join(params, "&"))

	writer, err := openPool(ctx, dsn, 1)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}

	reader, err := openPool(ctx, dsn, 4)
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}

	return &DB{Writer: writer, Reader: reader, path: dbPath}, nil
}

func openPool(ctx context.Context, dsn string, maxConns int) (*sql.DB, error) {
	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	pool.SetMaxOpenConns(maxConns)

	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// Ping checks that the writer pool is usable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.Writer.PingContext(ctx)
}

// Close closes both pools and returns the first error.
func (db *DB) Close() error {
	var firstErr error

	if err := db.Reader.Close(); err != nil {
		firstErr = fmt.Errorf("close reader: %w", err)
	}

	if err := db.Writer.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close writer: %w", err)
	}

	return firstErr
}

type scanner interface {
	Scan(dest ...any) error
}

// timeLayout is the storage format for timestamps written by this package.
// It is fixed-width in UTC so that text comparison orders chronologically.
const timeLayout = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// formatNullTime maps a nil time to SQL NULL.
func formatNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// parseTime accepts timeLayout as well as the formats SQLite's own
// CURRENT_TIMESTAMP and datetime() produce.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		timeLayout,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
