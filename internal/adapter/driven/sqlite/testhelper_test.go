package sqlite

import (
	"context"
	"fmt"
	"net/url"
	"testing"
)

// setupTestDB creates a migrated shared in-memory database named after the
// test, so parallel tests never see each other's rows.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// Escape the name so subtest slashes cannot leak into the URI query.
	safeName := url.PathEscape(t.Name())
	// In-memory databases have no WAL; journal_mode is left out.
	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)",
		safeName,
	)

	ctx := context.Background()
	writer, err := openPool(ctx, dsn, 1)
	if err != nil {
		t.Fatalf("open test db writer: %v", err)
	}
	reader, err := openPool(ctx, dsn, 4)
	if err != nil {
		_ = writer.Close()
		t.Fatalf("open test db reader: %v", err)
	}

	db := &DB{Writer: writer, Reader: reader, path: dsn}

	if _, err := RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}

var testKey = []byte("0123456789abcdef0123456789abcdef")
