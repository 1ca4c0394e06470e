package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

// setupTestDB creates a named shared in-memory SQLite database for testing.
// Writer and reader share the same in-memory database via cache=shared; the
// name derived from t.Name() isolates tests from each other.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// WAL is not applicable to in-memory databases.
	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)",
		url.PathEscape(t.Name()),
	)

	open := func(maxOpen int) *sql.DB {
		pool, err := sql.Open("sqlite", dsn)
		require.NoError(t, err)
		pool.SetMaxOpenConns(maxOpen)
		require.NoError(t, pool.PingContext(context.Background()))
		return pool
	}

	// The writer opens first and stays open so the shared database outlives
	// individual reader connections.
	db := &DB{Writer: open(1), path: dsn}
	db.Reader = open(4)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, RunMigrations(db.Writer))

	return db
}

// testKey is a fixed 32-byte AES-256 key.
var testKey = []byte("0123456789abcdef0123456789abcdef")
