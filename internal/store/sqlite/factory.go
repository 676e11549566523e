// Package sqlite implements the Metadata Store (internal/store) on
// modernc.org/sqlite, a pure-Go, CGO-free SQLite driver chosen for the
// single-user/offline deployment this is fundamentally a personal server
// for (no Postgres instance required). Mirrors internal/store/pg's
// file-per-resource layout and database/sql idiom; differs only in SQL
// dialect (placeholders, timestamp representation, boolean-as-integer).
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/flabwick/papyrus/internal/store"
)

// OpenDB opens (and creates, if absent) the sqlite database file at path.
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows only one writer at a time; a single connection avoids
	// SQLITE_BUSY errors under concurrent requests.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// NewStores constructs the full Metadata Store backed by db.
func NewStores(db *sql.DB) *store.Stores {
	return &store.Stores{
		Users:      NewUserStore(db),
		Libraries:  NewLibraryStore(db),
		Pages:      NewPageStore(db),
		Files:      NewFileStore(db),
		Workspaces: NewWorkspaceStore(db),
		Links:      NewLinkStore(db),
		Sessions:   NewSessionStore(db),
	}
}

// nowString formats t as the TEXT timestamp representation used by the
// sqlite schema (ISO-8601 with millisecond precision, UTC).
func nowString(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// parseTime parses a TEXT timestamp column back into a time.Time.
func parseTime(s string) time.Time {
	t, err := time.Parse("2006-01-02T15:04:05.000Z", s)
	if err != nil {
		// sqlite's strftime('%Y-%m-%dT%H:%M:%fZ', 'now') default occasionally
		// yields fewer fractional digits; fall back to RFC3339.
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
