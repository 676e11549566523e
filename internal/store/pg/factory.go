// Package pg implements the Metadata Store (internal/store) on Postgres,
// grounded on this repo's original internal/store/pg package: plain
// database/sql over the pgx/v5 stdlib driver, one file per resource, the
// same fmt.Errorf("...: %w", err) wrapping convention throughout.
package pg

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/flabwick/papyrus/internal/store"
)

// OpenDB opens a connection pool against dsn using the pgx stdlib driver.
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
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
