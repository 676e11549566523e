package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/flabwick/papyrus/internal/models"
)

type LinkStore struct {
	db *sql.DB
}

func NewLinkStore(db *sql.DB) *LinkStore { return &LinkStore{db: db} }

// ReplaceLinks atomically swaps sourcePageID's outgoing links for links: the
// reparse-on-save strategy of deleting then bulk re-inserting rather than
// diffing the old and new edge sets, matching the postgres backend.
func (s *LinkStore) ReplaceLinks(ctx context.Context, sourcePageID string, links []models.PageLink) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace links: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM page_links WHERE source_page_id = ?`, sourcePageID); err != nil {
		return fmt.Errorf("clear links: %w", err)
	}

	for _, l := range links {
		id := l.ID
		if id == "" {
			id = uuid.Must(uuid.NewV7()).String()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO page_links (id, source_page_id, target_page_id, link_text, position)
			 VALUES (?, ?, ?, ?, ?)`,
			id, sourcePageID, l.TargetPageID, l.LinkText, l.Position,
		); err != nil {
			return fmt.Errorf("insert link: %w", err)
		}
	}

	return tx.Commit()
}

func scanLinks(rows *sql.Rows) ([]models.PageLink, error) {
	defer rows.Close()
	var out []models.PageLink
	for rows.Next() {
		var l models.PageLink
		if err := rows.Scan(&l.ID, &l.SourcePageID, &l.TargetPageID, &l.LinkText, &l.Position); err != nil {
			return nil, fmt.Errorf("scan page link: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *LinkStore) ForwardLinks(ctx context.Context, pageID string) ([]models.PageLink, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_page_id, target_page_id, link_text, position
		 FROM page_links WHERE source_page_id = ? ORDER BY position`, pageID)
	if err != nil {
		return nil, fmt.Errorf("forward links: %w", err)
	}
	return scanLinks(rows)
}

func (s *LinkStore) Backlinks(ctx context.Context, pageID string) ([]models.PageLink, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_page_id, target_page_id, link_text, position
		 FROM page_links WHERE target_page_id = ? ORDER BY position`, pageID)
	if err != nil {
		return nil, fmt.Errorf("backlinks: %w", err)
	}
	return scanLinks(rows)
}

// ResolveTitle looks up the saved Page whose title matches title within
// libraryID, case-insensitively, as required by the `[[title]]` link
// resolution rule. The bool return is false when no match exists,
// distinguishing "broken link" from a query error.
func (s *LinkStore) ResolveTitle(ctx context.Context, libraryID, title string) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM pages
		 WHERE library_id = ? AND lower(title) = lower(?) AND page_type = 'saved' AND deleted_at IS NULL`,
		libraryID, title,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resolve title: %w", err)
	}
	return id, true, nil
}

// ReresolveBrokenLinksTo re-points every page_links row whose link_text
// matches title and whose target is still unresolved to pageID, the repair
// step run after a new Page is saved with a title that earlier broken links
// were already waiting on.
func (s *LinkStore) ReresolveBrokenLinksTo(ctx context.Context, libraryID, title, pageID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE page_links SET target_page_id = ?
		WHERE target_page_id IS NULL
		  AND lower(link_text) = lower(?)
		  AND source_page_id IN (SELECT id FROM pages WHERE library_id = ?)
	`, pageID, title, libraryID)
	if err != nil {
		return fmt.Errorf("reresolve broken links: %w", err)
	}
	return nil
}
