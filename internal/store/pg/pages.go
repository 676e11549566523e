package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flabwick/papyrus/internal/apperr"
	"github.com/flabwick/papyrus/internal/models"
)

type PageStore struct {
	db *sql.DB
}

func NewPageStore(db *sql.DB) *PageStore { return &PageStore{db: db} }

func (s *PageStore) Create(ctx context.Context, p *models.Page) error {
	if p.ID == "" {
		p.ID = uuid.Must(uuid.NewV7()).String()
	}
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO pages (id, library_id, title, page_type, content, content_preview, file_path, file_id, workspace_id, file_hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING created_at, updated_at`,
		p.ID, p.LibraryID, p.Title, p.PageType, p.Content, p.ContentPreview, p.FilePath, p.FileID, p.WorkspaceID, p.FileHash,
	)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict(p.ID, "a page with this title already exists in the library")
		}
		return fmt.Errorf("create page: %w", err)
	}
	return nil
}

const pageColumns = `id, library_id, title, page_type, content, content_preview, file_path, file_id, workspace_id, file_hash, created_at, updated_at, deleted_at`

func scanPage(row interface{ Scan(...any) error }) (*models.Page, error) {
	var p models.Page
	var title, filePath, fileID, workspaceID sql.NullString
	var deletedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.LibraryID, &title, &p.PageType, &p.Content, &p.ContentPreview,
		&filePath, &fileID, &workspaceID, &p.FileHash, &p.CreatedAt, &p.UpdatedAt, &deletedAt); err != nil {
		return nil, err
	}
	if title.Valid {
		p.Title = &title.String
	}
	if filePath.Valid {
		p.FilePath = &filePath.String
	}
	if fileID.Valid {
		p.FileID = &fileID.String
	}
	if workspaceID.Valid {
		p.WorkspaceID = &workspaceID.String
	}
	if deletedAt.Valid {
		p.DeletedAt = &deletedAt.Time
	}
	return &p, nil
}

func (s *PageStore) Get(ctx context.Context, id string) (*models.Page, error) {
	p, err := scanPage(s.db.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE id = $1 AND deleted_at IS NULL`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("page", "page not found")
		}
		return nil, fmt.Errorf("get page: %w", err)
	}
	return p, nil
}

func (s *PageStore) GetByTitle(ctx context.Context, libraryID, title string) (*models.Page, error) {
	p, err := scanPage(s.db.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM pages
		 WHERE library_id = $1 AND lower(title) = lower($2) AND deleted_at IS NULL AND page_type = 'saved'`,
		libraryID, title))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("page", "page not found")
		}
		return nil, fmt.Errorf("get page by title: %w", err)
	}
	return p, nil
}

func (s *PageStore) GetByFilePath(ctx context.Context, libraryID, filePath string) (*models.Page, error) {
	p, err := scanPage(s.db.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE library_id = $1 AND file_path = $2 AND deleted_at IS NULL`,
		libraryID, filePath))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("page", "page not found")
		}
		return nil, fmt.Errorf("get page by file path: %w", err)
	}
	return p, nil
}

func (s *PageStore) ListByLibrary(ctx context.Context, libraryID string) ([]*models.Page, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE library_id = $1 AND deleted_at IS NULL ORDER BY created_at`, libraryID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var out []*models.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PageStore) UpdateContent(ctx context.Context, id, content, preview, hash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pages SET content = $1, content_preview = $2, file_hash = $3, updated_at = $4
		 WHERE id = $5 AND deleted_at IS NULL`,
		content, preview, hash, time.Now(), id)
	if err != nil {
		return fmt.Errorf("update page content: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("page", "page not found")
	}
	return nil
}

// UpdateTitle implements the unsaved→saved auto-conversion rule (§3): setting
// a non-empty title on an unsaved Page flips page_type to 'saved' and clears
// workspace_id, chosen here as an explicit application-level factory call
// rather than a database trigger (§9 Open Question; see DESIGN.md).
func (s *PageStore) UpdateTitle(ctx context.Context, id string, title *string) error {
	var pageType any
	if title != nil && *title != "" {
		pageType = string(models.PageSaved)
	}

	query := `UPDATE pages SET title = $1, updated_at = $2`
	args := []any{title, time.Now()}
	if pageType != nil {
		query += `, page_type = $3, workspace_id = NULL WHERE id = $4 AND deleted_at IS NULL`
		args = append(args, pageType, id)
	} else {
		query += ` WHERE id = $3 AND deleted_at IS NULL`
		args = append(args, id)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict(id, "a page with this title already exists in the library")
		}
		return fmt.Errorf("update page title: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("page", "page not found")
	}
	return nil
}

// ConvertUnsavedToSaved is the atomic factory operation of §4.7: writes the
// row's page_type, title, file_path, and hash, and clears workspace_id in one
// statement; fails with Conflict if the title collides within the Library.
func (s *PageStore) ConvertUnsavedToSaved(ctx context.Context, id, title, filePath, hash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pages
		 SET page_type = 'saved', title = $1, file_path = $2, file_hash = $3, workspace_id = NULL, updated_at = $4
		 WHERE id = $5 AND deleted_at IS NULL`,
		title, filePath, hash, time.Now(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict(title, "a page with this title already exists in the library")
		}
		return fmt.Errorf("convert unsaved page: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("page", "page not found")
	}
	return nil
}

func (s *PageStore) SoftDelete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pages SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("soft delete page: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("page", "page not found")
	}
	return nil
}
