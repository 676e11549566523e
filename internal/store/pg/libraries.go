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

type LibraryStore struct {
	db *sql.DB
}

func NewLibraryStore(db *sql.DB) *LibraryStore { return &LibraryStore{db: db} }

func (s *LibraryStore) Create(ctx context.Context, userID, name, slug, folderPath string) (*models.Library, error) {
	l := &models.Library{
		ID:         uuid.Must(uuid.NewV7()).String(),
		UserID:     userID,
		Name:       name,
		Slug:       slug,
		FolderPath: folderPath,
	}
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO libraries (id, user_id, name, slug, folder_path)
		 VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		l.ID, l.UserID, l.Name, l.Slug, l.FolderPath,
	)
	if err := row.Scan(&l.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict(slug, "a library with this slug already exists")
		}
		return nil, fmt.Errorf("create library: %w", err)
	}
	return l, nil
}

func (s *LibraryStore) Get(ctx context.Context, id string) (*models.Library, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, slug, folder_path, created_at, deleted_at
		 FROM libraries WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (s *LibraryStore) GetBySlug(ctx context.Context, userID, slug string) (*models.Library, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, slug, folder_path, created_at, deleted_at
		 FROM libraries WHERE user_id = $1 AND slug = $2 AND deleted_at IS NULL`, userID, slug))
}

func (s *LibraryStore) scanOne(row *sql.Row) (*models.Library, error) {
	var l models.Library
	var deletedAt sql.NullTime
	if err := row.Scan(&l.ID, &l.UserID, &l.Name, &l.Slug, &l.FolderPath, &l.CreatedAt, &deletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("library", "library not found")
		}
		return nil, fmt.Errorf("get library: %w", err)
	}
	if deletedAt.Valid {
		l.DeletedAt = &deletedAt.Time
	}
	return &l, nil
}

func (s *LibraryStore) ListByUser(ctx context.Context, userID string) ([]*models.Library, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, slug, folder_path, created_at, deleted_at
		 FROM libraries WHERE user_id = $1 AND deleted_at IS NULL ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list libraries: %w", err)
	}
	defer rows.Close()

	var out []*models.Library
	for rows.Next() {
		var l models.Library
		var deletedAt sql.NullTime
		if err := rows.Scan(&l.ID, &l.UserID, &l.Name, &l.Slug, &l.FolderPath, &l.CreatedAt, &deletedAt); err != nil {
			return nil, fmt.Errorf("scan library: %w", err)
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

func (s *LibraryStore) SoftDelete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE libraries SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("soft delete library: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("library", "library not found")
	}
	return nil
}
