package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/flabwick/papyrus/internal/apperr"
	"github.com/flabwick/papyrus/internal/models"
)

type FileStore struct {
	db *sql.DB
}

func NewFileStore(db *sql.DB) *FileStore { return &FileStore{db: db} }

const fileColumns = `id, library_id, file_name, file_type, size, path, content_preview, cover_image_path, processing_status, processing_error, file_hash, metadata, uploaded_at, deleted_at`

func (s *FileStore) Create(ctx context.Context, f *models.File) error {
	if f.ID == "" {
		f.ID = uuid.Must(uuid.NewV7()).String()
	}
	meta, err := json.Marshal(f.Metadata)
	if err != nil {
		return fmt.Errorf("marshal file metadata: %w", err)
	}
	if f.ProcessingStatus == "" {
		f.ProcessingStatus = models.ProcessingPending
	}
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO files (id, library_id, file_name, file_type, size, path, content_preview, cover_image_path, processing_status, processing_error, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING uploaded_at`,
		f.ID, f.LibraryID, f.FileName, f.FileType, f.Size, f.Path, f.ContentPreview, f.CoverImagePath, f.ProcessingStatus, f.ProcessingError, meta,
	)
	if err := row.Scan(&f.UploadedAt); err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict(f.FileName, "a file with this name already exists in the library")
		}
		return fmt.Errorf("create file: %w", err)
	}
	return nil
}

func scanFile(row interface{ Scan(...any) error }) (*models.File, error) {
	var f models.File
	var coverPath sql.NullString
	var deletedAt sql.NullTime
	var meta []byte
	var hash string
	if err := row.Scan(&f.ID, &f.LibraryID, &f.FileName, &f.FileType, &f.Size, &f.Path, &f.ContentPreview,
		&coverPath, &f.ProcessingStatus, &f.ProcessingError, &hash, &meta, &f.UploadedAt, &deletedAt); err != nil {
		return nil, err
	}
	if coverPath.Valid {
		f.CoverImagePath = &coverPath.String
	}
	if deletedAt.Valid {
		f.DeletedAt = &deletedAt.Time
	}
	f.FileHash = hash
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &f.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal file metadata: %w", err)
		}
	}
	return &f, nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*models.File, error) {
	f, err := scanFile(s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE id = $1 AND deleted_at IS NULL`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("file", "file not found")
		}
		return nil, fmt.Errorf("get file: %w", err)
	}
	return f, nil
}

func (s *FileStore) GetByFileName(ctx context.Context, libraryID, fileName string) (*models.File, error) {
	f, err := scanFile(s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE library_id = $1 AND file_name = $2 AND deleted_at IS NULL`,
		libraryID, fileName))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("file", "file not found")
		}
		return nil, fmt.Errorf("get file by name: %w", err)
	}
	return f, nil
}

func (s *FileStore) ListByLibrary(ctx context.Context, libraryID string) ([]*models.File, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE library_id = $1 AND deleted_at IS NULL ORDER BY uploaded_at`, libraryID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var out []*models.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *FileStore) UpdateMetadata(ctx context.Context, id string, meta models.FileMetadata, preview, hash string, status models.ProcessingStatus, procErr string) error {
	encoded, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal file metadata: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE files SET metadata = $1, content_preview = $2, processing_status = $3, processing_error = $4, file_hash = $5
		 WHERE id = $6 AND deleted_at IS NULL`,
		encoded, preview, status, procErr, hash, id)
	if err != nil {
		return fmt.Errorf("update file metadata: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("file", "file not found")
	}
	return nil
}

func (s *FileStore) SetCoverImagePath(ctx context.Context, id, path string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE files SET cover_image_path = $1 WHERE id = $2 AND deleted_at IS NULL`, path, id)
	if err != nil {
		return fmt.Errorf("set cover image path: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("file", "file not found")
	}
	return nil
}

func (s *FileStore) SoftDelete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE files SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("soft delete file: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("file", "file not found")
	}
	return nil
}
