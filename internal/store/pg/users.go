package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/flabwick/papyrus/internal/apperr"
	"github.com/flabwick/papyrus/internal/models"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore { return &UserStore{db: db} }

func (s *UserStore) Create(ctx context.Context, username, passwordHash string, quota int64) (*models.User, error) {
	u := &models.User{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Username:     username,
		PasswordHash: passwordHash,
		StorageQuota: quota,
	}
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO users (id, username, password_hash, storage_quota)
		 VALUES ($1, $2, $3, $4) RETURNING created_at`,
		u.ID, u.Username, u.PasswordHash, u.StorageQuota,
	)
	if err := row.Scan(&u.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict(username, "username already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *UserStore) Get(ctx context.Context, id string) (*models.User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, storage_quota, created_at FROM users WHERE id = $1`, id))
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, storage_quota, created_at FROM users WHERE username = $1`, username))
}

func (s *UserStore) scanOne(row *sql.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.StorageQuota, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("user", "user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *UserStore) List(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, password_hash, storage_quota, created_at FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.StorageQuota, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

func (s *UserStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("user", "user not found")
	}
	return nil
}

func (s *UserStore) SetPasswordHash(ctx context.Context, id, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("set password hash: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("user", "user not found")
	}
	return nil
}

// StorageUsed sums File sizes and saved-Page backing file sizes for userID.
// Derived on read, never cached (§5: "accept eventual consistency after
// soft-deletes").
func (s *UserStore) StorageUsed(ctx context.Context, userID string) (int64, error) {
	var used int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(f.size), 0)
		FROM files f
		JOIN libraries l ON l.id = f.library_id
		WHERE l.user_id = $1 AND f.deleted_at IS NULL
	`, userID).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("sum file storage: %w", err)
	}

	var pageBytes int64
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(octet_length(p.content)), 0)
		FROM pages p
		JOIN libraries l ON l.id = p.library_id
		WHERE l.user_id = $1 AND p.deleted_at IS NULL AND p.page_type = 'saved'
	`, userID).Scan(&pageBytes)
	if err != nil {
		return 0, fmt.Errorf("sum page storage: %w", err)
	}

	return used + pageBytes, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "unique constraint") || strings.Contains(err.Error(), "duplicate key"))
}
