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

type WorkspaceStore struct {
	db *sql.DB
}

func NewWorkspaceStore(db *sql.DB) *WorkspaceStore { return &WorkspaceStore{db: db} }

func (s *WorkspaceStore) Create(ctx context.Context, libraryID, title string) (*models.Workspace, error) {
	w := &models.Workspace{
		ID:        uuid.Must(uuid.NewV7()).String(),
		LibraryID: libraryID,
		Title:     title,
	}
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO workspaces (id, library_id, title)
		 VALUES ($1, $2, $3) RETURNING is_favorited, last_accessed_at, created_at, updated_at`,
		w.ID, w.LibraryID, w.Title,
	)
	if err := row.Scan(&w.IsFavorited, &w.LastAccessedAt, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return w, nil
}

func (s *WorkspaceStore) Get(ctx context.Context, id string) (*models.Workspace, error) {
	var w models.Workspace
	err := s.db.QueryRowContext(ctx,
		`SELECT id, library_id, title, is_favorited, last_accessed_at, created_at, updated_at
		 FROM workspaces WHERE id = $1`, id,
	).Scan(&w.ID, &w.LibraryID, &w.Title, &w.IsFavorited, &w.LastAccessedAt, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("workspace", "workspace not found")
		}
		return nil, fmt.Errorf("get workspace: %w", err)
	}
	return &w, nil
}

func (s *WorkspaceStore) ListByLibrary(ctx context.Context, libraryID string) ([]*models.Workspace, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, library_id, title, is_favorited, last_accessed_at, created_at, updated_at
		 FROM workspaces WHERE library_id = $1 ORDER BY last_accessed_at DESC`, libraryID)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	var out []*models.Workspace
	for rows.Next() {
		var w models.Workspace
		if err := rows.Scan(&w.ID, &w.LibraryID, &w.Title, &w.IsFavorited, &w.LastAccessedAt, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		out = append(out, &w)
	}
	return out, rows.Err()
}

func (s *WorkspaceStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM workspaces WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete workspace: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("workspace", "workspace not found")
	}
	return nil
}

func (s *WorkspaceStore) SetFavorited(ctx context.Context, id string, fav bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE workspaces SET is_favorited = $1, updated_at = $2 WHERE id = $3`, fav, time.Now(), id)
	if err != nil {
		return fmt.Errorf("set workspace favorited: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("workspace", "workspace not found")
	}
	return nil
}

func (s *WorkspaceStore) Touch(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE workspaces SET last_accessed_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("touch workspace: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("workspace", "workspace not found")
	}
	return nil
}

// WithLock serializes AddItem/MoveItem/RemoveItem against a single Workspace
// (§5) using a transaction holding `SELECT ... FOR UPDATE` on the workspace
// row for fn's duration, so concurrent callers queue rather than race on the
// dense position sequence.
func (s *WorkspaceStore) WithLock(ctx context.Context, workspaceID string, fn func(ctx context.Context) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin workspace lock: %w", err)
	}
	defer tx.Rollback()

	var exists string
	if err := tx.QueryRowContext(ctx, `SELECT id FROM workspaces WHERE id = $1 FOR UPDATE`, workspaceID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("workspace", "workspace not found")
		}
		return fmt.Errorf("lock workspace: %w", err)
	}

	txCtx := withTx(ctx, tx)
	if err := fn(txCtx); err != nil {
		return err
	}
	return tx.Commit()
}

type txKey struct{}

func withTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// execer abstracts over *sql.DB and *sql.Tx so item operations run inside
// WithLock's transaction when one is present on ctx, and directly otherwise.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *WorkspaceStore) execer(ctx context.Context) execer {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

func (s *WorkspaceStore) Items(ctx context.Context, workspaceID string) ([]models.WorkspaceItem, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT workspace_id, item_id, item_kind, position, depth, is_in_ai_context, is_collapsed, added_at
		 FROM workspace_items WHERE workspace_id = $1 ORDER BY position`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list workspace items: %w", err)
	}
	defer rows.Close()

	var out []models.WorkspaceItem
	for rows.Next() {
		var it models.WorkspaceItem
		if err := rows.Scan(&it.WorkspaceID, &it.ItemID, &it.ItemKind, &it.Position, &it.Depth, &it.IsInAIContext, &it.IsCollapsed, &it.AddedAt); err != nil {
			return nil, fmt.Errorf("scan workspace item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *WorkspaceStore) InsertItem(ctx context.Context, item models.WorkspaceItem) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`INSERT INTO workspace_items (workspace_id, item_id, item_kind, position, depth, is_in_ai_context, is_collapsed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		item.WorkspaceID, item.ItemID, item.ItemKind, item.Position, item.Depth, item.IsInAIContext, item.IsCollapsed,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict(item.ItemID, "item is already present in the workspace")
		}
		return fmt.Errorf("insert workspace item: %w", err)
	}
	return nil
}

func (s *WorkspaceStore) DeleteItem(ctx context.Context, workspaceID, itemID string, kind models.ItemKind) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM workspace_items WHERE workspace_id = $1 AND item_id = $2 AND item_kind = $3`,
		workspaceID, itemID, kind)
	if err != nil {
		return fmt.Errorf("delete workspace item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("workspace item", "item not found in workspace")
	}
	return nil
}

// ShiftPositions adds delta to every item's position at or after from,
// closing or opening the gap left by a remove/insert. Rewritten on a
// temporary negative offset to dodge the (workspace_id, position) unique
// index while the shift is in flight.
func (s *WorkspaceStore) ShiftPositions(ctx context.Context, workspaceID string, from int, delta int) error {
	e := s.execer(ctx)
	if _, err := e.ExecContext(ctx,
		`UPDATE workspace_items SET position = -(position + 1000000)
		 WHERE workspace_id = $1 AND position >= $2`, workspaceID, from); err != nil {
		return fmt.Errorf("shift positions (stage): %w", err)
	}
	if _, err := e.ExecContext(ctx,
		`UPDATE workspace_items SET position = (-position - 1000000) + $1
		 WHERE workspace_id = $2 AND position < 0`, delta, workspaceID); err != nil {
		return fmt.Errorf("shift positions (apply): %w", err)
	}
	return nil
}

func (s *WorkspaceStore) UpdatePosition(ctx context.Context, workspaceID, itemID string, kind models.ItemKind, pos int) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE workspace_items SET position = $1 WHERE workspace_id = $2 AND item_id = $3 AND item_kind = $4`,
		pos, workspaceID, itemID, kind)
	if err != nil {
		return fmt.Errorf("update item position: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("workspace item", "item not found in workspace")
	}
	return nil
}

func (s *WorkspaceStore) UpdateFlags(ctx context.Context, workspaceID, itemID string, kind models.ItemKind, depth *int, aiCtx *bool, collapsed *bool) error {
	e := s.execer(ctx)
	if depth != nil {
		if _, err := e.ExecContext(ctx,
			`UPDATE workspace_items SET depth = $1 WHERE workspace_id = $2 AND item_id = $3 AND item_kind = $4`,
			*depth, workspaceID, itemID, kind); err != nil {
			return fmt.Errorf("update item depth: %w", err)
		}
	}
	if aiCtx != nil {
		if _, err := e.ExecContext(ctx,
			`UPDATE workspace_items SET is_in_ai_context = $1 WHERE workspace_id = $2 AND item_id = $3 AND item_kind = $4`,
			*aiCtx, workspaceID, itemID, kind); err != nil {
			return fmt.Errorf("update item ai context flag: %w", err)
		}
	}
	if collapsed != nil {
		if _, err := e.ExecContext(ctx,
			`UPDATE workspace_items SET is_collapsed = $1 WHERE workspace_id = $2 AND item_id = $3 AND item_kind = $4`,
			*collapsed, workspaceID, itemID, kind); err != nil {
			return fmt.Errorf("update item collapsed flag: %w", err)
		}
	}
	return nil
}

func (s *WorkspaceStore) CountItems(ctx context.Context, workspaceID string) (int, error) {
	var n int
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT count(*) FROM workspace_items WHERE workspace_id = $1`, workspaceID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count workspace items: %w", err)
	}
	return n, nil
}
