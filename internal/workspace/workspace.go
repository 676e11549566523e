// Package workspace implements the Workspace Engine (§4.4): ordered,
// mixed-kind membership of Pages and Files inside a Workspace, maintained as
// a dense 0..n-1 position sequence under a per-workspace critical section.
package workspace

import (
	"context"
	"fmt"

	"github.com/flabwick/papyrus/internal/apperr"
	"github.com/flabwick/papyrus/internal/models"
	"github.com/flabwick/papyrus/internal/store"
)

// Engine mutates Workspace membership through the store's WithLock critical
// section (§5), so concurrent AddItem/MoveItem/RemoveItem calls against the
// same Workspace serialize instead of corrupting the position sequence.
type Engine struct {
	workspaces store.WorkspaceStore
	pages      store.PageStore
	files      store.FileStore
}

// New constructs an Engine over the given stores.
func New(workspaces store.WorkspaceStore, pages store.PageStore, files store.FileStore) *Engine {
	return &Engine{workspaces: workspaces, pages: pages, files: files}
}

// AddItem appends item at the end of workspaceID's ordered list, or inserts
// it at a specific position when at is non-nil, shifting everything from
// that position onward up by one to keep positions dense.
func (e *Engine) AddItem(ctx context.Context, workspaceID, itemID string, kind models.ItemKind, at *int) error {
	return e.workspaces.WithLock(ctx, workspaceID, func(ctx context.Context) error {
		count, err := e.workspaces.CountItems(ctx, workspaceID)
		if err != nil {
			return err
		}

		pos := count
		if at != nil {
			pos = clamp(*at, 0, count)
			if pos < count {
				if err := e.workspaces.ShiftPositions(ctx, workspaceID, pos, 1); err != nil {
					return err
				}
			}
		}

		return e.workspaces.InsertItem(ctx, models.WorkspaceItem{
			WorkspaceID: workspaceID,
			ItemID:      itemID,
			ItemKind:    kind,
			Position:    pos,
		})
	})
}

// MoveItem relocates an existing item to newPos. The moved row is parked
// (deleted) before either shift runs, so neither shift ever has to place two
// rows on the same position at once: closing the gap at oldPos and opening
// one at target both operate on a table that no longer holds the moved row,
// and it is reinserted only once the sequence is dense again.
func (e *Engine) MoveItem(ctx context.Context, workspaceID, itemID string, kind models.ItemKind, newPos int) error {
	return e.workspaces.WithLock(ctx, workspaceID, func(ctx context.Context) error {
		items, err := e.workspaces.Items(ctx, workspaceID)
		if err != nil {
			return err
		}

		var moved *models.WorkspaceItem
		for i := range items {
			if items[i].ItemID == itemID && items[i].ItemKind == kind {
				moved = &items[i]
				break
			}
		}
		if moved == nil {
			return apperr.NotFound("workspace item", "item not found in workspace")
		}
		oldPos := moved.Position

		target := clamp(newPos, 0, len(items)-1)
		if target == oldPos {
			return nil
		}

		if err := e.workspaces.DeleteItem(ctx, workspaceID, itemID, kind); err != nil {
			return err
		}
		if err := e.workspaces.ShiftPositions(ctx, workspaceID, oldPos+1, -1); err != nil {
			return err
		}
		if err := e.workspaces.ShiftPositions(ctx, workspaceID, target, 1); err != nil {
			return err
		}

		moved.Position = target
		return e.workspaces.InsertItem(ctx, *moved)
	})
}

// RemoveItem deletes item from workspaceID and closes the gap it leaves.
func (e *Engine) RemoveItem(ctx context.Context, workspaceID, itemID string, kind models.ItemKind) error {
	return e.workspaces.WithLock(ctx, workspaceID, func(ctx context.Context) error {
		items, err := e.workspaces.Items(ctx, workspaceID)
		if err != nil {
			return err
		}
		pos := -1
		for _, it := range items {
			if it.ItemID == itemID && it.ItemKind == kind {
				pos = it.Position
				break
			}
		}
		if pos == -1 {
			return apperr.NotFound("workspace item", "item not found in workspace")
		}

		if err := e.workspaces.DeleteItem(ctx, workspaceID, itemID, kind); err != nil {
			return err
		}
		return e.workspaces.ShiftPositions(ctx, workspaceID, pos+1, -1)
	})
}

// UpdateFlags sets the given (non-nil) per-item flags without disturbing
// position.
func (e *Engine) UpdateFlags(ctx context.Context, workspaceID, itemID string, kind models.ItemKind, depth *int, aiCtx *bool, collapsed *bool) error {
	return e.workspaces.UpdateFlags(ctx, workspaceID, itemID, kind, depth, aiCtx, collapsed)
}

// ListItems returns workspaceID's items in position order, each joined with
// a display title/preview drawn from the underlying Page or File.
func (e *Engine) ListItems(ctx context.Context, workspaceID string) ([]models.WorkspaceItemView, error) {
	items, err := e.workspaces.Items(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	views := make([]models.WorkspaceItemView, 0, len(items))
	for _, it := range items {
		view := models.WorkspaceItemView{WorkspaceItem: it}
		switch it.ItemKind {
		case models.ItemKindPage:
			p, err := e.pages.Get(ctx, it.ItemID)
			if err != nil {
				return nil, fmt.Errorf("resolve workspace page %s: %w", it.ItemID, err)
			}
			if p.Title != nil {
				view.Title = *p.Title
			}
			view.Preview = p.ContentPreview
		case models.ItemKindFile:
			f, err := e.files.Get(ctx, it.ItemID)
			if err != nil {
				return nil, fmt.Errorf("resolve workspace file %s: %w", it.ItemID, err)
			}
			view.Title = f.FileName
			view.Preview = f.ContentPreview
		}
		views = append(views, view)
	}
	return views, nil
}

// AIContextItems returns the subset of workspaceID's items flagged
// is_in_ai_context, in position order — the set fed to the AI Streaming
// Bridge as conversational context (§4.8).
func (e *Engine) AIContextItems(ctx context.Context, workspaceID string) ([]models.WorkspaceItemView, error) {
	all, err := e.ListItems(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	out := make([]models.WorkspaceItemView, 0, len(all))
	for _, v := range all {
		if v.IsInAIContext {
			out = append(out, v)
		}
	}
	return out, nil
}

// Duplicate creates a new Workspace in the same Library with the same
// ordered item membership as sourceID, under newTitle.
func (e *Engine) Duplicate(ctx context.Context, sourceID, newTitle string) (*models.Workspace, error) {
	src, err := e.workspaces.Get(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	items, err := e.workspaces.Items(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	dst, err := e.workspaces.Create(ctx, src.LibraryID, newTitle)
	if err != nil {
		return nil, err
	}

	err = e.workspaces.WithLock(ctx, dst.ID, func(ctx context.Context) error {
		for _, it := range items {
			if err := e.workspaces.InsertItem(ctx, models.WorkspaceItem{
				WorkspaceID:   dst.ID,
				ItemID:        it.ItemID,
				ItemKind:      it.ItemKind,
				Position:      it.Position,
				Depth:         it.Depth,
				IsInAIContext: it.IsInAIContext,
				IsCollapsed:   it.IsCollapsed,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("duplicate workspace items: %w", err)
	}

	return dst, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
