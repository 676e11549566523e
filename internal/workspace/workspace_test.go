package workspace

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flabwick/papyrus/internal/models"
)

// fakeWorkspaceStore is an in-memory stand-in for store.WorkspaceStore,
// exercising only the item-ordering operations the Engine drives.
type fakeWorkspaceStore struct {
	items map[string][]models.WorkspaceItem
}

func newFakeWorkspaceStore() *fakeWorkspaceStore {
	return &fakeWorkspaceStore{items: make(map[string][]models.WorkspaceItem)}
}

func (f *fakeWorkspaceStore) Create(ctx context.Context, libraryID, title string) (*models.Workspace, error) {
	return nil, nil
}
func (f *fakeWorkspaceStore) Get(ctx context.Context, id string) (*models.Workspace, error) {
	return nil, nil
}
func (f *fakeWorkspaceStore) ListByLibrary(ctx context.Context, libraryID string) ([]*models.Workspace, error) {
	return nil, nil
}
func (f *fakeWorkspaceStore) Delete(ctx context.Context, id string) error                 { return nil }
func (f *fakeWorkspaceStore) SetFavorited(ctx context.Context, id string, fav bool) error { return nil }
func (f *fakeWorkspaceStore) Touch(ctx context.Context, id string, at time.Time) error    { return nil }

func (f *fakeWorkspaceStore) WithLock(ctx context.Context, workspaceID string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeWorkspaceStore) Items(ctx context.Context, workspaceID string) ([]models.WorkspaceItem, error) {
	items := append([]models.WorkspaceItem(nil), f.items[workspaceID]...)
	sort.Slice(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	return items, nil
}

func (f *fakeWorkspaceStore) InsertItem(ctx context.Context, item models.WorkspaceItem) error {
	f.items[item.WorkspaceID] = append(f.items[item.WorkspaceID], item)
	return f.checkUnique(item.WorkspaceID)
}

func (f *fakeWorkspaceStore) DeleteItem(ctx context.Context, workspaceID, itemID string, kind models.ItemKind) error {
	items := f.items[workspaceID]
	for i, it := range items {
		if it.ItemID == itemID && it.ItemKind == kind {
			f.items[workspaceID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeWorkspaceStore) ShiftPositions(ctx context.Context, workspaceID string, from int, delta int) error {
	items := f.items[workspaceID]
	for i := range items {
		if items[i].Position >= from {
			items[i].Position += delta
		}
	}
	return f.checkUnique(workspaceID)
}

// checkUnique simulates the workspace_items_position_uniq index: real
// ShiftPositions calls never collide internally (both backends stage
// through a negative offset), so any duplicate position reaching this
// fake means the Engine sequenced two store calls badly.
func (f *fakeWorkspaceStore) checkUnique(workspaceID string) error {
	seen := make(map[int]bool)
	for _, it := range f.items[workspaceID] {
		if seen[it.Position] {
			return fmt.Errorf("duplicate position %d in workspace %s", it.Position, workspaceID)
		}
		seen[it.Position] = true
	}
	return nil
}

func (f *fakeWorkspaceStore) UpdatePosition(ctx context.Context, workspaceID, itemID string, kind models.ItemKind, pos int) error {
	items := f.items[workspaceID]
	for i := range items {
		if items[i].ItemID == itemID && items[i].ItemKind == kind {
			items[i].Position = pos
		}
	}
	return nil
}

func (f *fakeWorkspaceStore) UpdateFlags(ctx context.Context, workspaceID, itemID string, kind models.ItemKind, depth *int, aiCtx *bool, collapsed *bool) error {
	items := f.items[workspaceID]
	for i := range items {
		if items[i].ItemID == itemID && items[i].ItemKind == kind {
			if depth != nil {
				items[i].Depth = *depth
			}
			if aiCtx != nil {
				items[i].IsInAIContext = *aiCtx
			}
			if collapsed != nil {
				items[i].IsCollapsed = *collapsed
			}
		}
	}
	return nil
}

func (f *fakeWorkspaceStore) CountItems(ctx context.Context, workspaceID string) (int, error) {
	return len(f.items[workspaceID]), nil
}

func TestEngineAddItemAppendsAtEnd(t *testing.T) {
	store := newFakeWorkspaceStore()
	e := &Engine{workspaces: store}

	require.NoError(t, e.AddItem(context.Background(), "ws1", "page-a", models.ItemKindPage, nil))
	require.NoError(t, e.AddItem(context.Background(), "ws1", "page-b", models.ItemKindPage, nil))

	items, err := store.Items(context.Background(), "ws1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, 0, items[0].Position)
	require.Equal(t, 1, items[1].Position)
}

func TestEngineAddItemInsertsAndShifts(t *testing.T) {
	store := newFakeWorkspaceStore()
	e := &Engine{workspaces: store}
	ctx := context.Background()

	require.NoError(t, e.AddItem(ctx, "ws1", "a", models.ItemKindPage, nil))
	require.NoError(t, e.AddItem(ctx, "ws1", "b", models.ItemKindPage, nil))
	zero := 0
	require.NoError(t, e.AddItem(ctx, "ws1", "c", models.ItemKindPage, &zero))

	items, err := store.Items(ctx, "ws1")
	require.NoError(t, err)
	require.Equal(t, "c", items[0].ItemID)
	require.Equal(t, "a", items[1].ItemID)
	require.Equal(t, "b", items[2].ItemID)
}

func TestEngineRemoveItemClosesGap(t *testing.T) {
	store := newFakeWorkspaceStore()
	e := &Engine{workspaces: store}
	ctx := context.Background()

	require.NoError(t, e.AddItem(ctx, "ws1", "a", models.ItemKindPage, nil))
	require.NoError(t, e.AddItem(ctx, "ws1", "b", models.ItemKindPage, nil))
	require.NoError(t, e.AddItem(ctx, "ws1", "c", models.ItemKindPage, nil))

	require.NoError(t, e.RemoveItem(ctx, "ws1", "b", models.ItemKindPage))

	items, err := store.Items(ctx, "ws1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "a", items[0].ItemID)
	require.Equal(t, 0, items[0].Position)
	require.Equal(t, "c", items[1].ItemID)
	require.Equal(t, 1, items[1].Position)
}

func TestEngineRemoveItemNotFound(t *testing.T) {
	store := newFakeWorkspaceStore()
	e := &Engine{workspaces: store}
	err := e.RemoveItem(context.Background(), "ws1", "missing", models.ItemKindPage)
	require.Error(t, err)
}

func TestEngineMoveItemToEarlierPosition(t *testing.T) {
	store := newFakeWorkspaceStore()
	e := &Engine{workspaces: store}
	ctx := context.Background()

	require.NoError(t, e.AddItem(ctx, "ws1", "a", models.ItemKindPage, nil))
	require.NoError(t, e.AddItem(ctx, "ws1", "b", models.ItemKindPage, nil))
	require.NoError(t, e.AddItem(ctx, "ws1", "f", models.ItemKindPage, nil))

	require.NoError(t, e.MoveItem(ctx, "ws1", "f", models.ItemKindPage, 0))

	items, err := store.Items(ctx, "ws1")
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, []string{"f", "a", "b"}, []string{items[0].ItemID, items[1].ItemID, items[2].ItemID})
	require.Equal(t, []int{0, 1, 2}, []int{items[0].Position, items[1].Position, items[2].Position})
}

func TestEngineMoveItemToLaterPosition(t *testing.T) {
	store := newFakeWorkspaceStore()
	e := &Engine{workspaces: store}
	ctx := context.Background()

	require.NoError(t, e.AddItem(ctx, "ws1", "a", models.ItemKindPage, nil))
	require.NoError(t, e.AddItem(ctx, "ws1", "b", models.ItemKindPage, nil))
	require.NoError(t, e.AddItem(ctx, "ws1", "c", models.ItemKindPage, nil))

	require.NoError(t, e.MoveItem(ctx, "ws1", "a", models.ItemKindPage, 2))

	items, err := store.Items(ctx, "ws1")
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, []string{"b", "c", "a"}, []string{items[0].ItemID, items[1].ItemID, items[2].ItemID})
	require.Equal(t, []int{0, 1, 2}, []int{items[0].Position, items[1].Position, items[2].Position})
}

func TestEngineMoveItemToSamePositionIsNoop(t *testing.T) {
	store := newFakeWorkspaceStore()
	e := &Engine{workspaces: store}
	ctx := context.Background()

	require.NoError(t, e.AddItem(ctx, "ws1", "a", models.ItemKindPage, nil))
	require.NoError(t, e.AddItem(ctx, "ws1", "b", models.ItemKindPage, nil))

	require.NoError(t, e.MoveItem(ctx, "ws1", "a", models.ItemKindPage, 0))

	items, err := store.Items(ctx, "ws1")
	require.NoError(t, err)
	require.Equal(t, "a", items[0].ItemID)
	require.Equal(t, "b", items[1].ItemID)
}

func TestEngineMoveItemNotFound(t *testing.T) {
	store := newFakeWorkspaceStore()
	e := &Engine{workspaces: store}
	err := e.MoveItem(context.Background(), "ws1", "missing", models.ItemKindPage, 0)
	require.Error(t, err)
}
