// Package store defines the Metadata Store interfaces (§3, §4) that sit on
// top of the on-disk content store. Two implementations exist:
// internal/store/pg (Postgres, the primary/multi-user backend) and
// internal/store/sqlite (a pure-Go, CGO-free backend for the single-user/
// offline deployment this is fundamentally a *personal* server for).
package store

import (
	"context"
	"time"

	"github.com/flabwick/papyrus/internal/apperr"
	"github.com/flabwick/papyrus/internal/models"
)

// UserStore persists Users and their derived storage usage.
type UserStore interface {
	Create(ctx context.Context, username, passwordHash string, quota int64) (*models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Delete(ctx context.Context, id string) error
	SetPasswordHash(ctx context.Context, id, passwordHash string) error
	// StorageUsed derives current usage from Files + saved Pages, not a cache (§5).
	StorageUsed(ctx context.Context, userID string) (int64, error)
}

// LibraryStore persists Libraries.
type LibraryStore interface {
	Create(ctx context.Context, userID, name, slug, folderPath string) (*models.Library, error)
	Get(ctx context.Context, id string) (*models.Library, error)
	GetBySlug(ctx context.Context, userID, slug string) (*models.Library, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Library, error)
	SoftDelete(ctx context.Context, id string) error
}

// PageStore persists Pages.
type PageStore interface {
	Create(ctx context.Context, p *models.Page) error
	Get(ctx context.Context, id string) (*models.Page, error)
	GetByTitle(ctx context.Context, libraryID, title string) (*models.Page, error)
	GetByFilePath(ctx context.Context, libraryID, filePath string) (*models.Page, error)
	ListByLibrary(ctx context.Context, libraryID string) ([]*models.Page, error)
	UpdateContent(ctx context.Context, id, content, preview, hash string) error
	UpdateTitle(ctx context.Context, id string, title *string) error
	ConvertUnsavedToSaved(ctx context.Context, id, title, filePath, hash string) error
	SoftDelete(ctx context.Context, id string) error
}

// FileStore persists uploaded Files.
type FileStore interface {
	Create(ctx context.Context, f *models.File) error
	Get(ctx context.Context, id string) (*models.File, error)
	GetByFileName(ctx context.Context, libraryID, fileName string) (*models.File, error)
	ListByLibrary(ctx context.Context, libraryID string) ([]*models.File, error)
	UpdateMetadata(ctx context.Context, id string, meta models.FileMetadata, preview, hash string, status models.ProcessingStatus, procErr string) error
	SetCoverImagePath(ctx context.Context, id, path string) error
	SoftDelete(ctx context.Context, id string) error
}

// WorkspaceStore persists Workspaces and their item membership.
type WorkspaceStore interface {
	Create(ctx context.Context, libraryID, title string) (*models.Workspace, error)
	Get(ctx context.Context, id string) (*models.Workspace, error)
	ListByLibrary(ctx context.Context, libraryID string) ([]*models.Workspace, error)
	Delete(ctx context.Context, id string) error
	SetFavorited(ctx context.Context, id string, fav bool) error
	Touch(ctx context.Context, id string, at time.Time) error

	// WithLock runs fn holding the per-Workspace critical section (§5: a
	// row-level lock on the workspace row for the duration of insert/move/
	// remove) for the duration of fn.
	WithLock(ctx context.Context, workspaceID string, fn func(ctx context.Context) error) error

	Items(ctx context.Context, workspaceID string) ([]models.WorkspaceItem, error)
	InsertItem(ctx context.Context, item models.WorkspaceItem) error
	DeleteItem(ctx context.Context, workspaceID, itemID string, kind models.ItemKind) error
	ShiftPositions(ctx context.Context, workspaceID string, from int, delta int) error
	UpdatePosition(ctx context.Context, workspaceID, itemID string, kind models.ItemKind, pos int) error
	UpdateFlags(ctx context.Context, workspaceID, itemID string, kind models.ItemKind, depth *int, aiCtx *bool, collapsed *bool) error
	CountItems(ctx context.Context, workspaceID string) (int, error)
}

// LinkStore persists PageLinks.
type LinkStore interface {
	ReplaceLinks(ctx context.Context, sourcePageID string, links []models.PageLink) error
	ForwardLinks(ctx context.Context, pageID string) ([]models.PageLink, error)
	Backlinks(ctx context.Context, pageID string) ([]models.PageLink, error)
	ResolveTitle(ctx context.Context, libraryID, title string) (string, bool, error)
	ReresolveBrokenLinksTo(ctx context.Context, libraryID, title, pageID string) error
}

// SessionStore persists web sessions and CLI bearer tokens (§3, §6).
type SessionStore interface {
	Create(ctx context.Context, userID string, isCLI bool, ttl time.Duration) (*models.Session, error)
	GetByToken(ctx context.Context, token string) (*models.Session, error)
	Delete(ctx context.Context, token string) error
}

// Stores is the top-level container for all Metadata Store backends,
// mirroring the teacher's store.Stores aggregate.
type Stores struct {
	Users      UserStore
	Libraries  LibraryStore
	Pages      PageStore
	Files      FileStore
	Workspaces WorkspaceStore
	Links      LinkStore
	Sessions   SessionStore
}

// CheckQuota enforces a User's storage quota (§4.5, §4.7, §8): additional is
// the size of the bytes about to be written, checked against quota minus
// current derived usage before they ever touch disk.
func CheckQuota(ctx context.Context, stores *Stores, userID string, additional int64) error {
	user, err := stores.Users.Get(ctx, userID)
	if err != nil {
		return err
	}
	used, err := stores.Users.StorageUsed(ctx, userID)
	if err != nil {
		return err
	}
	if used+additional > user.StorageQuota {
		return apperr.QuotaExceeded(userID, "upload would exceed storage quota")
	}
	return nil
}
