// Package factory implements the Page/File Factories (§4.7): the entry
// points that create new Pages and Files, enforcing the kind invariants
// that keep the content store and the Metadata Store in agreement.
package factory

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/flabwick/papyrus/internal/apperr"
	"github.com/flabwick/papyrus/internal/contentstore"
	"github.com/flabwick/papyrus/internal/hashutil"
	"github.com/flabwick/papyrus/internal/linkgraph"
	"github.com/flabwick/papyrus/internal/models"
	"github.com/flabwick/papyrus/internal/processors"
	"github.com/flabwick/papyrus/internal/sanitize"
	"github.com/flabwick/papyrus/internal/store"
)

// Factory creates Pages and Files, writing the on-disk file alongside the
// Metadata Store row in the order required to keep ScanLibrary's
// reconciliation idempotent: disk first, then database.
type Factory struct {
	content *contentstore.Store
	stores  *store.Stores
	graph   *linkgraph.Graph
}

// New constructs a Factory over content and stores.
func New(content *contentstore.Store, stores *store.Stores) *Factory {
	return &Factory{content: content, stores: stores, graph: linkgraph.New(stores.Links, stores.Pages)}
}

// CreateSaved creates a saved Page: a titled markdown file at
// <library>/pages/<slug>.md, with its title uniqueness enforced by the
// Metadata Store's partial unique index (§3).
func (f *Factory) CreateSaved(ctx context.Context, username, slug, libraryID, title, content string) (*models.Page, error) {
	pageSlug, err := sanitize.Slug(title)
	if err != nil {
		return nil, err
	}

	absPath := filepath.Join(f.content.PagesDir(username, slug), pageSlug+".md")
	uniquePath := contentstore.UniquePath(absPath)

	if err := contentstore.WriteAtomic(uniquePath, []byte(content)); err != nil {
		return nil, err
	}

	hash := hashutil.HashBytes([]byte(content))

	finalRel, err := filepath.Rel(f.content.LibraryDir(username, slug), uniquePath)
	if err != nil {
		return nil, fmt.Errorf("relativize page path: %w", err)
	}

	page := &models.Page{
		LibraryID:      libraryID,
		Title:          &title,
		PageType:       models.PageSaved,
		Content:        content,
		ContentPreview: preview(content),
		FilePath:       &finalRel,
		FileHash:       hash,
	}
	if err := f.stores.Pages.Create(ctx, page); err != nil {
		return nil, err
	}

	if err := f.graph.Reparse(ctx, libraryID, page.ID, content); err != nil {
		return nil, err
	}
	if err := f.graph.OnPageSaved(ctx, libraryID, title, page.ID); err != nil {
		return nil, err
	}

	return page, nil
}

// CreateUnsaved creates an unsaved Page: a Workspace-scoped scratch buffer
// with no title and no backing file on disk (§3). It has no on-disk
// representation until ConvertUnsavedToSaved promotes it.
func (f *Factory) CreateUnsaved(ctx context.Context, libraryID, workspaceID, content string) (*models.Page, error) {
	page := &models.Page{
		LibraryID:      libraryID,
		PageType:       models.PageUnsaved,
		Content:        content,
		ContentPreview: preview(content),
		WorkspaceID:    &workspaceID,
	}
	if err := f.stores.Pages.Create(ctx, page); err != nil {
		return nil, err
	}
	return page, nil
}

// ConvertUnsavedToSaved promotes an unsaved Page to saved: it is given a
// title, written to disk at <library>/pages/<slug>.md for the first time,
// and detached from its owning Workspace, per the unsaved→saved rule (§3,
// §9 Open Question — resolved as an explicit factory call rather than a
// database trigger; see DESIGN.md).
func (f *Factory) ConvertUnsavedToSaved(ctx context.Context, username, slug, pageID, title string) (*models.Page, error) {
	page, err := f.stores.Pages.Get(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if page.PageType != models.PageUnsaved {
		return nil, apperr.Validation("only unsaved pages can be converted", map[string]string{"pageType": string(page.PageType)})
	}

	pageSlug, err := sanitize.Slug(title)
	if err != nil {
		return nil, err
	}

	absPath := filepath.Join(f.content.PagesDir(username, slug), pageSlug+".md")
	uniquePath := contentstore.UniquePath(absPath)
	if err := contentstore.WriteAtomic(uniquePath, []byte(page.Content)); err != nil {
		return nil, err
	}

	hash := hashutil.HashBytes([]byte(page.Content))

	finalRel, err := filepath.Rel(f.content.LibraryDir(username, slug), uniquePath)
	if err != nil {
		return nil, fmt.Errorf("relativize page path: %w", err)
	}

	if err := f.stores.Pages.ConvertUnsavedToSaved(ctx, pageID, title, finalRel, hash); err != nil {
		return nil, err
	}

	if err := f.graph.Reparse(ctx, page.LibraryID, pageID, page.Content); err != nil {
		return nil, err
	}
	if err := f.graph.OnPageSaved(ctx, page.LibraryID, title, pageID); err != nil {
		return nil, err
	}

	return f.stores.Pages.Get(ctx, pageID)
}

// CreateFile creates a File row plus on-disk artifact for an uploaded
// document, dispatching to the Processor registered for its extension
// (§4.3). Files whose type has no registered Processor are rejected with
// UnsupportedFileType.
func (f *Factory) CreateFile(ctx context.Context, username, slug, libraryID, fileName string, data []byte) (*models.File, error) {
	proc, fileType, ok := processors.ForExtension(fileName)
	if !ok || fileType == "" {
		return nil, apperr.UnsupportedFile(fileName, "unsupported file type")
	}
	if err := proc.Validate(data); err != nil {
		return nil, err
	}

	lib, err := f.stores.Libraries.Get(ctx, libraryID)
	if err != nil {
		return nil, err
	}
	if err := store.CheckQuota(ctx, f.stores, lib.UserID, int64(len(data))); err != nil {
		return nil, err
	}

	absPath := filepath.Join(f.content.FilesDir(username, slug), fileName)
	uniquePath := contentstore.UniquePath(absPath)
	if err := contentstore.WriteAtomic(uniquePath, data); err != nil {
		return nil, err
	}

	hash := hashutil.HashBytes(data)

	finalRel, err := filepath.Rel(f.content.LibraryDir(username, slug), uniquePath)
	if err != nil {
		return nil, fmt.Errorf("relativize file path: %w", err)
	}
	storedName := filepath.Base(uniquePath)

	file := &models.File{
		LibraryID:        libraryID,
		FileName:         storedName,
		FileType:         fileType,
		Size:             int64(len(data)),
		Path:             finalRel,
		FileHash:         hash,
		ProcessingStatus: models.ProcessingPending,
	}
	if err := f.stores.Files.Create(ctx, file); err != nil {
		return nil, err
	}

	result := proc.Process(data, storedName)
	status := result.ProcessingStatus
	if status == "" {
		status = models.ProcessingComplete
	}

	if err := f.stores.Files.UpdateMetadata(ctx, file.ID, result.Metadata, proc.PreviewText(result), hash, status, result.ProcessingError); err != nil {
		return nil, err
	}
	if len(result.CoverImageBytes) > 0 {
		ext := result.CoverImageExt
		if ext == "" {
			ext = ".jpg"
		}
		coverName := strings.TrimSuffix(storedName, filepath.Ext(storedName)) + "_cover" + ext
		coverAbs := filepath.Join(f.content.CoversDir(username, slug), coverName)
		if err := contentstore.WriteAtomic(coverAbs, result.CoverImageBytes); err == nil {
			coverRel, relErr := filepath.Rel(f.content.LibraryDir(username, slug), coverAbs)
			if relErr == nil {
				_ = f.stores.Files.SetCoverImagePath(ctx, file.ID, coverRel)
			}
		}
	}

	return f.stores.Files.Get(ctx, file.ID)
}

// preview returns the first ~280 characters of content for use as a
// listing-view summary, matching the Sync Engine's own preview truncation.
func preview(content string) string {
	const maxLen = 280
	trimmed := strings.TrimSpace(content)
	if len(trimmed) <= maxLen {
		return trimmed
	}
	return trimmed[:maxLen]
}
