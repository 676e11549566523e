// Package sync implements the Sync Engine (§4.5): an fsnotify-driven watcher
// that debounces filesystem activity per path and hands each settled path to
// a callback (it does not classify changes as upserts or removes, and an add
// followed by a remove still settles), and a Reconciler that walks the on-disk tree against the Metadata Store to
// force the two into agreement.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.opentelemetry.io/otel/attribute"

	"github.com/flabwick/papyrus/internal/apperr"
	"github.com/flabwick/papyrus/internal/bus"
	"github.com/flabwick/papyrus/internal/contentstore"
	"github.com/flabwick/papyrus/internal/hashutil"
	"github.com/flabwick/papyrus/internal/linkgraph"
	"github.com/flabwick/papyrus/internal/models"
	"github.com/flabwick/papyrus/internal/observability"
	"github.com/flabwick/papyrus/internal/processors"
	"github.com/flabwick/papyrus/internal/store"
)

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Storage(path, err)
	}
	return data, nil
}

// LibraryRef identifies a Library the Sync Engine watches: its storage
// location plus its Metadata Store identity.
type LibraryRef struct {
	Username string
	Slug     string
	ID       string
}

// Watcher wraps an fsnotify.Watcher, debouncing bursts of events per path
// (editors commonly emit write+chmod+write for a single save) before
// invoking onSettle once settled.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	events   *bus.Broadcaster[bus.SyncEvent]

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending map[string]LibraryRef
}

// NewWatcher constructs a Watcher with the given debounce interval.
func NewWatcher(debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	return &Watcher{
		fsw:      fsw,
		debounce: debounce,
		events:   bus.NewBroadcaster[bus.SyncEvent](),
		timers:   make(map[string]*time.Timer),
		pending:  make(map[string]LibraryRef),
	}, nil
}

// Events returns the Watcher's broadcaster. The Watcher publishes nothing on
// it; reconciliation outcomes go to the broadcaster given to NewReconciler.
func (w *Watcher) Events() *bus.Broadcaster[bus.SyncEvent] { return w.events }

// WatchLibrary adds a Library's pages/ and files/ directories to the
// watch set.
func (w *Watcher) WatchLibrary(content *contentstore.Store, ref LibraryRef) error {
	for _, dir := range []string{content.PagesDir(ref.Username, ref.Slug), content.FilesDir(ref.Username, ref.Slug)} {
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return nil
}

// Run processes fsnotify events until ctx is canceled, invoking onSettle
// once per path after its debounce window elapses with no further activity.
// onSettle is also passed the LibraryRef the event belongs to, resolved by
// resolveLibrary.
func (w *Watcher) Run(ctx context.Context, resolveLibrary func(path string) (LibraryRef, bool), onSettle func(ctx context.Context, ref LibraryRef, path string)) {
	for {
		select {
		case <-ctx.Done():
			w.fsw.Close()
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			ref, ok := resolveLibrary(ev.Name)
			if !ok {
				continue
			}
			w.schedule(ctx, ref, ev.Name, onSettle)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("fsnotify error", "error", err)
		}
	}
}

func (w *Watcher) schedule(ctx context.Context, ref LibraryRef, path string, onSettle func(context.Context, LibraryRef, string)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[path] = ref
	if t, exists := w.timers[path]; exists {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		delete(w.pending, path)
		w.mu.Unlock()
		onSettle(ctx, ref, path)
	})
}

// Reconciler implements ForceSync (§4.5): a full diff of a Library's
// on-disk tree against the Metadata Store, bringing the two into agreement
// without relying on having observed every individual fsnotify event.
type Reconciler struct {
	content *contentstore.Store
	stores  *store.Stores
	graph   *linkgraph.Graph
	events  *bus.Broadcaster[bus.SyncEvent]
}

// NewReconciler constructs a Reconciler over content and stores, publishing
// outcomes on events.
func NewReconciler(content *contentstore.Store, stores *store.Stores, events *bus.Broadcaster[bus.SyncEvent]) *Reconciler {
	return &Reconciler{
		content: content,
		stores:  stores,
		graph:   linkgraph.New(stores.Links, stores.Pages),
		events:  events,
	}
}

// ForceSync runs the six-step reconciliation of a single Library (§4.5):
//  1. scan the on-disk tree
//  2. load the Library's known Pages/Files from the Metadata Store
//  3. for each scanned path with no matching row, create one (new file
//     dropped in by hand or by another client)
//  4. for each scanned path whose content hash changed, update the row
//  5. for each known row whose on-disk path vanished, soft-delete it
//  6. reparse links for every page touched in steps 3-4
func (r *Reconciler) ForceSync(ctx context.Context, ref LibraryRef) error {
	ctx, span := observability.StartSpan(ctx, "sync.ForceSync", attribute.String("library.id", ref.ID))
	defer span.End()

	scanned, err := r.content.ScanLibrary(ref.Username, ref.Slug)
	if err != nil {
		observability.RecordError(ctx, err)
		return fmt.Errorf("scan library: %w", err)
	}

	knownPages, err := r.stores.Pages.ListByLibrary(ctx, ref.ID)
	if err != nil {
		return fmt.Errorf("list known pages: %w", err)
	}
	knownFiles, err := r.stores.Files.ListByLibrary(ctx, ref.ID)
	if err != nil {
		return fmt.Errorf("list known files: %w", err)
	}

	pageByPath := make(map[string]*models.Page, len(knownPages))
	for _, p := range knownPages {
		if p.FilePath != nil {
			pageByPath[*p.FilePath] = p
		}
	}
	fileByPath := make(map[string]*models.File, len(knownFiles))
	for _, f := range knownFiles {
		fileByPath[f.Path] = f
	}

	seenPagePaths := make(map[string]bool)
	seenFilePaths := make(map[string]bool)

	for _, sf := range scanned {
		relPath, err := filepath.Rel(r.content.LibraryDir(ref.Username, ref.Slug), sf.Path)
		if err != nil {
			return fmt.Errorf("relativize scanned path: %w", err)
		}

		switch sf.Category {
		case "page":
			seenPagePaths[relPath] = true
			if err := r.reconcilePage(ctx, ref, relPath, sf); err != nil {
				r.publish(ref, relPath, "error", err)
				continue
			}
			r.publish(ref, relPath, "upserted", nil)
		case "file":
			seenFilePaths[relPath] = true
			if err := r.reconcileFile(ctx, ref, relPath, sf, fileByPath); err != nil {
				r.publish(ref, relPath, "error", err)
				continue
			}
			r.publish(ref, relPath, "upserted", nil)
		}
	}

	for path, p := range pageByPath {
		if !seenPagePaths[path] {
			if err := r.stores.Pages.SoftDelete(ctx, p.ID); err != nil {
				return fmt.Errorf("soft delete vanished page %s: %w", path, err)
			}
			r.publish(ref, path, "removed", nil)
		}
	}
	for path, f := range fileByPath {
		if !seenFilePaths[path] {
			if err := r.stores.Files.SoftDelete(ctx, f.ID); err != nil {
				return fmt.Errorf("soft delete vanished file %s: %w", path, err)
			}
			r.publish(ref, path, "removed", nil)
		}
	}

	return nil
}

func (r *Reconciler) reconcilePage(ctx context.Context, ref LibraryRef, relPath string, sf contentstore.ScannedFile) error {
	data, err := readFile(sf.Path)
	if err != nil {
		return err
	}
	hash := hashutil.HashBytes(data)

	existing, err := r.stores.Pages.GetByFilePath(ctx, ref.ID, relPath)
	if err != nil {
		if apperr.KindOf(err) != apperr.KindNotFound {
			return err
		}
		title := sf.Name
		page := &models.Page{
			LibraryID:      ref.ID,
			Title:          &title,
			PageType:       models.PageSaved,
			Content:        string(data),
			ContentPreview: truncate(string(data), 280),
			FilePath:       &relPath,
			FileHash:       hash,
		}
		if err := r.stores.Pages.Create(ctx, page); err != nil {
			return err
		}
		if err := r.graph.Reparse(ctx, ref.ID, page.ID, page.Content); err != nil {
			return err
		}
		return r.graph.OnPageSaved(ctx, ref.ID, title, page.ID)
	}

	if existing.FileHash == hash {
		return nil
	}
	if err := r.stores.Pages.UpdateContent(ctx, existing.ID, string(data), truncate(string(data), 280), hash); err != nil {
		return err
	}
	return r.graph.Reparse(ctx, ref.ID, existing.ID, string(data))
}

func (r *Reconciler) reconcileFile(ctx context.Context, ref LibraryRef, relPath string, sf contentstore.ScannedFile, fileByPath map[string]*models.File) error {
	if existing, ok := fileByPath[relPath]; ok && existing.FileHash == sf.Hash {
		return nil
	}

	data, err := readFile(sf.Path)
	if err != nil {
		return err
	}

	proc, fileType, ok := processors.ForExtension(sf.Name)
	if !ok || fileType == "" {
		return nil // unsupported extension under files/: ignore, not an error
	}

	if existing, found := fileByPath[relPath]; found {
		result := proc.Process(data, sf.Name)
		status := result.ProcessingStatus
		if status == "" {
			status = models.ProcessingComplete
		}
		return r.stores.Files.UpdateMetadata(ctx, existing.ID, result.Metadata, proc.PreviewText(result), sf.Hash, status, result.ProcessingError)
	}

	lib, err := r.stores.Libraries.Get(ctx, ref.ID)
	if err != nil {
		return err
	}

	file := &models.File{
		LibraryID:        ref.ID,
		FileName:         sf.Name,
		FileType:         fileType,
		Size:             sf.Size,
		Path:             relPath,
		FileHash:         sf.Hash,
		ProcessingStatus: models.ProcessingPending,
	}

	// Checked before the row exists, so this file's own bytes aren't already
	// counted in StorageUsed when weighed against the quota.
	if quotaErr := store.CheckQuota(ctx, r.stores, lib.UserID, sf.Size); quotaErr != nil {
		msg := quotaErr.Error()
		if aerr, ok := apperr.As(quotaErr); ok {
			msg = aerr.Message
		}
		file.ProcessingStatus = models.ProcessingFailed
		file.ProcessingError = "QuotaExceeded: " + msg
		return r.stores.Files.Create(ctx, file)
	}

	if err := r.stores.Files.Create(ctx, file); err != nil {
		return err
	}

	result := proc.Process(data, sf.Name)
	status := result.ProcessingStatus
	if status == "" {
		status = models.ProcessingComplete
	}
	return r.stores.Files.UpdateMetadata(ctx, file.ID, result.Metadata, proc.PreviewText(result), sf.Hash, status, result.ProcessingError)
}

func (r *Reconciler) publish(ref LibraryRef, path, kind string, err error) {
	if r.events == nil {
		return
	}
	ev := bus.SyncEvent{LibraryID: ref.ID, Path: path, Kind: kind}
	if err != nil {
		ev.Message = err.Error()
	}
	r.events.Broadcast(ev)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
