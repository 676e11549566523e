package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/flabwick/papyrus/internal/aistream"
	"github.com/flabwick/papyrus/internal/bus"
	"github.com/flabwick/papyrus/internal/config"
	"github.com/flabwick/papyrus/internal/contentstore"
	"github.com/flabwick/papyrus/internal/factory"
	"github.com/flabwick/papyrus/internal/httpapi"
	"github.com/flabwick/papyrus/internal/linkgraph"
	"github.com/flabwick/papyrus/internal/observability"
	"github.com/flabwick/papyrus/internal/store"
	"github.com/flabwick/papyrus/internal/store/pg"
	"github.com/flabwick/papyrus/internal/store/sqlite"
	"github.com/flabwick/papyrus/internal/sync"
	"github.com/flabwick/papyrus/internal/workspace"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Papyrus HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func openDB(cfg *config.Config) (*sql.DB, *store.Stores, error) {
	switch cfg.Database.Driver {
	case "postgres":
		if cfg.Database.PostgresDSN == "" {
			return nil, nil, fmt.Errorf("database.driver is postgres but PAPYRUS_POSTGRES_DSN is not set")
		}
		db, err := sql.Open("pgx", cfg.Database.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		return db, pg.NewStores(db), nil
	case "sqlite", "":
		db, err := sql.Open("sqlite", cfg.Database.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		return db, sqlite.NewStores(db), nil
	default:
		return nil, nil, fmt.Errorf("unknown database.driver %q", cfg.Database.Driver)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func runServe() error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setupLogging(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.Init(ctx, observability.Config{
		Enabled:      cfg.Telemetry.Enabled,
		ServiceName:  cfg.Telemetry.ServiceName,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	db, stores, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	content := contentstore.New(cfg.Storage.Root)
	fact := factory.New(content, stores)
	engine := workspace.New(stores.Workspaces, stores.Pages, stores.Files)
	graph := linkgraph.New(stores.Links, stores.Pages)

	var bridge *aistream.Bridge
	if cfg.AI.APIKey != "" {
		timeout := time.Duration(cfg.AI.RequestTimeout) * time.Second
		provider := aistream.NewAnthropicProvider(cfg.AI.APIKey, cfg.AI.Model, timeout)
		bridge = aistream.New(provider)
	}

	syncEvents := bus.NewBroadcaster[bus.SyncEvent]()
	recon := sync.NewReconciler(content, stores, syncEvents)

	if cfg.Sync.ForceSyncOnBoot {
		if err := forceSyncAll(ctx, content, stores, recon); err != nil {
			slog.Error("serve.force_sync_on_boot_failed", "error", err)
		}
	}

	if cfg.Sync.WatchEnabled {
		w, err := sync.NewWatcher(time.Duration(cfg.Sync.DebounceMillis) * time.Millisecond)
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		if err := watchAllLibraries(ctx, content, stores, w); err != nil {
			slog.Error("serve.watch_setup_failed", "error", err)
		}
		go w.Run(ctx, resolveLibraryFunc(content, stores), func(runCtx context.Context, ref sync.LibraryRef, path string) {
			if err := recon.ForceSync(runCtx, ref); err != nil {
				slog.Error("serve.watch_resync_failed", "library", ref.ID, "path", path, "error", err)
			}
		})
	}

	server := httpapi.NewServer(cfg, stores, content, fact, engine, graph, bridge, recon)
	slog.Info("serve.starting", "host", cfg.Server.Host, "port", cfg.Server.Port, "driver", cfg.Database.Driver)
	return server.Start(ctx)
}

// forceSyncAll reconciles every known Library on boot (§4.5), so the
// Metadata Store reflects on-disk edits made while the server was down.
func forceSyncAll(ctx context.Context, content *contentstore.Store, stores *store.Stores, recon *sync.Reconciler) error {
	refs, err := allLibraryRefs(ctx, content, stores)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if err := recon.ForceSync(ctx, ref); err != nil {
			slog.Error("serve.force_sync_library_failed", "library", ref.ID, "error", err)
		}
	}
	return nil
}

func watchAllLibraries(ctx context.Context, content *contentstore.Store, stores *store.Stores, w *sync.Watcher) error {
	refs, err := allLibraryRefs(ctx, content, stores)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if err := w.WatchLibrary(content, ref); err != nil {
			slog.Error("serve.watch_library_failed", "library", ref.ID, "error", err)
		}
	}
	return nil
}

// allLibraryRefs enumerates every user/library pair known to the Metadata
// Store, for the boot-time ForceSync pass and fsnotify watch setup.
func allLibraryRefs(ctx context.Context, content *contentstore.Store, stores *store.Stores) ([]sync.LibraryRef, error) {
	users, err := stores.Users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	var refs []sync.LibraryRef
	for _, u := range users {
		libs, err := stores.Libraries.ListByUser(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("list libraries for %s: %w", u.Username, err)
		}
		for _, lib := range libs {
			refs = append(refs, sync.LibraryRef{Username: u.Username, Slug: lib.Slug, ID: lib.ID})
		}
	}
	return refs, nil
}

// resolveLibraryFunc builds the Watcher's path->LibraryRef resolver from the
// current set of known libraries, re-scanned once per watch event since the
// set changes rarely relative to file activity.
func resolveLibraryFunc(content *contentstore.Store, stores *store.Stores) func(path string) (sync.LibraryRef, bool) {
	return func(path string) (sync.LibraryRef, bool) {
		refs, err := allLibraryRefs(context.Background(), content, stores)
		if err != nil {
			return sync.LibraryRef{}, false
		}
		for _, ref := range refs {
			dir := content.LibraryDir(ref.Username, ref.Slug)
			if len(path) >= len(dir) && path[:len(dir)] == dir {
				return ref, true
			}
		}
		return sync.LibraryRef{}, false
	}
}
