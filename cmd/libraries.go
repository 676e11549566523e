package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/flabwick/papyrus/internal/config"
	"github.com/flabwick/papyrus/internal/contentstore"
	"github.com/flabwick/papyrus/internal/models"
	"github.com/flabwick/papyrus/internal/sanitize"
	"github.com/flabwick/papyrus/internal/store"
	"github.com/flabwick/papyrus/internal/sync"
)

var cliUsername string

func resolveUsername() string {
	if cliUsername != "" {
		return cliUsername
	}
	return os.Getenv("PAPYRUS_USER")
}

// withUser loads the user named by --user or $PAPYRUS_USER plus every service this CLI
// needs, mirroring runServe's wiring but for a single invocation.
func withUser(fn func(ctx context.Context, cfg *config.Config, stores *store.Stores, content *contentstore.Store, user *models.User) error) error {
	username := resolveUsername()
	if username == "" {
		return fmt.Errorf("no user specified: pass --user or set PAPYRUS_USER")
	}
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, stores, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	user, err := stores.Users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	content := contentstore.New(cfg.Storage.Root)
	return fn(ctx, cfg, stores, content, user)
}

func addUserFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&cliUsername, "user", "", "username (default: $PAPYRUS_USER)")
}

func librariesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "libraries",
		Short: "Manage libraries",
	}
	cmd.AddCommand(librariesListCmd())
	cmd.AddCommand(librariesCreateCmd())
	cmd.AddCommand(librariesDeleteCmd())
	cmd.AddCommand(librariesSyncCmd())
	return cmd
}

func librariesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the user's libraries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(func(ctx context.Context, cfg *config.Config, stores *store.Stores, content *contentstore.Store, user *models.User) error {
				libs, err := stores.Libraries.ListByUser(ctx, user.ID)
				if err != nil {
					return err
				}
				t := newTable("ID", "Name", "Slug")
				for _, lib := range libs {
					t.addRow(lib.ID, lib.Name, lib.Slug)
				}
				t.print()
				return nil
			})
		},
	}
	addUserFlag(cmd)
	return cmd
}

func librariesCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new library",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(func(ctx context.Context, cfg *config.Config, stores *store.Stores, content *contentstore.Store, user *models.User) error {
				slug, err := sanitize.Slug(name)
				if err != nil {
					return err
				}
				if err := content.CreateLibraryTree(user.Username, slug); err != nil {
					return err
				}
				lib, err := stores.Libraries.Create(ctx, user.ID, name, slug, content.LibraryDir(user.Username, slug))
				if err != nil {
					return err
				}
				fmt.Printf("created library %s (%s)\n", lib.Name, lib.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "library name")
	addUserFlag(cmd)
	return cmd
}

func librariesDeleteCmd() *cobra.Command {
	var slug string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Archive and delete a library",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(func(ctx context.Context, cfg *config.Config, stores *store.Stores, content *contentstore.Store, user *models.User) error {
				lib, err := stores.Libraries.GetBySlug(ctx, user.ID, slug)
				if err != nil {
					return err
				}
				if _, err := content.ArchiveLibraryTree(user.Username, lib.Slug, time.Now()); err != nil {
					return err
				}
				return stores.Libraries.SoftDelete(ctx, lib.ID)
			})
		},
	}
	cmd.Flags().StringVar(&slug, "slug", "", "library slug")
	addUserFlag(cmd)
	return cmd
}

func librariesSyncCmd() *cobra.Command {
	var slug string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Force-reconcile a library against its on-disk tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(func(ctx context.Context, cfg *config.Config, stores *store.Stores, content *contentstore.Store, user *models.User) error {
				lib, err := stores.Libraries.GetBySlug(ctx, user.ID, slug)
				if err != nil {
					return err
				}
				recon := sync.NewReconciler(content, stores, nil)
				ref := sync.LibraryRef{Username: user.Username, Slug: lib.Slug, ID: lib.ID}
				return recon.ForceSync(ctx, ref)
			})
		},
	}
	cmd.Flags().StringVar(&slug, "slug", "", "library slug")
	addUserFlag(cmd)
	return cmd
}
