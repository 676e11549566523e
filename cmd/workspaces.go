package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flabwick/papyrus/internal/config"
	"github.com/flabwick/papyrus/internal/contentstore"
	"github.com/flabwick/papyrus/internal/models"
	"github.com/flabwick/papyrus/internal/store"
	"github.com/flabwick/papyrus/internal/workspace"
)

func workspacesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspaces",
		Short: "Manage workspaces",
	}
	cmd.AddCommand(workspacesListCmd())
	cmd.AddCommand(workspacesCreateCmd())
	cmd.AddCommand(workspacesDeleteCmd())
	cmd.AddCommand(workspacesShowCmd())
	cmd.AddCommand(workspacesFavoriteCmd())
	return cmd
}

func workspacesListCmd() *cobra.Command {
	var librarySlug string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workspaces in a library",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(func(ctx context.Context, cfg *config.Config, stores *store.Stores, content *contentstore.Store, user *models.User) error {
				lib, err := resolveLibrary(ctx, stores, user, librarySlug)
				if err != nil {
					return err
				}
				workspaces, err := stores.Workspaces.ListByLibrary(ctx, lib.ID)
				if err != nil {
					return err
				}
				t := newTable("ID", "Title", "Favorite", "Last accessed")
				for _, ws := range workspaces {
					fav := ""
					if ws.IsFavorited {
						fav = "*"
					}
					t.addRow(ws.ID, ws.Title, fav, ws.LastAccessedAt.Format("2006-01-02 15:04"))
				}
				t.print()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&librarySlug, "library", "", "library slug")
	addUserFlag(cmd)
	return cmd
}

func workspacesCreateCmd() *cobra.Command {
	var librarySlug, title string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workspace in a library",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(func(ctx context.Context, cfg *config.Config, stores *store.Stores, content *contentstore.Store, user *models.User) error {
				lib, err := resolveLibrary(ctx, stores, user, librarySlug)
				if err != nil {
					return err
				}
				ws, err := stores.Workspaces.Create(ctx, lib.ID, title)
				if err != nil {
					return err
				}
				fmt.Printf("created workspace %s (%s)\n", ws.Title, ws.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&librarySlug, "library", "", "library slug")
	cmd.Flags().StringVar(&title, "title", "", "workspace title")
	addUserFlag(cmd)
	return cmd
}

func workspacesDeleteCmd() *cobra.Command {
	var workspaceID string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(func(ctx context.Context, cfg *config.Config, stores *store.Stores, content *contentstore.Store, user *models.User) error {
				return stores.Workspaces.Delete(ctx, workspaceID)
			})
		},
	}
	cmd.Flags().StringVar(&workspaceID, "id", "", "workspace id")
	addUserFlag(cmd)
	return cmd
}

func workspacesShowCmd() *cobra.Command {
	var workspaceID string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a workspace's ordered items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(func(ctx context.Context, cfg *config.Config, stores *store.Stores, content *contentstore.Store, user *models.User) error {
				engine := workspace.New(stores.Workspaces, stores.Pages, stores.Files)
				items, err := engine.ListItems(ctx, workspaceID)
				if err != nil {
					return err
				}
				t := newTable("Pos", "Kind", "Title", "AI context")
				for _, it := range items {
					ai := ""
					if it.IsInAIContext {
						ai = "*"
					}
					t.addRow(fmt.Sprintf("%d", it.Position), string(it.ItemKind), it.Title, ai)
				}
				t.print()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&workspaceID, "id", "", "workspace id")
	addUserFlag(cmd)
	return cmd
}

func workspacesFavoriteCmd() *cobra.Command {
	var workspaceID string
	var unset bool
	cmd := &cobra.Command{
		Use:   "favorite",
		Short: "Favorite (or --unset to unfavorite) a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(func(ctx context.Context, cfg *config.Config, stores *store.Stores, content *contentstore.Store, user *models.User) error {
				return stores.Workspaces.SetFavorited(ctx, workspaceID, !unset)
			})
		},
	}
	cmd.Flags().StringVar(&workspaceID, "id", "", "workspace id")
	cmd.Flags().BoolVar(&unset, "unset", false, "remove favorite instead of setting it")
	addUserFlag(cmd)
	return cmd
}
