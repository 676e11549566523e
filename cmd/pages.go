package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flabwick/papyrus/internal/config"
	"github.com/flabwick/papyrus/internal/contentstore"
	"github.com/flabwick/papyrus/internal/factory"
	"github.com/flabwick/papyrus/internal/hashutil"
	"github.com/flabwick/papyrus/internal/linkgraph"
	"github.com/flabwick/papyrus/internal/models"
	"github.com/flabwick/papyrus/internal/store"
)

// previewText mirrors the ~280-char preview truncation used by the Factory
// and the HTTP pages handler, for the same listing/stats purpose here.
func previewText(content string) string {
	const maxLen = 280
	trimmed := strings.TrimSpace(content)
	if len(trimmed) <= maxLen {
		return trimmed
	}
	return trimmed[:maxLen]
}

func pagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pages",
		Short: "Manage pages",
	}
	cmd.AddCommand(pagesListCmd())
	cmd.AddCommand(pagesCreateCmd())
	cmd.AddCommand(pagesEditCmd())
	cmd.AddCommand(pagesDeleteCmd())
	cmd.AddCommand(pagesUploadCmd())
	cmd.AddCommand(pagesLinksCmd())
	cmd.AddCommand(pagesStatsCmd())
	return cmd
}

// resolveLibrary loads lib by slug under user, a small helper every pages
// subcommand needs before touching its PageStore rows.
func resolveLibrary(ctx context.Context, stores *store.Stores, user *models.User, slug string) (*models.Library, error) {
	return stores.Libraries.GetBySlug(ctx, user.ID, slug)
}

func pagesListCmd() *cobra.Command {
	var librarySlug string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pages in a library",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(func(ctx context.Context, cfg *config.Config, stores *store.Stores, content *contentstore.Store, user *models.User) error {
				lib, err := resolveLibrary(ctx, stores, user, librarySlug)
				if err != nil {
					return err
				}
				pages, err := stores.Pages.ListByLibrary(ctx, lib.ID)
				if err != nil {
					return err
				}
				t := newTable("ID", "Title", "Type", "Updated")
				for _, p := range pages {
					title := "(untitled)"
					if p.Title != nil {
						title = *p.Title
					}
					t.addRow(p.ID, title, string(p.PageType), p.UpdatedAt.Format("2006-01-02 15:04"))
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

func pagesCreateCmd() *cobra.Command {
	var librarySlug, title, contentPath string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a saved page",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(func(ctx context.Context, cfg *config.Config, stores *store.Stores, content *contentstore.Store, user *models.User) error {
				lib, err := resolveLibrary(ctx, stores, user, librarySlug)
				if err != nil {
					return err
				}
				body := ""
				if contentPath != "" {
					data, err := os.ReadFile(contentPath)
					if err != nil {
						return err
					}
					body = string(data)
				}
				fact := factory.New(content, stores)
				page, err := fact.CreateSaved(ctx, user.Username, lib.Slug, lib.ID, title, body)
				if err != nil {
					return err
				}
				fmt.Printf("created page %s (%s)\n", *page.Title, page.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&librarySlug, "library", "", "library slug")
	cmd.Flags().StringVar(&title, "title", "", "page title")
	cmd.Flags().StringVar(&contentPath, "file", "", "path to a file with the page's initial content")
	addUserFlag(cmd)
	return cmd
}

func pagesEditCmd() *cobra.Command {
	var pageID, contentPath, title string
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit a page's content and/or title",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(func(ctx context.Context, cfg *config.Config, stores *store.Stores, content *contentstore.Store, user *models.User) error {
				page, err := stores.Pages.Get(ctx, pageID)
				if err != nil {
					return err
				}
				lib, err := stores.Libraries.Get(ctx, page.LibraryID)
				if err != nil {
					return err
				}

				if contentPath != "" {
					data, err := os.ReadFile(contentPath)
					if err != nil {
						return err
					}
					if page.FilePath != nil {
						abs := filepath.Join(content.LibraryDir(user.Username, lib.Slug), *page.FilePath)
						if err := contentstore.WriteAtomic(abs, data); err != nil {
							return err
						}
					}
					hash := hashutil.HashBytes(data)
					preview := previewText(string(data))
					if err := stores.Pages.UpdateContent(ctx, page.ID, string(data), preview, hash); err != nil {
						return err
					}
					graph := linkgraph.New(stores.Links, stores.Pages)
					if err := graph.Reparse(ctx, page.LibraryID, page.ID, string(data)); err != nil {
						return err
					}
				}
				if title != "" {
					if err := stores.Pages.UpdateTitle(ctx, page.ID, &title); err != nil {
						return err
					}
					graph := linkgraph.New(stores.Links, stores.Pages)
					if err := graph.OnPageSaved(ctx, page.LibraryID, title, page.ID); err != nil {
						return err
					}
				}
				fmt.Println("updated")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&pageID, "id", "", "page id")
	cmd.Flags().StringVar(&contentPath, "file", "", "path to a file with the new content")
	cmd.Flags().StringVar(&title, "title", "", "new title")
	addUserFlag(cmd)
	return cmd
}

func pagesDeleteCmd() *cobra.Command {
	var pageID string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a page",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(func(ctx context.Context, cfg *config.Config, stores *store.Stores, content *contentstore.Store, user *models.User) error {
				return stores.Pages.SoftDelete(ctx, pageID)
			})
		},
	}
	cmd.Flags().StringVar(&pageID, "id", "", "page id")
	addUserFlag(cmd)
	return cmd
}

func pagesUploadCmd() *cobra.Command {
	var librarySlug, path string
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a file (PDF/EPUB/image) into a library",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(func(ctx context.Context, cfg *config.Config, stores *store.Stores, content *contentstore.Store, user *models.User) error {
				lib, err := resolveLibrary(ctx, stores, user, librarySlug)
				if err != nil {
					return err
				}
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				fact := factory.New(content, stores)
				file, err := fact.CreateFile(ctx, user.Username, lib.Slug, lib.ID, filepath.Base(path), data)
				if err != nil {
					return err
				}
				fmt.Printf("uploaded %s (%s)\n", file.FileName, file.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&librarySlug, "library", "", "library slug")
	cmd.Flags().StringVar(&path, "file", "", "path to the file to upload")
	addUserFlag(cmd)
	return cmd
}

func pagesLinksCmd() *cobra.Command {
	var pageID string
	cmd := &cobra.Command{
		Use:   "links",
		Short: "Show a page's forward links and backlinks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(func(ctx context.Context, cfg *config.Config, stores *store.Stores, content *contentstore.Store, user *models.User) error {
				forward, err := stores.Links.ForwardLinks(ctx, pageID)
				if err != nil {
					return err
				}
				back, err := stores.Links.Backlinks(ctx, pageID)
				if err != nil {
					return err
				}
				fmt.Printf("forward links (%d), health %.2f:\n", len(forward), linkgraph.Health(forward))
				for _, l := range forward {
					status := "broken"
					if l.TargetPageID != nil {
						status = *l.TargetPageID
					}
					fmt.Printf("  -> %s (%s)\n", l.LinkText, status)
				}
				fmt.Printf("backlinks (%d):\n", len(back))
				for _, l := range back {
					fmt.Printf("  <- %s\n", l.SourcePageID)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&pageID, "id", "", "page id")
	addUserFlag(cmd)
	return cmd
}

func pagesStatsCmd() *cobra.Command {
	var librarySlug string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show page/file counts and storage usage for a library's owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(func(ctx context.Context, cfg *config.Config, stores *store.Stores, content *contentstore.Store, user *models.User) error {
				lib, err := resolveLibrary(ctx, stores, user, librarySlug)
				if err != nil {
					return err
				}
				pages, err := stores.Pages.ListByLibrary(ctx, lib.ID)
				if err != nil {
					return err
				}
				files, err := stores.Files.ListByLibrary(ctx, lib.ID)
				if err != nil {
					return err
				}
				used, err := stores.Users.StorageUsed(ctx, user.ID)
				if err != nil {
					return err
				}
				fmt.Printf("pages: %d\nfiles: %d\nstorage used: %.1f MiB / %.1f MiB quota\n",
					len(pages), len(files), float64(used)/(1<<20), float64(user.StorageQuota)/(1<<20))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&librarySlug, "library", "", "library slug")
	addUserFlag(cmd)
	return cmd
}
