package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/flabwick/papyrus/internal/authn"
	"github.com/flabwick/papyrus/internal/config"
	"github.com/flabwick/papyrus/internal/store"
)

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "User administration",
	}
	cmd.AddCommand(adminCreateUserCmd())
	cmd.AddCommand(adminListUsersCmd())
	cmd.AddCommand(adminResetPasswordCmd())
	cmd.AddCommand(adminDeleteUserCmd())
	return cmd
}

func withStores(fn func(ctx context.Context, stores *store.Stores) error) error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, stores, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(context.Background(), stores)
}

func adminCreateUserCmd() *cobra.Command {
	var username, password string
	var quotaGB int
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a new user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				form := huh.NewForm(
					huh.NewGroup(
						huh.NewInput().Title("Username").Value(&username),
						huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&password),
					),
				)
				if err := form.Run(); err != nil {
					return fmt.Errorf("prompt: %w", err)
				}
			}
			hash, err := authn.HashPassword(password)
			if err != nil {
				return err
			}
			quota := int64(quotaGB) << 30
			if !cmd.Flags().Changed("quota-gb") {
				cfg, err := config.Load(resolveConfigPath())
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				quota = cfg.Quota.DefaultUserQuotaBytes
			}
			return withStores(func(ctx context.Context, stores *store.Stores) error {
				user, err := stores.Users.Create(ctx, username, hash, quota)
				if err != nil {
					return err
				}
				fmt.Printf("created user %s (%s)\n", user.Username, user.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().StringVar(&password, "password", "", "password (omit to be prompted)")
	cmd.Flags().IntVar(&quotaGB, "quota-gb", 0, "storage quota in GiB (when omitted: quota.default_user_quota_bytes from the config)")
	return cmd
}

func adminListUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-users",
		Short: "List all users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(func(ctx context.Context, stores *store.Stores) error {
				users, err := stores.Users.List(ctx)
				if err != nil {
					return err
				}
				t := newTable("ID", "Username", "Quota (GiB)", "Created")
				for _, u := range users {
					t.addRow(u.ID, u.Username, fmt.Sprintf("%.1f", float64(u.StorageQuota)/(1<<30)), u.CreatedAt.Format("2006-01-02"))
				}
				t.print()
				return nil
			})
		},
	}
}

func adminResetPasswordCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Reset a user's password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				if err := huh.NewInput().Title("Username").Value(&username).Run(); err != nil {
					return fmt.Errorf("prompt: %w", err)
				}
			}
			if password == "" {
				if err := huh.NewInput().Title("New password").EchoMode(huh.EchoModePassword).Value(&password).Run(); err != nil {
					return fmt.Errorf("prompt: %w", err)
				}
			}
			hash, err := authn.HashPassword(password)
			if err != nil {
				return err
			}
			return withStores(func(ctx context.Context, stores *store.Stores) error {
				user, err := stores.Users.GetByUsername(ctx, username)
				if err != nil {
					return err
				}
				if err := stores.Users.SetPasswordHash(ctx, user.ID, hash); err != nil {
					return err
				}
				fmt.Printf("password reset for %s\n", username)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().StringVar(&password, "password", "", "new password (omit to be prompted)")
	return cmd
}

func adminDeleteUserCmd() *cobra.Command {
	var username string
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete-user",
		Short: "Delete a user and their data",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				if err := huh.NewInput().Title("Username").Value(&username).Run(); err != nil {
					return fmt.Errorf("prompt: %w", err)
				}
			}
			if !yes {
				confirmed := false
				prompt := huh.NewConfirm().
					Title(fmt.Sprintf("Delete user %q and all their libraries? This cannot be undone.", username)).
					Value(&confirmed)
				if err := prompt.Run(); err != nil {
					return fmt.Errorf("prompt: %w", err)
				}
				if !confirmed {
					fmt.Println("aborted")
					return nil
				}
			}
			return withStores(func(ctx context.Context, stores *store.Stores) error {
				user, err := stores.Users.GetByUsername(ctx, username)
				if err != nil {
					return err
				}
				if err := stores.Users.Delete(ctx, user.ID); err != nil {
					return err
				}
				fmt.Printf("deleted user %s\n", username)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}
