package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/flabwick/papyrus/internal/apperr"
	"github.com/flabwick/papyrus/internal/authn"
	"github.com/flabwick/papyrus/internal/config"
	"github.com/flabwick/papyrus/internal/store"
)

// sessionTTL matches the CLI bearer token lifetime issued by the HTTP
// server's own login handler (§4.1), so a token from either path behaves
// the same way.
const sessionTTL = 30 * 24 * time.Hour

func credentialsPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "papyrus", "credentials")
	}
	return config.ExpandHome("~/.local/state/papyrus/credentials")
}

func writeToken(token string) error {
	path := credentialsPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token), 0o600)
}

func readToken() (string, error) {
	data, err := os.ReadFile(credentialsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperr.Unauthorized("not logged in: run `papyrus login`")
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func clearToken() error {
	err := os.Remove(credentialsPath())
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func loginCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and store a local CLI session token",
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
				return apperr.Unauthorized("invalid username or password")
			}
			if err := authn.ComparePassword(user.PasswordHash, password); err != nil {
				return err
			}
			session, err := stores.Sessions.Create(ctx, user.ID, true, sessionTTL)
			if err != nil {
				return err
			}
			if err := writeToken(session.Token); err != nil {
				return err
			}
			fmt.Printf("logged in as %s\n", user.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().StringVar(&password, "password", "", "password (omit to be prompted)")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the local CLI session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := readToken()
			if err == nil {
				_ = withStores(func(ctx context.Context, stores *store.Stores) error {
					return stores.Sessions.Delete(ctx, token)
				})
			}
			if err := clearToken(); err != nil {
				return err
			}
			fmt.Println("logged out")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the user the local CLI session belongs to",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := readToken()
			if err != nil {
				return err
			}
			return withStores(func(ctx context.Context, stores *store.Stores) error {
				session, err := stores.Sessions.GetByToken(ctx, token)
				if err != nil {
					return apperr.Unauthorized("session expired or revoked: run `papyrus login`")
				}
				user, err := stores.Users.Get(ctx, session.UserID)
				if err != nil {
					return err
				}
				fmt.Println(user.Username)
				return nil
			})
		},
	}
}
