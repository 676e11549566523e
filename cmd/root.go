package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X github.com/flabwick/papyrus/cmd.Version=v1.0.0"
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "papyrus",
	Short: "papyrus — a personal knowledge-management server",
	Long:  "papyrus stores Markdown pages and uploaded files in per-user Libraries, keeps a bidirectional link graph between pages, and serves them over HTTP and a local CLI.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: config.json or $PAPYRUS_CONFIG)")

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(doctorCmd())
	rootCmd.AddCommand(adminCmd())
	rootCmd.AddCommand(librariesCmd())
	rootCmd.AddCommand(pagesCmd())
	rootCmd.AddCommand(workspacesCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(whoamiCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("papyrus " + Version)
		},
	}
}

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if v := os.Getenv("PAPYRUS_CONFIG"); v != "" {
		return v
	}
	return "config.json"
}

// Execute runs the root cobra command, mapping any returned error to the
// exit code §6 assigns its apperr.Kind.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	if err := rootCmd.Execute(); err != nil {
		Fail(err)
	}
}
