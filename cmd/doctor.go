package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"runtime"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/flabwick/papyrus/internal/config"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check system environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("papyrus doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (using defaults — file not found)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	fmt.Println()
	fmt.Println("  Database:")
	driver := cfg.Database.Driver
	if driver == "" {
		driver = "sqlite"
	}
	fmt.Printf("    %-12s %s\n", "Driver:", driver)
	checkDatabase(cfg)

	fmt.Println()
	fmt.Println("  Storage:")
	root := config.ExpandHome(cfg.Storage.Root)
	fmt.Printf("  %-14s %s", "Content root:", root)
	if info, err := os.Stat(root); err != nil {
		fmt.Println(" (NOT FOUND)")
	} else if !info.IsDir() {
		fmt.Println(" (NOT A DIRECTORY)")
	} else if probe := writeProbe(root); probe != nil {
		fmt.Printf(" (NOT WRITABLE: %s)\n", probe)
	} else {
		fmt.Println(" (OK, writable)")
	}

	fmt.Println()
	fmt.Println("  AI streaming:")
	if cfg.AI.Provider == "" {
		fmt.Println("    disabled (no ai.provider configured)")
	} else {
		fmt.Printf("    %-12s %s\n", "Provider:", cfg.AI.Provider)
		fmt.Printf("    %-12s %s\n", "Model:", cfg.AI.Model)
		fmt.Printf("    %-12s %s\n", "API key:", maskKey(cfg.AI.APIKey))
	}

	fmt.Println()
	fmt.Println("  Telemetry:")
	if !cfg.Telemetry.Enabled {
		fmt.Println("    disabled")
	} else {
		fmt.Printf("    %-12s %s\n", "Service:", cfg.Telemetry.ServiceName)
		fmt.Printf("    %-12s %s\n", "OTLP endpoint:", cfg.Telemetry.OTLPEndpoint)
	}

	fmt.Println()
	fmt.Println("Doctor check complete.")
}

func checkDatabase(cfg *config.Config) {
	if cfg.Database.Driver == "postgres" {
		if cfg.Database.PostgresDSN == "" {
			fmt.Printf("    %-12s NOT CONFIGURED (database.postgresDsn empty)\n", "Status:")
			return
		}
		db, err := sql.Open("pgx", cfg.Database.PostgresDSN)
		if err != nil {
			fmt.Printf("    %-12s CONNECT FAILED (%s)\n", "Status:", err)
			return
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			fmt.Printf("    %-12s CONNECT FAILED (%s)\n", "Status:", err)
			return
		}
		fmt.Printf("    %-12s reachable\n", "Status:")

		var dirty bool
		var version int
		row := db.QueryRow("SELECT version, dirty FROM schema_migrations LIMIT 1")
		if err := row.Scan(&version, &dirty); err != nil {
			fmt.Printf("    %-12s unknown (run `papyrus migrate up`)\n", "Schema:")
		} else if dirty {
			fmt.Printf("    %-12s v%d (DIRTY — run: papyrus migrate force %d)\n", "Schema:", version, version-1)
		} else {
			fmt.Printf("    %-12s v%d\n", "Schema:", version)
		}
		return
	}

	path := config.ExpandHome(cfg.Database.SQLitePath)
	fmt.Printf("    %-12s %s\n", "Path:", path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Printf("    %-12s OPEN FAILED (%s)\n", "Status:", err)
		return
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		fmt.Printf("    %-12s OPEN FAILED (%s)\n", "Status:", err)
		return
	}
	fmt.Printf("    %-12s reachable\n", "Status:")

	var count int
	if err := db.QueryRow(`SELECT count(*) FROM schema_migrations`).Scan(&count); err != nil {
		fmt.Printf("    %-12s unknown (run `papyrus migrate up`)\n", "Migrations:")
	} else {
		fmt.Printf("    %-12s %d applied\n", "Migrations:", count)
	}
}

func writeProbe(dir string) error {
	f, err := os.CreateTemp(dir, ".papyrus-doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func maskKey(key string) string {
	if key == "" {
		return "(not configured)"
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
