package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/salescost/backend/internal/infrastructure/config"
	"github.com/salescost/backend/internal/infrastructure/logger"
	"github.com/salescost/backend/internal/infrastructure/migration"
	"go.uber.org/zap"
)

const defaultMigrationsDir = "migrations"

func main() {
	var (
		path     string
		logLevel string
	)
	flag.StringVar(&path, "path", "", "Path to migrations directory (default: ./migrations)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	if err := run(args[0], args[1:], path, log); err != nil {
		log.Fatal("Migration command failed",
			zap.String("command", args[0]),
			zap.Error(err),
		)
	}
}

// run dispatches a single migration command. create and list only touch
// the filesystem; everything else needs a live database connection.
func run(command string, args []string, path string, log *zap.Logger) error {
	migrationsPath, err := resolveMigrationsPath(path)
	if err != nil {
		return err
	}

	log.Info("Migration CLI started",
		zap.String("command", command),
		zap.String("migrations_path", migrationsPath),
	)

	switch command {
	case "create":
		return runCreate(args, migrationsPath, log)
	case "list":
		return runList(migrationsPath, log)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.New(db, migrationsPath, log)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	switch command {
	case "up":
		return m.Up()

	case "down":
		return m.Down()

	case "step":
		n, err := intArg(args, "step count", "migrate step <n>")
		if err != nil {
			return err
		}
		return m.Steps(n)

	case "goto":
		v, err := intArg(args, "version", "migrate goto <version>")
		if err != nil {
			return err
		}
		if v < 0 {
			return fmt.Errorf("version must not be negative: %d", v)
		}
		return m.GoTo(uint(v))

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		if version == 0 {
			log.Info("No migrations applied")
		} else {
			log.Info("Current migration version",
				zap.Uint("version", version),
				zap.Bool("dirty", dirty),
			)
		}
		return nil

	case "force":
		v, err := intArg(args, "version", "migrate force <version>")
		if err != nil {
			return err
		}
		log.Warn("Forcing migration version - use with caution!")
		return m.Force(v)

	case "drop":
		if !hasConfirmFlag(args) {
			return errors.New("drop cancelled, rerun as 'migrate drop -confirm' to proceed")
		}
		return m.Drop()

	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func runCreate(args []string, migrationsPath string, log *zap.Logger) error {
	if len(args) == 0 {
		return errors.New("migration name required, usage: migrate create <name> [description]")
	}
	description := ""
	if len(args) > 1 {
		description = args[1]
	}

	mf, err := migration.CreateMigration(migrationsPath, args[0], description)
	if err != nil {
		return err
	}

	log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func runList(migrationsPath string, log *zap.Logger) error {
	migrations, err := migration.ListMigrations(migrationsPath)
	if err != nil {
		return err
	}

	if len(migrations) == 0 {
		log.Info("No migrations found")
		return nil
	}

	log.Info("Available migrations", zap.Int("count", len(migrations)))
	for _, m := range migrations {
		fmt.Println("  -", m)
	}
	return nil
}

// resolveMigrationsPath returns an absolute migrations directory. When no
// path is given it checks the working directory first, then next to the
// binary, so the tool works both from the repo root and when installed.
func resolveMigrationsPath(path string) (string, error) {
	if path == "" {
		path = defaultMigrationsDir
		if _, err := os.Stat(path); err != nil {
			if execPath, execErr := os.Executable(); execErr == nil {
				candidate := filepath.Join(filepath.Dir(execPath), "..", "..", defaultMigrationsDir)
				if _, err := os.Stat(candidate); err == nil {
					path = candidate
				}
			}
		}
	}
	return filepath.Abs(path)
}

func intArg(args []string, what, usage string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%s required, usage: %s", what, usage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, args[0])
	}
	return n, nil
}

func hasConfirmFlag(args []string) bool {
	for _, arg := range args {
		if arg == "-confirm" || arg == "--confirm" {
			return true
		}
	}
	return false
}

func printUsage() {
	fmt.Println(`Sales & Costs Database Migration Tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (positive=up, negative=down)
  goto <version>        Migrate to a specific version
  version               Show current migration version
  force <version>       Force set migration version (use with caution)
  drop -confirm         Drop all database objects (DANGEROUS)
  create <name> [desc]  Create a new migration file pair
  list                  List available migrations

Flags:
  -path string          Path to migrations directory (default: ./migrations)
  -log-level string     Log level: debug, info, warn, error (default: info)

Environment Variables:
  SALES_DATABASE_HOST, SALES_DATABASE_PORT, SALES_DATABASE_USER,
  SALES_DATABASE_PASSWORD, SALES_DATABASE_DBNAME, SALES_DATABASE_SSLMODE

Examples:
  # Apply all pending migrations
  migrate up

  # Roll back the last migration
  migrate step -1

  # Create a new migration
  migrate create add_invoices_table "Create invoices and invoice lines"

  # Check current version
  migrate version`)
}
