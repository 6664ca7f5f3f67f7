package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/config"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/logger"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/migration"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	var (
		dir      string
		logLevel string
	)
	flag.StringVar(&dir, "dir", "migrations", "Directory new migrations are written to (create only)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{Level: logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	// create and list work on files only
	switch command {
	case "create":
		if len(args) < 2 {
			log.Fatal("Migration name required. Usage: migrate create <name>")
		}
		e, err := migration.Create(dir, args[1])
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		log.Info("Migration created",
			zap.Uint("version", e.Version),
			zap.String("up_file", e.Base()+".up.sql"),
			zap.String("down_file", e.Base()+".down.sql"),
		)
		return

	case "list":
		entries, err := migration.List(migrations.FS)
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		if err := migration.Validate(entries); err != nil {
			log.Warn("Embedded migrations are inconsistent", zap.Error(err))
		}
		for _, e := range entries {
			fmt.Printf("  %06d  %-32s up=%t down=%t\n", e.Version, e.Name, e.HasUp, e.HasDown)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	m, err := migration.New(db, migrations.FS, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	switch command {
	case "up":
		err = m.Up()

	case "down":
		if !hasFlag(args[1:], "-confirm") {
			log.Fatal("Rolling back every migration drops all data. Use 'migrate down -confirm'.")
		}
		err = m.Down()

	case "step":
		n := intArg(log, args, "Step count required. Usage: migrate step <n>")
		err = m.Steps(n)

	case "goto":
		v := intArg(log, args, "Version required. Usage: migrate goto <version>")
		if v < 0 {
			log.Fatal("Version must not be negative")
		}
		err = m.To(uint(v))

	case "force":
		v := intArg(log, args, "Version required. Usage: migrate force <version>")
		log.Warn("Forcing migration version")
		err = m.Force(v)

	case "version":
		version, dirty, verr := m.Version()
		if verr != nil {
			log.Fatal("Failed to read version", zap.Error(verr))
		}
		if version == 0 {
			log.Info("No migrations applied")
			return
		}
		log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatal("Migration failed", zap.String("command", command), zap.Error(err))
	}
}

func intArg(log *zap.Logger, args []string, usage string) int {
	if len(args) < 2 {
		log.Fatal(usage)
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		log.Fatal("Invalid number", zap.String("value", args[1]))
	}
	return n
}

func hasFlag(args []string, name string) bool {
	for _, a := range args {
		if a == name || a == "-"+name {
			return true
		}
	}
	return false
}

func printUsage() {
	fmt.Println(`Zone reporting database migrations

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                Apply all pending migrations
  down -confirm     Roll back every migration
  step <n>          Apply n migrations (positive=up, negative=down)
  goto <version>    Migrate to a specific version
  version           Show the current migration version
  force <version>   Set the version without running migrations
  create <name>     Write a new empty up/down pair to -dir
  list              List the embedded migrations

Flags:
  -dir string        Directory for create (default: migrations)
  -log-level string  Log level: debug, info, warn, error (default: info)

The database is configured through config.toml or ZONE_DATABASE_* variables.`)
}
