// Package migration applies the versioned Postgres schema with golang-migrate.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// MigrationsTable is where golang-migrate records the applied version
const MigrationsTable = "schema_migrations"

// Migrator runs schema migrations against one database
type Migrator struct {
	m      *migrate.Migrate
	logger *zap.Logger
}

// New creates a migrator reading migration files from src, which is usually
// the embedded migrations.FS. db stays open after Close.
func New(db *sql.DB, src fs.FS, logger *zap.Logger) (*Migrator, error) {
	source, err := iofs.New(src, ".")
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		return nil, fmt.Errorf("create postgres driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return &Migrator{m: m, logger: logger}, nil
}

// Up applies every pending migration
func (mg *Migrator) Up() error {
	return mg.run("up", mg.m.Up)
}

// Down rolls back every applied migration
func (mg *Migrator) Down() error {
	return mg.run("down", mg.m.Down)
}

// Steps applies n migrations forward, or rolls back -n when n is negative
func (mg *Migrator) Steps(n int) error {
	return mg.run(fmt.Sprintf("steps %d", n), func() error { return mg.m.Steps(n) })
}

// To migrates up or down to version
func (mg *Migrator) To(version uint) error {
	return mg.run(fmt.Sprintf("to %d", version), func() error { return mg.m.Migrate(version) })
}

// Version returns the applied version; 0 means nothing is applied
func (mg *Migrator) Version() (uint, bool, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return v, dirty, nil
}

// Force records version as applied and clears the dirty flag without running
// any SQL. It is the way out after a migration failed halfway.
func (mg *Migrator) Force(version int) error {
	mg.logger.Warn("Forcing migration version", zap.Int("version", version))
	if err := mg.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Close releases the migration source. The database handle is closed by the caller.
func (mg *Migrator) Close() error {
	srcErr, _ := mg.m.Close()
	return srcErr
}

func (mg *Migrator) run(op string, fn func() error) error {
	mg.logger.Info("Running migrations", zap.String("op", op))
	err := fn()
	if errors.Is(err, migrate.ErrNoChange) {
		mg.logger.Info("Schema already up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", op, err)
	}
	v, dirty, err := mg.Version()
	if err != nil {
		return err
	}
	mg.logger.Info("Migrations applied", zap.Uint("version", v), zap.Bool("dirty", dirty))
	return nil
}
