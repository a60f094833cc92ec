package repository

import (
	"embed"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Migrate brings the schema up to date. It opens its own connection, since
// the migrate drivers close the database they are handed.
func Migrate(d Dialect, dsn string, logger *slog.Logger) error {
	db, err := Open(d, dsn)
	if err != nil {
		return fmt.Errorf("open database for migrations: %w", err)
	}

	var driver database.Driver
	switch d.Name {
	case Postgres.Name:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	case SQLite.Name:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		err = fmt.Errorf("no migrations for dialect %q", d.Name)
	}
	if err != nil {
		db.Close()
		return fmt.Errorf("migrate driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations/"+d.Name)
	if err != nil {
		db.Close()
		return fmt.Errorf("migrate source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, d.Name, driver)
	if err != nil {
		db.Close()
		return fmt.Errorf("migrate instance: %w", err)
	}
	defer m.Close()

	before, _, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("read schema version: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	after, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	logger.Info("Migration status", "dialect", d.Name, "pre_migration_version", before, "post_migration_version", after)
	return nil
}
