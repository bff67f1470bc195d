// Package migrations embeds the postgres schema and applies it with golang-migrate
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq" // PostgreSQL driver for database/sql
)

//go:embed files/*.sql
var migrationFiles embed.FS

// Open connects to postgres through lib/pq for the migration runner
func Open(url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return db, nil
}

// Status reports the applied version, whether it is dirty, and the latest embedded version
func Status(db *sql.DB) (current uint, dirty bool, latest uint, err error) {
	m, err := newMigrate(db)
	if err != nil {
		return 0, false, 0, err
	}

	latest, err = LatestVersion()
	if err != nil {
		return 0, false, 0, err
	}

	current, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, latest, nil
	}
	if err != nil {
		return 0, false, 0, fmt.Errorf("failed to get database version: %w", err)
	}
	return current, dirty, latest, nil
}

// CheckDBMigrationStatus returns nil only when the schema is at the latest embedded version
func CheckDBMigrationStatus(db *sql.DB) error {
	current, dirty, latest, err := Status(db)
	if err != nil {
		return err
	}
	switch {
	case dirty:
		return fmt.Errorf("database is in dirty state at version %d (migration failed previously)", current)
	case current == 0:
		return fmt.Errorf("database has no schema version (needs migration)")
	case current < latest:
		return fmt.Errorf("database is at version %d but latest is %d (%d migrations behind)", current, latest, latest-current)
	case current > latest:
		return fmt.Errorf("database version %d is ahead of binary version %d (binary needs update)", current, latest)
	}
	return nil
}

// MigrateUp applies every pending migration
func MigrateUp(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return err
	}
	// m is not closed: closing it would close the caller's db

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// MigrateDown rolls back the given number of migrations
func MigrateDown(db *sql.DB, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", steps)
	}
	m, err := newMigrate(db)
	if err != nil {
		return err
	}
	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rollback failed: %w", err)
	}
	return nil
}

func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	sourceDriver, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		sourceDriver.Close()
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		sourceDriver.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// LatestVersion is the highest version among the embedded migrations
func LatestVersion() (uint, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return 0, fmt.Errorf("failed to read migration files: %w", err)
	}
	defer src.Close()
	return latestVersion(src)
}

func latestVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(version)
		if err != nil {
			// Next fails once there are no more migrations
			break
		}
		version = next
	}
	return version, nil
}
