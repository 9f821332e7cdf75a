// Package migrate keeps the catalog schema current using golang-migrate.
package migrate

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// VersionTable records the applied catalog schema version. It is separate from the
// default table so the catalog can share a database with other migrated schemas.
const VersionTable = "chunkstore_schema_migrations"

//go:embed migrations/*.sql
var migrations embed.FS

// DirtyError reports a catalog schema left half-applied by an interrupted migration.
// It needs manual repair before manifests can be recorded.
type DirtyError struct {
	Version uint
}

func (e *DirtyError) Error() string {
	return fmt.Sprintf("catalog schema is dirty at version %d", e.Version)
}

type migrator interface {
	Up() error
	Version() (version uint, dirty bool, err error)
}

// Run applies pending catalog migrations and returns the schema version in effect.
func Run(db *sql.DB) (uint, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: VersionTable})
	if err != nil {
		return 0, fmt.Errorf("creating postgres driver: %w", err)
	}
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return 0, fmt.Errorf("reading embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return 0, fmt.Errorf("creating migrator: %w", err)
	}
	return apply(m)
}

func apply(m migrator) (uint, error) {
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		var dirty migrate.ErrDirty
		if errors.As(err, &dirty) {
			return uint(dirty.Version), &DirtyError{Version: uint(dirty.Version)}
		}
		return 0, fmt.Errorf("applying catalog migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("reading catalog schema version: %w", err)
	}
	if dirty {
		return version, &DirtyError{Version: version}
	}
	return version, nil
}
