package platform

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/townscope/townscope/internal/logging"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SchemaStatus is the catalog schema version recorded by golang-migrate.
type SchemaStatus struct {
	Version uint
	Dirty   bool
	// Applied is false when the database was already at Latest.
	Applied bool
	Latest  uint
}

func migrationSource() (source.Driver, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}
	return src, nil
}

// LatestMigration returns the highest migration version embedded in the binary.
func LatestMigration() (uint, error) {
	src, err := migrationSource()
	if err != nil {
		return 0, err
	}
	defer src.Close()

	v, err := src.First()
	if err != nil {
		return 0, fmt.Errorf("first migration: %w", err)
	}
	for {
		next, err := src.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		if err != nil {
			return 0, fmt.Errorf("next migration after %d: %w", v, err)
		}
		v = next
	}
}

// AutoMigrate brings the catalog schema up to the latest embedded migration
// and logs the resulting version. A dirty schema is reported, not forced.
func AutoMigrate(db *sql.DB) (SchemaStatus, error) {
	var status SchemaStatus

	latest, err := LatestMigration()
	if err != nil {
		return status, err
	}
	status.Latest = latest

	src, err := migrationSource()
	if err != nil {
		return status, err
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return status, fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return status, fmt.Errorf("create migrator: %w", err)
	}

	log := logging.With().Str("component", "migrate").Logger()

	err = m.Up()
	var dirty migrate.ErrDirty
	switch {
	case errors.As(err, &dirty):
		log.Error().Int("version", dirty.Version).Msg("schema is dirty; fix it and force the version before restarting")
		return SchemaStatus{Version: uint(dirty.Version), Dirty: true, Latest: latest}, fmt.Errorf("run migrations: %w", err)
	case errors.Is(err, migrate.ErrNoChange):
	case err != nil:
		return status, fmt.Errorf("run migrations: %w", err)
	default:
		status.Applied = true
	}

	status.Version, status.Dirty, err = m.Version()
	if err != nil {
		return status, fmt.Errorf("read schema version: %w", err)
	}
	log.Info().
		Uint("version", status.Version).
		Uint("latest", status.Latest).
		Bool("dirty", status.Dirty).
		Bool("applied", status.Applied).
		Msg("catalog schema ready")
	return status, nil
}
