package database

import (
	"errors"
	"fmt"

	"soa-backend/internal/infrastructure/database/migrations"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
)

// Migrate applies pending SQL migrations embedded in the binary. It opens
// a dedicated pool for dsn because closing the migrate instance also
// closes the *sql.DB handed to the driver.
func Migrate(dsn string) (err error) {
	db, err := Open(dsn)
	if err != nil {
		return fmt.Errorf("migrate: open: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("migrate: get sql db: %w", err)
	}

	// 1. Postgres driver on the migration pool
	driver, err := pgxmigrate.WithInstance(sqlDB, &pgxmigrate.Config{})
	if err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("migrate: driver: %w", err)
	}

	// 2. Embedded migration source
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		_ = driver.Close()
		return fmt.Errorf("migrate: source: %w", err)
	}

	// 3. Migrate instance
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		_ = src.Close()
		_ = driver.Close()
		return fmt.Errorf("migrate: init: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if closeErr := multierr.Combine(srcErr, dbErr); closeErr != nil {
			log.Warn().Err(closeErr).Msg("migrate: close")
			err = multierr.Append(err, fmt.Errorf("migrate: close: %w", closeErr))
		}
	}()

	// 4. Up
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate: up: %w", err)
	}
	version, dirty, _ := m.Version()
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("database migrations applied")
	return nil
}
