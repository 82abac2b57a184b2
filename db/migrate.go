// Package db embeds the schema migrations and applies them with
// golang-migrate over a pgx connection
package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	pgxv5 "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	perr "fieldday/internal/platform/errors"
	"fieldday/internal/platform/logger"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies every pending migration to the database at dsn. A fully
// migrated database is a no-op, not an error.
func Migrate(ctx context.Context, dsn string) error {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "migrate: open")
	}
	defer conn.Close()
	if err := conn.PingContext(ctx); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "migrate: ping")
	}

	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeConfiguration, "migrate: load embedded migrations")
	}
	driver, err := pgxv5.WithInstance(conn, &pgxv5.Config{})
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "migrate: init driver")
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "migrate: init instance")
	}
	defer m.Close()

	log := logger.Named("migrate")
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Msg("schema already current")
			return nil
		}
		return perr.Wrap(err, perr.ErrorCodeDB, "migrate: up")
	}
	version, dirty, verr := m.Version()
	if verr == nil {
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema migrated")
	}
	return nil
}
