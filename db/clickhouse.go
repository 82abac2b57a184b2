package db

import (
	"context"
	_ "embed"

	perr "fieldday/internal/platform/errors"
	"fieldday/internal/platform/logger"
	"fieldday/internal/platform/store/ch"
)

//go:embed clickhouse/dispatch_attempts.sql
var dispatchAttemptsDDL string

// MigrateClickhouse ensures the audit tables exist. ClickHouse DDL is
// CREATE IF NOT EXISTS, so reruns are no-ops.
func MigrateClickhouse(ctx context.Context, dsn string) error {
	client, err := ch.Open(ctx, ch.Config{URL: dsn, ClientName: "fieldday-migrate"})
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "migrate: clickhouse open")
	}
	defer client.Close()

	if err := client.Exec(ctx, dispatchAttemptsDDL); err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "migrate: dispatch_attempts ddl")
	}
	logger.Named("migrate").Info().Msg("clickhouse audit schema current")
	return nil
}
