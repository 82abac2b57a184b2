package main

import (
	"context"

	"fieldday/db"
	"fieldday/internal/platform/config"
	"fieldday/internal/platform/logger"
)

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")
	l := logger.Get()

	ctx := context.Background()

	if err := db.Migrate(ctx, pgCfg.MustString("DBURL")); err != nil {
		l.Fatal().Err(err).Msg("postgres migration failed")
	}

	// the audit sink is optional; no DSN means no ClickHouse in this deployment
	if dsn := chCfg.MayString("DBURL", ""); dsn != "" {
		if err := db.MigrateClickhouse(ctx, dsn); err != nil {
			l.Fatal().Err(err).Msg("clickhouse migration failed")
		}
	}

	l.Info().Msg("migrations complete")
}
