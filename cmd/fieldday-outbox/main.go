package main

import (
	"context"
	"os/signal"
	"syscall"

	"fieldday/internal/adapters/bus"
	"fieldday/internal/modkit"
	"fieldday/internal/platform/config"
	"fieldday/internal/platform/logger"
	"fieldday/internal/platform/store"
	outboxmod "fieldday/internal/services/outbox/module"
)

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.Config{
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	deps := modkit.Deps{Cfg: root, PG: st.PG, Log: *l}
	om := outboxmod.New(deps, bus.NewZerolog(), outboxmod.Options{})

	l.Info().Msg("outbox publisher starting")
	if err := om.Ports().Publisher.Run(ctx); err != nil && err != context.Canceled {
		l.Fatal().Err(err).Msg("outbox run failed")
	}
}
