package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"fieldday/internal/adapters/jobs"
	"fieldday/internal/adapters/provider"
	"fieldday/internal/modkit"
	"fieldday/internal/platform/config"
	"fieldday/internal/platform/logger"
	"fieldday/internal/platform/store"
	"fieldday/internal/services/ops"
	sourcermod "fieldday/internal/services/sourcer/module"
)

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")
	provCfg := root.Prefix("PROVIDER_HTTP_")
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
		CH: store.CHConfig{
			Enabled: chCfg.MayString("DBURL", "") != "",
			URL:     chCfg.MayString("DBURL", ""),
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

	deps := modkit.Deps{Cfg: root, PG: st.PG, CH: st.CH, Log: *l}
	fetch := provider.NewClient(provider.Options{
		UserAgent: provCfg.MayString("USER_AGENT", "fieldday-api"),
	})
	queue := jobs.NewPGQueue(st.PG)
	sm := sourcermod.New(deps, fetch, queue, sourcermod.Options{})

	srv := ops.New(root, st, sm.Ports().Runner)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			l.Error().Err(err).Msg("http shutdown failed")
		}
		<-errCh
	case err := <-errCh:
		if err != nil {
			l.Fatal().Err(err).Msg("http server failed")
		}
	}
}
