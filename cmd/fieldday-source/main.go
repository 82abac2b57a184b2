package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"fieldday/internal/adapters/jobs"
	"fieldday/internal/adapters/provider"
	"fieldday/internal/modkit"
	"fieldday/internal/platform/config"
	"fieldday/internal/platform/logger"
	"fieldday/internal/platform/store"
	docdom "fieldday/internal/services/documents/domain"
	sourcerdom "fieldday/internal/services/sourcer/domain"
	sourcermod "fieldday/internal/services/sourcer/module"
)

func mustSetEnv(k, v string) {
	if v != "" {
		_ = os.Setenv(k, v)
	}
}

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
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
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	var (
		index    = flag.String("index", "", "provider index URL to walk")
		prov     = flag.String("provider", "espn", "source data provider")
		sport    = flag.String("sport", "football-ncaa", "sport identifier")
		docType  = flag.String("type", "venue", "document type sourced from this index")
		season   = flag.Int("season", 0, "season year (0 = none)")
		maxItems = flag.Int("max", 0, "max index items to consider (0 = drain)")
	)
	flag.Parse()

	if *index == "" {
		log.Fatal("-index is required")
	}

	// Pass CLI flags into CORE_SOURCER_* so the module can read its own config
	mustSetEnv("CORE_SOURCER_MAX_ITEMS", strconv.Itoa(*maxItems))

	deps := modkit.Deps{Cfg: root, PG: st.PG, Log: *l}

	fetch := provider.NewClient(provider.Options{
		UserAgent: provCfg.MayString("USER_AGENT", "fieldday-source"),
		Timeout:   provCfg.MayDuration("TIMEOUT", 0),
	})
	queue := jobs.NewPGQueue(st.PG)

	sm := sourcermod.New(deps, fetch, queue, sourcermod.Options{MaxItems: *maxItems})

	req := sourcerdom.Request{
		IndexURL: *index,
		Provider: docdom.Provider(*prov),
		Sport:    docdom.Sport(*sport),
		DocType:  docdom.DocType(*docType),
	}
	if *season != 0 {
		req.SeasonYear = season
	}

	n, err := sm.Ports().Runner.SourceIndex(ctx, req)
	if err != nil {
		l.Fatal().Err(err).Int("inserted", n).Msg("sourcing failed")
	}
	l.Info().Int("inserted", n).Msg("sourcing complete")
}
