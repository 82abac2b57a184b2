package main

import (
	"context"
	"net/url"
	"os/signal"
	"strings"
	"syscall"

	"fieldday/internal/adapters/bus"
	"fieldday/internal/adapters/jobs"
	"fieldday/internal/adapters/provider"
	"fieldday/internal/modkit"
	"fieldday/internal/platform/config"
	perr "fieldday/internal/platform/errors"
	"fieldday/internal/platform/logger"
	"fieldday/internal/platform/store"
	venueproc "fieldday/internal/services/canon/venue"
	dispatchdom "fieldday/internal/services/dispatch/domain"
	dispatchmod "fieldday/internal/services/dispatch/module"
	docdom "fieldday/internal/services/documents/domain"
	sourcerdom "fieldday/internal/services/sourcer/domain"
	sourcermod "fieldday/internal/services/sourcer/module"
)

// refDocTypes maps a provider URL path segment to the document type it serves;
// used only by the reactive dependency escape hatch
var refDocTypes = map[string]docdom.DocType{
	"venues":     docdom.DocTypeVenue,
	"franchises": docdom.DocTypeFranchise,
	"athletes":   docdom.DocTypeAthlete,
	"teams":      docdom.DocTypeTeamSeason,
	"groups":     docdom.DocTypeGroupSeason,
}

func docTypeFromRef(ref string) (docdom.DocType, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", perr.InvalidArgf("dependency ref is not a url: %q", ref)
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segs) - 1; i >= 0; i-- {
		if dt, ok := refDocTypes[segs[i]]; ok {
			return dt, nil
		}
	}
	return "", perr.InvalidArgf("dependency ref has no recognizable document type: %q", ref)
}

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
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 8)),
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
	queue := jobs.NewPGQueue(st.PG)
	b := bus.NewZerolog()

	registry := dispatchdom.NewRegistry()
	registry.Register(docdom.ProviderESPN, docdom.SportFootballNCAA, docdom.DocTypeVenue, venueproc.New())
	registry.Register(docdom.ProviderESPN, docdom.SportFootballNFL, docdom.DocTypeVenue, venueproc.New())

	// the sourcer backs the reactive dependency escape hatch; the flag that
	// turns the hatch on lives in the dispatch module config
	fetch := provider.NewClient(provider.Options{
		UserAgent: provCfg.MayString("USER_AGENT", "fieldday-dispatch"),
	})
	sm := sourcermod.New(deps, fetch, queue, sourcermod.Options{})
	requestDep := func(ctx context.Context, ref string, origin dispatchdom.Command) error {
		dt, err := docTypeFromRef(ref)
		if err != nil {
			return err
		}
		_, err = sm.Ports().Runner.SourceDocument(ctx, sourcerdom.Request{
			Provider:   origin.Provider,
			Sport:      origin.Sport,
			DocType:    dt,
			SeasonYear: origin.SeasonYear,
		}, ref)
		return err
	}

	dm := dispatchmod.New(deps, queue, registry, b, requestDep, dispatchmod.Options{})

	l.Info().Msg("dispatch workers starting")
	if err := dm.Ports().Worker.Run(ctx); err != nil && err != context.Canceled {
		l.Fatal().Err(err).Msg("dispatch run failed")
	}
}
