// Package module wires the dispatcher worker pool from core deps and
// collaborators
package module

import (
	"context"

	"fieldday/internal/adapters/audit"
	"fieldday/internal/adapters/bus"
	"fieldday/internal/modkit"
	"fieldday/internal/services/dispatch/domain"
	"fieldday/internal/services/dispatch/service"
)

// Ports exposed by the dispatch module
type Ports struct {
	Worker *service.Service
}

// Module bundles the dispatcher wiring
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the dispatch module. RequestDependency is the optional
// reactive-fetch hook; nil leaves the escape hatch disconnected even when
// the flag is on.
func New(
	deps modkit.Deps,
	queue domain.QueuePort,
	registry *domain.Registry,
	b bus.Publisher,
	requestDep func(ctx context.Context, ref string, origin domain.Command) error,
	overrides Options,
) *Module {
	if deps.PG == nil {
		panic("dispatch module: Deps missing PG")
	}
	cfg := FromConfig(deps.Cfg)
	if overrides.MaxAttempts != 0 {
		cfg.MaxAttempts = overrides.MaxAttempts
	}
	if overrides.Workers != 0 {
		cfg.Workers = overrides.Workers
	}
	if overrides.IdleSleep != 0 {
		cfg.IdleSleep = overrides.IdleSleep
	}
	if overrides.RequestMissingDeps {
		cfg.RequestMissingDeps = true
	}

	var rec audit.Recorder = audit.Nop{}
	if deps.CH != nil {
		rec = audit.NewClickhouse(deps.CH)
	}

	worker := service.New(deps.PG, queue, registry, b, rec, service.Config{
		MaxAttempts:        cfg.MaxAttempts,
		Workers:            cfg.Workers,
		IdleSleep:          cfg.IdleSleep,
		RequestMissingDeps: cfg.RequestMissingDeps,
	})
	worker.RequestDependency = requestDep

	return &Module{deps: deps, ports: Ports{Worker: worker}}
}

// Name identifies the module in logs
func (m *Module) Name() string { return "dispatch" }

// Ports returns the module's public ports
func (m *Module) Ports() Ports { return m.ports }
