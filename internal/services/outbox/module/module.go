// Package module wires the outbox publisher from core deps and a bus
package module

import (
	"fieldday/internal/adapters/bus"
	"fieldday/internal/modkit"
	"fieldday/internal/services/outbox/repo"
	"fieldday/internal/services/outbox/service"
)

// Ports exposed by the outbox module
type Ports struct {
	Publisher *service.Publisher
}

// Module bundles the publisher wiring
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the outbox module
func New(deps modkit.Deps, b bus.Publisher, overrides Options) *Module {
	if deps.PG == nil {
		panic("outbox module: Deps missing PG")
	}
	cfg := FromConfig(deps.Cfg)
	if overrides.Interval != 0 {
		cfg.Interval = overrides.Interval
	}
	if overrides.LockTTL != 0 {
		cfg.LockTTL = overrides.LockTTL
	}

	pub := service.New(deps.PG, repo.NewPG(), b, service.Config{
		Interval: cfg.Interval,
		LockTTL:  cfg.LockTTL,
	})

	return &Module{deps: deps, ports: Ports{Publisher: pub}}
}

// Name identifies the module in logs
func (m *Module) Name() string { return "outbox" }

// Ports returns the module's public ports
func (m *Module) Ports() Ports { return m.ports }
