// Package module wires the sourcer service from core deps and collaborators
package module

import (
	"fieldday/internal/modkit"
	dispatchdom "fieldday/internal/services/dispatch/domain"
	docrepo "fieldday/internal/services/documents/repo"
	"fieldday/internal/services/sourcer/domain"
	"fieldday/internal/services/sourcer/service"
)

// Ports exposed by the sourcer module
type Ports struct {
	Runner domain.RunnerPort
}

// Module bundles the sourcer wiring
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the sourcer module. Env options can be overridden by the
// caller; a nonzero override wins.
func New(deps modkit.Deps, fetch domain.Fetcher, queue dispatchdom.QueuePort, overrides Options) *Module {
	if deps.PG == nil {
		panic("sourcer module: Deps missing PG")
	}
	cfg := FromConfig(deps.Cfg)
	if overrides.MaxItems != 0 {
		cfg.MaxItems = overrides.MaxItems
	}

	runner := service.New(
		deps.PG,
		docrepo.NewPG(),
		fetch,
		queue,
		service.Config{MaxItems: cfg.MaxItems},
	)

	return &Module{deps: deps, ports: Ports{Runner: runner}}
}

// Name identifies the module in logs
func (m *Module) Name() string { return "sourcer" }

// Ports returns the module's public ports
func (m *Module) Ports() Ports { return m.ports }
