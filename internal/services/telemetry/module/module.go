// Package module wires telemetry into the process using modkit
package module

import (
	modkit "cyberchecker/internal/modkit"
	"cyberchecker/internal/modkit/httpkit"
	str "cyberchecker/internal/platform/strings"
	chkdomain "cyberchecker/internal/services/checker/domain"
	"cyberchecker/internal/services/telemetry/repo"
	telsvc "cyberchecker/internal/services/telemetry/service"
)

// Ports exposed by the telemetry module
type Ports struct {
	Observer chkdomain.AttemptObserver
}

// Module implements the telemetry module
// it mounts no routes; it exists for its observer port and lifecycle
type Module struct {
	deps  modkit.Deps
	name  string
	ports Ports

	svc *telsvc.Service
}

// New constructs the telemetry module; requires deps.CH
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("telemetry")}, opts...)...)

	if deps.CH == nil {
		panic("telemetry module requires clickhouse")
	}
	mo := FromConfig(deps.Cfg)
	svc := telsvc.New(repo.NewCH(deps.CH), telsvc.Config{
		FlushInterval: mo.FlushInterval,
		BatchSize:     mo.BatchSize,
		Buffer:        mo.Buffer,
	}, deps.Log)

	return &Module{deps: deps, name: b.Name, ports: Ports{Observer: svc}, svc: svc}
}

// MountRoutes implements module.Module; telemetry has no HTTP surface
func (m *Module) MountRoutes(httpkit.Router) {}

// Close flushes buffered attempts
func (m *Module) Close() error { return m.svc.Close() }

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.name, "module name") }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return "" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
