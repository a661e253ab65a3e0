// Package module wires results into the API using modkit
package module

import (
	"net/http"

	modkit "cyberchecker/internal/modkit"
	"cyberchecker/internal/modkit/httpkit"
	str "cyberchecker/internal/platform/strings"
	chkdomain "cyberchecker/internal/services/checker/domain"
	"cyberchecker/internal/services/results/domain"
	reshttp "cyberchecker/internal/services/results/http"
	"cyberchecker/internal/services/results/repo"
	ressvc "cyberchecker/internal/services/results/service"
)

// Ports exposed by the results module
type Ports struct {
	Sink     chkdomain.SinkPort
	Query    domain.QueryPort
	Exporter domain.ExportPort
}

// Module implements the results module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws   []func(http.Handler) http.Handler
	ports Ports

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc *ressvc.Service
}

// New constructs the results module; requires deps.PG
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("results"), modkit.WithPrefix("/results")}, opts...)...)

	if deps.PG == nil {
		panic("results module requires postgres")
	}
	mo := FromConfig(deps.Cfg)
	svc := ressvc.New(deps.PG, repo.NewPG(), ressvc.Config{
		ExportDir: mo.ExportDir,
		HardLimit: mo.HardLimit,
	}, deps.Log)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = Ports{Sink: svc, Query: svc, Exporter: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		reshttp.Register(r, m.svc)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		if m.register != nil {
			m.register(rr)
		}
	})
}

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.name, "module name") }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
