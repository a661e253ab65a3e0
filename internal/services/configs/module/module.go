// Package module wires configs into the API using modkit
package module

import (
	"net/http"

	modkit "cyberchecker/internal/modkit"
	"cyberchecker/internal/modkit/httpkit"
	str "cyberchecker/internal/platform/strings"
	"cyberchecker/internal/services/configs/domain"
	cfghttp "cyberchecker/internal/services/configs/http"
	cfgsvc "cyberchecker/internal/services/configs/service"
)

// Ports exposed by the configs module
type Ports struct {
	Reader  domain.ReaderPort
	Manager domain.ManagerPort
}

// Module implements the configs module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws   []func(http.Handler) http.Handler
	ports Ports

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc *cfgsvc.Service
}

// New constructs the configs module
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("configs"), modkit.WithPrefix("/configs")}, opts...)...)

	mo := FromConfig(deps.Cfg)
	svc, err := cfgsvc.New(cfgsvc.Config{Dir: mo.Dir}, deps.Log)
	if err != nil {
		panic(err)
	}

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = Ports{Reader: svc, Manager: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		cfghttp.Register(r, m.svc)
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
