// Package module wires the checker into the API using modkit
package module

import (
	"net/http"

	modkit "cyberchecker/internal/modkit"
	"cyberchecker/internal/modkit/httpkit"
	str "cyberchecker/internal/platform/strings"
	"cyberchecker/internal/services/checker/domain"
	chkhttp "cyberchecker/internal/services/checker/http"
	chksvc "cyberchecker/internal/services/checker/service"
	cfgdomain "cyberchecker/internal/services/configs/domain"
)

// Needs are the cross module ports the checker consumes
// Sink and Observer may be nil when persistence or telemetry is off
type Needs struct {
	Configs  cfgdomain.ReaderPort
	Sink     domain.SinkPort
	Observer domain.AttemptObserver
}

// Ports exposed by the checker module
type Ports struct {
	Checker domain.CheckerPort
}

// Module implements the checker module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws   []func(http.Handler) http.Handler
	ports Ports

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc *chksvc.Checker
}

// New constructs the checker module; inject Needs via modkit.WithPorts
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("checker"), modkit.WithPrefix("/checker")}, opts...)...)

	needs, ok := b.Ports.(Needs)
	if !ok || needs.Configs == nil {
		panic("checker module requires a configs reader port")
	}
	svc := chksvc.New(deps.Log, needs.Configs, needs.Sink, needs.Observer)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = Ports{Checker: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		chkhttp.Register(r, m.svc)
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
