// Package api provides the HTTP API for the application
package api

import (
	"cyberchecker/internal/platform/config"
	"cyberchecker/internal/platform/logger"
	phttp "cyberchecker/internal/platform/net/http"
	"cyberchecker/internal/platform/store"

	"cyberchecker/internal/modkit"
	"cyberchecker/internal/modkit/httpkit"
	"cyberchecker/internal/modkit/module"
	"cyberchecker/internal/modkit/swaggerkit"

	chkdomain "cyberchecker/internal/services/checker/domain"
	checkermod "cyberchecker/internal/services/checker/module"
	cfgdomain "cyberchecker/internal/services/configs/domain"
	configsmod "cyberchecker/internal/services/configs/module"
	resultsmod "cyberchecker/internal/services/results/module"
	telemetrymod "cyberchecker/internal/services/telemetry/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool
}

// Mount mounts the API service onto the given router
// results and telemetry come up only when their backend is configured;
// the checker runs either way
func Mount(r phttp.Router, opt Options) {
	deps := modkit.Deps{
		Log: *opt.Logger,
		Cfg: opt.Config,
	}
	if opt.Store != nil {
		deps.PG = opt.Store.PG
		deps.CH = opt.Store.CH
	}

	configs := configsmod.New(deps)
	reader := module.MustPortsOf[cfgdomain.ReaderPort](configs)

	needs := checkermod.Needs{Configs: reader}
	mods := []module.Module{configs}

	if deps.PG != nil {
		results := resultsmod.New(deps)
		needs.Sink = module.MustPortsOf[chkdomain.SinkPort](results)
		mods = append(mods, results)
	}
	if deps.CH != nil {
		telemetry := telemetrymod.New(deps)
		needs.Observer = module.MustPortsOf[chkdomain.AttemptObserver](telemetry)
		mods = append(mods, telemetry)
	}

	mods = append(mods, checkermod.New(deps, modkit.WithPorts(needs)))

	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		swaggerkit.Mount(r, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		for _, m := range mods {
			module.Register(m.Name(), m.Ports())
			m.MountRoutes(api)
		}
	})
}
