// @title         CyberChecker API
// @version       0.1.0
// @description   Account checking sessions, check configs and persisted results

package main

import (
	"context"

	"cyberchecker/internal/platform/config"
	"cyberchecker/internal/platform/logger"
	phttp "cyberchecker/internal/platform/net/http"
	"cyberchecker/internal/platform/store"

	"cyberchecker/internal/services/api"
)

func main() {
	// service-scoped config for HTTP etc (CHECKER_API_*)
	root := config.New()
	apiCfg := root.Prefix("CHECKER_API_")

	pgCfg := root.Prefix("SERVICE_PGSQL_")      // pgCfg lives under SERVICE_PGSQL_*
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_") // chCfg lives under SERVICE_CLICKHOUSE_*

	logger.Init(logger.FromEnv())
	l := logger.Get()

	// open the platform store; either backend can be switched off, the API
	// then runs without result persistence or telemetry
	st, err := store.Open(
		context.Background(),
		store.Config{
			AppName: "cyberchecker",
			PG: store.PGConfig{
				Enabled:     pgCfg.MayBool("ENABLED", false),
				URL:         pgCfg.MayString("DBURL", ""),
				MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
				SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
				LogSQL:      pgCfg.MayBool("LOG_SQL", true),
			},
			CH: store.CHConfig{
				Enabled:    chCfg.MayBool("ENABLED", false),
				URL:        chCfg.MayString("DBURL", ""),
				ClientName: "cyberchecker",
				ClientTag:  "api",
			},
		},
		store.WithLogger(*logger.Get()),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// http server (reads CHECKER_API_ADDR)
	srv := phttp.NewServer(apiCfg)

	api.Mount(
		srv.Router(),
		api.Options{
			Config:         apiCfg,
			Store:          st,
			Logger:         l,
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", true),
		},
	)

	if err := srv.Run(context.Background()); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
