package store

import (
	"context"
	"time"

	"cyberchecker/internal/platform/store/ch"
	"cyberchecker/internal/platform/store/pg"
)

// pingRetries bounds startup waits for backends that are still warming up
const (
	pingRetries  = 5
	pingInterval = 2 * time.Second
)

// openPG dials postgres and returns the adapter only after a healthy ping
func openPG(ctx context.Context, cfg Config, s *Store) (*pgAdapter, error) {
	var tracer pg.QueryTracer
	if cfg.PG.LogSQL {
		tracer = pg.Tracer(s.Log)
	}

	client, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		MaxConns: cfg.PG.MaxConns,
		SlowMs:   cfg.PG.SlowQueryMs,
	}, tracer, nil)
	if err != nil {
		return nil, err
	}

	a := newPGAdapter(client)
	if err := pingWithRetry(ctx, s, "pg", a.Ping); err != nil {
		client.Close()
		return nil, err
	}
	return a, nil
}

// openCH dials clickhouse and verifies connectivity before returning
func openCH(ctx context.Context, cfg Config, s *Store) (*chAdapter, error) {
	name := cfg.CH.ClientName
	if name == "" {
		name = cfg.AppName
	}
	client, err := ch.Open(ctx, ch.Config{
		URL:        cfg.CH.URL,
		ClientName: name,
		ClientTag:  cfg.CH.ClientTag,
	})
	if err != nil {
		return nil, err
	}

	a := &chAdapter{c: client}
	if err := pingWithRetry(ctx, s, "ch", a.Ping); err != nil {
		_ = client.Close()
		return nil, err
	}
	return a, nil
}

// pingWithRetry retries a backend ping a few times before giving up,
// logging each failed attempt
func pingWithRetry(ctx context.Context, s *Store, name string, ping func(context.Context) error) error {
	var last error
	for i := 0; i < pingRetries; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if last = ping(ctx); last == nil {
			return nil
		}
		s.Log.Warn().
			Str("backend", name).
			Int("attempt", i+1).
			Err(last).
			Msg("store ping failed, retrying")

		t := time.NewTimer(pingInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return last
}
