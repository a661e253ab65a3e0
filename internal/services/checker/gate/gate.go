// Package gate admits verification attempts under concurrency and rate budgets
package gate

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// now is a seam for tests
var now = time.Now

// Config bounds admissions
// MaxPerWindow/Window of zero disables the window budget
type Config struct {
	MaxConcurrent int
	MaxPerWindow  int
	Window        time.Duration
}

// Gate blocks admissions on a concurrency semaphore and a sliding window budget
type Gate struct {
	sem     chan struct{}
	limiter *rate.Limiter

	mu           sync.Mutex
	inFlight     int
	penaltyUntil time.Time
}

// New builds a Gate from cfg
func New(cfg Config) *Gate {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	g := &Gate{sem: make(chan struct{}, cfg.MaxConcurrent)}
	if cfg.MaxPerWindow > 0 && cfg.Window > 0 {
		g.limiter = rate.NewLimiter(
			rate.Limit(float64(cfg.MaxPerWindow)/cfg.Window.Seconds()),
			cfg.MaxPerWindow,
		)
	}
	return g
}

// Acquire blocks until a slot and a window token are available
// the returned release closure is idempotent and must be called on every exit path
func (g *Gate) Acquire(ctx context.Context) (func(), error) {
	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	g.mu.Lock()
	g.inFlight++
	g.mu.Unlock()

	release := sync.OnceFunc(func() {
		<-g.sem
		g.mu.Lock()
		g.inFlight--
		g.mu.Unlock()
	})

	if err := g.waitPenalty(ctx); err != nil {
		release()
		return nil, err
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			release()
			return nil, err
		}
	}
	return release, nil
}

// InFlight reports admissions currently held
func (g *Gate) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}

// Penalize delays further admissions by d from now
// used as backpressure after a rate-limited verdict; overlapping penalties
// keep the furthest deadline
func (g *Gate) Penalize(d time.Duration) {
	if d <= 0 {
		return
	}
	until := now().Add(d)
	g.mu.Lock()
	if until.After(g.penaltyUntil) {
		g.penaltyUntil = until
	}
	g.mu.Unlock()
}

func (g *Gate) waitPenalty(ctx context.Context) error {
	for {
		g.mu.Lock()
		wait := g.penaltyUntil.Sub(now())
		g.mu.Unlock()
		if wait <= 0 {
			return nil
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
