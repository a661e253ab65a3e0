// Package service runs checking sessions: it feeds candidates through the
// admission gate into workers and folds verdicts into the session counters
package service

import (
	"context"
	"sync"
	"time"

	"cyberchecker/internal/adapters/target"
	perr "cyberchecker/internal/platform/errors"
	"cyberchecker/internal/platform/logger"
	"cyberchecker/internal/platform/net/http/bind"
	"cyberchecker/internal/services/checker/aggregate"
	"cyberchecker/internal/services/checker/combo"
	"cyberchecker/internal/services/checker/domain"
	"cyberchecker/internal/services/checker/gate"
	"cyberchecker/internal/services/checker/proxy"
	"cyberchecker/internal/services/checker/retry"
	"cyberchecker/internal/services/checker/verify"
	cfgdomain "cyberchecker/internal/services/configs/domain"

	"github.com/google/uuid"
)

type command int

const (
	cmdPause command = iota
	cmdResume
)

// Checker implements domain.CheckerPort for at most one session at a time
type Checker struct {
	log     logger.Logger
	configs cfgdomain.ReaderPort
	sink    domain.SinkPort
	obs     domain.AttemptObserver

	mu  sync.Mutex
	cur *session
}

// session is the runtime state of one checking run
type session struct {
	id    string
	cfg   domain.SessionConfig
	check cfgdomain.CheckConfig

	agg *aggregate.State
	gt  *gate.Gate
	src *combo.Source
	rot *proxy.Rotator

	cancel context.CancelFunc
	cmds   chan command
	done   chan struct{}
	wg     sync.WaitGroup
}

// New builds a Checker; sink and obs may be nil when persistence or
// telemetry is not wired
func New(log logger.Logger, configs cfgdomain.ReaderPort, sink domain.SinkPort, obs domain.AttemptObserver) *Checker {
	return &Checker{
		log:     log.With().Str("component", "checker").Logger(),
		configs: configs,
		sink:    sink,
		obs:     obs,
	}
}

// Start validates cfg, loads its inputs and launches the session loop
// everything that can fail is checked here so the caller gets a synchronous error
func (c *Checker) Start(ctx context.Context, cfg domain.SessionConfig) (string, error) {
	cfg = cfg.WithDefaults()
	if err := bind.Struct(&cfg); err != nil {
		return "", err
	}
	typ, err := proxy.ParseType(cfg.ProxyType)
	if err != nil {
		return "", err
	}
	check, err := c.configs.Load(ctx, cfg.ConfigName)
	if err != nil {
		return "", err
	}
	rot, err := proxy.Load(cfg.ProxyFile, typ)
	if err != nil {
		return "", err
	}
	total, err := combo.CountLines(cfg.ComboFile)
	if err != nil {
		return "", err
	}
	src, err := combo.Open(cfg.ComboFile, cfg.Offset)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur != nil && !c.cur.finished() {
		_ = src.Close()
		return "", perr.Conflictf("a session is already running")
	}

	s := &session{
		id:    uuid.NewString(),
		cfg:   cfg,
		check: check,
		agg:   aggregate.New(),
		gt: gate.New(gate.Config{
			MaxConcurrent: cfg.MaxConcurrent,
			MaxPerWindow:  cfg.MaxPerWindow,
			Window:        cfg.WindowDuration.Duration(),
		}),
		src:  src,
		rot:  rot,
		cmds: make(chan command),
		done: make(chan struct{}),
	}
	s.agg.SetTotal(total)
	s.agg.SetState(domain.StateRunning)

	if c.sink != nil {
		started := domain.Session{
			ID:         s.id,
			ConfigName: cfg.ConfigName,
			ComboFile:  cfg.ComboFile,
			StartedAt:  time.Now().UTC(),
		}
		if err := c.sink.SessionStarted(ctx, started); err != nil {
			_ = src.Close()
			return "", err
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	c.cur = s

	c.log.Info().
		Str("session_id", s.id).
		Str("config", cfg.ConfigName).
		Str("combo_file", cfg.ComboFile).
		Int("total", total).
		Msg("session started")

	go c.run(runCtx, s)
	return s.id, nil
}

// Pause asks the dispatch loop to stop admitting new candidates
// in-flight attempts finish normally
func (c *Checker) Pause(ctx context.Context) error { return c.send(ctx, cmdPause) }

// Resume unblocks a paused dispatch loop
func (c *Checker) Resume(ctx context.Context) error { return c.send(ctx, cmdResume) }

// Stop cancels the session and waits up to HardCancelTimeout for workers
func (c *Checker) Stop(ctx context.Context) error {
	s := c.session()
	if s == nil || s.finished() {
		return perr.Conflictf("no session is running")
	}
	s.agg.SetState(domain.StateStopping)
	s.cancel()

	t := time.NewTimer(s.cfg.HardCancelTimeout.Duration())
	defer t.Stop()
	select {
	case <-s.done:
		return nil
	case <-t.C:
		c.log.Warn().Str("session_id", s.id).Msg("hard cancel timeout, abandoning workers")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot reports the current (or most recent) session counters
func (c *Checker) Snapshot(context.Context) domain.Snapshot {
	s := c.session()
	if s == nil {
		return domain.Snapshot{State: domain.StateIdle}
	}
	return s.agg.Snapshot()
}

// Hits streams valid and free results from the current session as they land
// nil when no session has started
func (c *Checker) Hits() <-chan domain.Result {
	s := c.session()
	if s == nil {
		return nil
	}
	return s.agg.Hits()
}

func (c *Checker) session() *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *Checker) send(ctx context.Context, cmd command) error {
	s := c.session()
	if s == nil || s.finished() {
		return perr.Conflictf("no session is running")
	}
	select {
	case s.cmds <- cmd:
		return nil
	case <-s.done:
		return perr.Conflictf("no session is running")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *session) finished() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// run is the dispatch loop: one candidate per gate admission, a worker
// goroutine per candidate, a fixed delay between dispatches
func (c *Checker) run(ctx context.Context, s *session) {
	defer close(s.done)
	// a session that drains naturally must still cancel its context,
	// or the ticker goroutine below outlives it
	defer s.cancel()

	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				s.agg.TickCPM()
			}
		}
	}()

	paused := false
dispatch:
	for {
		for paused {
			select {
			case cmd := <-s.cmds:
				if cmd == cmdResume {
					paused = false
					s.agg.SetState(domain.StateRunning)
				}
			case <-ctx.Done():
				break dispatch
			}
		}
		select {
		case cmd := <-s.cmds:
			if cmd == cmdPause {
				paused = true
				s.agg.SetState(domain.StatePaused)
				continue
			}
		default:
		}

		cand, ok, err := s.src.Next(ctx)
		s.agg.SetSkipped(s.src.Skipped())
		if err != nil || !ok {
			if err != nil && ctx.Err() == nil {
				c.log.Error().Err(err).Str("session_id", s.id).Msg("combo source failed")
			}
			break
		}

		release, err := s.gt.Acquire(ctx)
		if err != nil {
			break
		}
		s.agg.MarkDispatched()
		s.wg.Add(1)
		go func(cand domain.Candidate) {
			defer s.wg.Done()
			defer release()
			c.work(ctx, s, cand)
		}(cand)

		if !sleepCtx(ctx, s.cfg.CheckDelay.Duration()) {
			break
		}
	}

	s.wg.Wait()
	s.agg.SetSkipped(s.src.Skipped())
	_ = s.src.Close()
	s.rot.Close()
	s.agg.SetState(domain.StateFinished)

	snap := s.agg.Snapshot()
	if c.sink != nil {
		if err := c.sink.SessionFinished(context.Background(), s.id, snap); err != nil {
			c.log.Warn().Err(err).Str("session_id", s.id).Msg("persist session finish")
		}
	}
	c.log.Info().
		Str("session_id", s.id).
		Int("checked", snap.Checked).
		Int("valid", snap.Valid).
		Int("skipped", snap.Skipped).
		Msg("session finished")
}

// work drives one candidate through its retry budget and records the
// single terminal result
func (c *Checker) work(ctx context.Context, s *session, cand domain.Candidate) {
	started := time.Now()
	m := retry.New(retry.Config{
		MaxRetries: s.cfg.MaxRetries,
		Base:       s.cfg.RetryBase.Duration(),
		Multiplier: s.cfg.RetryMultiplier,
		MaxDelay:   s.cfg.MaxDelay.Duration(),
		Jitter:     s.cfg.Jitter,
	})

	var verdict domain.Verdict
	for {
		attempt := m.Begin()
		attemptStart := time.Now()

		hc, addr, err := s.rot.Client(s.cfg.RequestTimeout.Duration())
		if err != nil {
			verdict = domain.Verdict{Outcome: domain.OutcomeFatalError, Err: err}
		} else {
			verdict = verify.New(s.check, target.New(hc)).Verify(ctx, cand)
		}

		if c.obs != nil {
			c.obs.ObserveAttempt(ctx, domain.Attempt{
				SessionID: s.id,
				Line:      cand.Line,
				Attempt:   attempt,
				Status:    verdict.Status,
				Outcome:   verdict.Outcome,
				Latency:   time.Since(attemptStart),
				Proxy:     addr,
				At:        time.Now().UTC(),
			})
		}

		if verdict.Outcome == domain.OutcomeRateLimited {
			penalty := verdict.RetryAfter
			if penalty <= 0 {
				penalty = m.Delay()
			}
			s.gt.Penalize(penalty)
		}

		st := m.Observe(verdict.Outcome)
		if st == retry.StateDone || st == retry.StateExhausted {
			break
		}
		delay := m.Delay()
		if verdict.RetryAfter > delay {
			delay = verdict.RetryAfter
		}
		if !sleepCtx(ctx, delay) {
			break
		}
	}

	res := domain.Result{
		Candidate: cand,
		Outcome:   m.Last(),
		Attempts:  m.Attempt(),
		Captured:  verdict.Captured,
		Elapsed:   time.Since(started),
	}
	if verdict.Err != nil {
		res.Err = verdict.Err.Error()
	}

	if err := s.agg.Record(res); err != nil {
		c.log.Warn().Err(err).Int("line", cand.Line).Msg("duplicate result dropped")
		return
	}
	if c.sink != nil {
		if err := c.sink.Record(context.Background(), s.id, res); err != nil {
			c.log.Warn().Err(err).Int("line", cand.Line).Msg("persist result")
		}
	}
}

// sleepCtx waits d and reports whether the wait ran to completion
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
