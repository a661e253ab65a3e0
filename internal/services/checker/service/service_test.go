package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	perr "cyberchecker/internal/platform/errors"
	"cyberchecker/internal/platform/logger"
	"cyberchecker/internal/services/checker/domain"
	cfgdomain "cyberchecker/internal/services/configs/domain"
)

type readerStub struct {
	cfg cfgdomain.CheckConfig
	err error
}

func (r readerStub) Load(context.Context, string) (cfgdomain.CheckConfig, error) {
	return r.cfg, r.err
}

type sinkRec struct {
	mu       sync.Mutex
	started  []domain.Session
	results  map[int]domain.Result
	finished []domain.Snapshot
}

func newSinkRec() *sinkRec { return &sinkRec{results: map[int]domain.Result{}} }

func (s *sinkRec) SessionStarted(_ context.Context, sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, sess)
	return nil
}

func (s *sinkRec) Record(_ context.Context, _ string, r domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.Candidate.Line] = r
	return nil
}

func (s *sinkRec) SessionFinished(_ context.Context, _ string, snap domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = append(s.finished, snap)
	return nil
}

func (s *sinkRec) result(line int) (domain.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[line]
	return r, ok
}

func loginCfg(url string) cfgdomain.CheckConfig {
	return cfgdomain.CheckConfig{
		Name: "acct",
		Requests: []cfgdomain.RequestSpec{{
			Method: "POST",
			URL:    url,
			Data:   map[string]string{"u": "{USERNAME}", "p": "{PASSWORD}"},
		}},
		SuccessConditions: []cfgdomain.Condition{{Type: "contains", Value: "welcome"}},
		FailureConditions: []cfgdomain.Condition{{Type: "status_code", Value: "401"}},
	}
}

func writeCombo(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "combo.txt")
	if err := os.WriteFile(path, []byte(lines), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func sessionCfg(combo string) domain.SessionConfig {
	return domain.SessionConfig{
		ConfigName:     "acct",
		ComboFile:      combo,
		MaxConcurrent:  4,
		RetryBase:      domain.Millis(time.Millisecond),
		MaxDelay:       domain.Millis(10 * time.Millisecond),
		RequestTimeout: domain.Millis(2 * time.Second),
		CheckDelay:     domain.Millis(time.Millisecond),
	}
}

func waitFinished(t *testing.T, c *Checker) domain.Snapshot {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		snap := c.Snapshot(context.Background())
		if snap.State == domain.StateFinished {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("session did not finish in time")
	return domain.Snapshot{}
}

func TestSessionChecksAllCandidates(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("p") == "good" {
			fmt.Fprint(w, "welcome")
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sink := newSinkRec()
	c := New(*logger.Get(), readerStub{cfg: loginCfg(srv.URL)}, sink, nil)

	combo := writeCombo(t, "a:good\nb:bad\nmalformed line\nc:good\n")
	id, err := c.Start(context.Background(), sessionCfg(combo))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if id == "" {
		t.Fatal("want a session id")
	}

	snap := waitFinished(t, c)
	if snap.Total != 4 || snap.Checked != 3 || snap.Skipped != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Valid != 2 || snap.Invalid != 1 || snap.Pending != 0 {
		t.Fatalf("snapshot = %+v", snap)
	}
	for _, line := range []int{1, 2, 4} {
		r, ok := sink.result(line)
		if !ok {
			t.Fatalf("line %d not recorded", line)
		}
		if r.Attempts != 1 {
			t.Fatalf("line %d attempts = %d, want 1", line, r.Attempts)
		}
	}
	if len(sink.started) != 1 || len(sink.finished) != 1 {
		t.Fatalf("lifecycle events: started=%d finished=%d", len(sink.started), len(sink.finished))
	}

	hitLines := map[int]bool{}
	for len(c.Hits()) > 0 {
		hitLines[(<-c.Hits()).Candidate.Line] = true
	}
	if !hitLines[1] || !hitLines[4] || hitLines[2] {
		t.Fatalf("streamed hits = %v, want lines 1 and 4", hitLines)
	}
}

func TestTransientFailuresRetryThenSucceed(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	counts := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		u := r.PostForm.Get("u")
		mu.Lock()
		counts[u]++
		n := counts[u]
		mu.Unlock()
		if u == "flaky" && n <= 2 {
			time.Sleep(500 * time.Millisecond)
			return
		}
		fmt.Fprint(w, "welcome")
	}))
	defer srv.Close()

	sink := newSinkRec()
	c := New(*logger.Get(), readerStub{cfg: loginCfg(srv.URL)}, sink, nil)

	cfg := sessionCfg(writeCombo(t, "flaky:pw\n"))
	cfg.MaxRetries = 2
	cfg.RequestTimeout = domain.Millis(100 * time.Millisecond)
	if _, err := c.Start(context.Background(), cfg); err != nil {
		t.Fatalf("start: %v", err)
	}

	snap := waitFinished(t, c)
	if snap.Valid != 1 {
		t.Fatalf("snapshot = %+v, want one valid", snap)
	}
	r, ok := sink.result(1)
	if !ok || r.Outcome != domain.OutcomeValid || r.Attempts != 3 {
		t.Fatalf("result = %+v, want valid after 3 attempts", r)
	}
}

func TestExhaustedBudgetRecordsTransientError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("u") == "dead" {
			time.Sleep(500 * time.Millisecond)
			return
		}
		fmt.Fprint(w, "welcome")
	}))
	defer srv.Close()

	sink := newSinkRec()
	c := New(*logger.Get(), readerStub{cfg: loginCfg(srv.URL)}, sink, nil)

	cfg := sessionCfg(writeCombo(t, "dead:pw\nalive:pw\n"))
	cfg.MaxRetries = 2
	cfg.RequestTimeout = domain.Millis(100 * time.Millisecond)
	if _, err := c.Start(context.Background(), cfg); err != nil {
		t.Fatalf("start: %v", err)
	}

	snap := waitFinished(t, c)
	if snap.Errored != 1 || snap.Valid != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
	r, ok := sink.result(1)
	if !ok || r.Outcome != domain.OutcomeTransientError || r.Attempts != 3 {
		t.Fatalf("result = %+v, want transient_error after 3 attempts", r)
	}
}

func TestStartConflictsWhileRunning(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		fmt.Fprint(w, "welcome")
	}))
	defer srv.Close()

	c := New(*logger.Get(), readerStub{cfg: loginCfg(srv.URL)}, nil, nil)
	combo := writeCombo(t, "a:1\nb:2\nc:3\nd:4\ne:5\n")
	cfg := sessionCfg(combo)
	cfg.MaxConcurrent = 1

	if _, err := c.Start(context.Background(), cfg); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err := c.Start(context.Background(), cfg)
	if !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("second start err = %v, want conflict", err)
	}
	_ = c.Stop(context.Background())
}

func TestStartRejectsBadInputs(t *testing.T) {
	t.Parallel()

	c := New(*logger.Get(), readerStub{cfg: loginCfg("http://example.test")}, nil, nil)

	_, err := c.Start(context.Background(), domain.SessionConfig{ComboFile: "x"})
	if !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("missing config name err = %v, want validation", err)
	}

	cfg := sessionCfg(writeCombo(t, "a:1\n"))
	cfg.ProxyType = "socks4"
	if _, err = c.Start(context.Background(), cfg); !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("socks4 err = %v, want validation", err)
	}

	cfg = sessionCfg(filepath.Join(t.TempDir(), "missing.txt"))
	if _, err = c.Start(context.Background(), cfg); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("missing combo err = %v, want not found", err)
	}

	cNoCfg := New(*logger.Get(), readerStub{err: perr.NotFoundf("no such config")}, nil, nil)
	if _, err = cNoCfg.Start(context.Background(), sessionCfg(writeCombo(t, "a:1\n"))); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("unknown config err = %v, want not found", err)
	}
}

func TestPauseAndResume(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		fmt.Fprint(w, "welcome")
	}))
	defer srv.Close()

	c := New(*logger.Get(), readerStub{cfg: loginCfg(srv.URL)}, nil, nil)

	var lines string
	for i := 0; i < 20; i++ {
		lines += fmt.Sprintf("user%d:pw\n", i)
	}
	cfg := sessionCfg(writeCombo(t, lines))
	cfg.MaxConcurrent = 2
	cfg.CheckDelay = domain.Millis(10 * time.Millisecond)

	if _, err := c.Start(context.Background(), cfg); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := c.Pause(context.Background()); err != nil {
		t.Fatalf("pause: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for c.Snapshot(context.Background()).State != domain.StatePaused {
		if time.Now().After(deadline) {
			t.Fatal("session never paused")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := c.Resume(context.Background()); err != nil {
		t.Fatalf("resume: %v", err)
	}
	snap := waitFinished(t, c)
	if snap.Checked != 20 {
		t.Fatalf("checked = %d, want 20", snap.Checked)
	}
}

func TestStopAbandonsQueuedCandidates(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(30 * time.Millisecond)
		fmt.Fprint(w, "welcome")
	}))
	defer srv.Close()

	c := New(*logger.Get(), readerStub{cfg: loginCfg(srv.URL)}, nil, nil)

	var lines string
	for i := 0; i < 50; i++ {
		lines += fmt.Sprintf("user%d:pw\n", i)
	}
	cfg := sessionCfg(writeCombo(t, lines))
	cfg.MaxConcurrent = 1
	cfg.CheckDelay = domain.Millis(10 * time.Millisecond)

	if _, err := c.Start(context.Background(), cfg); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for c.Snapshot(context.Background()).Checked < 2 {
		if time.Now().After(deadline) {
			t.Fatal("no progress before stop")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	snap := waitFinished(t, c)
	if snap.Checked >= 50 {
		t.Fatalf("checked = %d, queued candidates must not run after stop", snap.Checked)
	}
	if snap.Pending != 0 {
		t.Fatalf("pending = %d after stop, want 0", snap.Pending)
	}

	if err := c.Stop(context.Background()); !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("stop after finish err = %v, want conflict", err)
	}
}

// deliberately not parallel: goroutine counting needs a quiet process
func TestFinishedSessionsReleaseGoroutinesAndConnections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "welcome")
	}))
	defer srv.Close()

	c := New(*logger.Get(), readerStub{cfg: loginCfg(srv.URL)}, nil, nil)
	combo := writeCombo(t, "a:pw\nb:pw\nc:pw\n")

	before := runtime.NumGoroutine()
	for i := 0; i < 10; i++ {
		if _, err := c.Start(context.Background(), sessionCfg(combo)); err != nil {
			t.Fatalf("start #%d: %v", i, err)
		}
		waitFinished(t, c)
	}

	// per-session tickers and keep-alive readLoops must wind down once
	// each session finishes; allow a little scheduling slack
	after := 0
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		runtime.GC()
		after = runtime.NumGoroutine()
		if after <= before+3 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("goroutines grew from %d to %d after 10 finished sessions", before, after)
}

func TestControlsRejectedWhenIdle(t *testing.T) {
	t.Parallel()

	c := New(*logger.Get(), readerStub{}, nil, nil)
	if err := c.Pause(context.Background()); !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("pause err = %v, want conflict", err)
	}
	if err := c.Resume(context.Background()); !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("resume err = %v, want conflict", err)
	}
	if err := c.Stop(context.Background()); !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("stop err = %v, want conflict", err)
	}
	if snap := c.Snapshot(context.Background()); snap.State != domain.StateIdle {
		t.Fatalf("state = %s, want idle", snap.State)
	}
}
