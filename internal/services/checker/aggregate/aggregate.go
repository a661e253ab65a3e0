// Package aggregate keeps the live counters for one checking session
package aggregate

import (
	"sync"
	"time"

	perr "cyberchecker/internal/platform/errors"
	"cyberchecker/internal/services/checker/domain"
)

// now is swapped in tests
var now = time.Now

// hitBuffer bounds the hit feed; slow consumers lose hits, counters never block
const hitBuffer = 256

// State accumulates per-session counters and the recent-check rate
// all methods are safe for concurrent use
type State struct {
	mu sync.Mutex

	startedAt time.Time
	state     domain.RunState
	total     int
	skipped   int

	dispatched int
	checked    int

	valid       int
	invalid     int
	free        int
	rateLimited int
	errored     int

	cpm        float64
	tickChecks int

	seen map[int]struct{}
	hits chan domain.Result
}

// New returns an idle State
func New() *State {
	return &State{
		startedAt: now(),
		state:     domain.StateIdle,
		seen:      map[int]struct{}{},
		hits:      make(chan domain.Result, hitBuffer),
	}
}

// SetState moves the session lifecycle state
func (s *State) SetState(st domain.RunState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// SetTotal records the combo file line count
func (s *State) SetTotal(n int) {
	s.mu.Lock()
	s.total = n
	s.mu.Unlock()
}

// SetSkipped records the malformed line count seen so far
func (s *State) SetSkipped(n int) {
	s.mu.Lock()
	s.skipped = n
	s.mu.Unlock()
}

// MarkDispatched counts a candidate handed to a worker
func (s *State) MarkDispatched() {
	s.mu.Lock()
	s.dispatched++
	s.mu.Unlock()
}

// Record tallies a terminal result; a second record for the same line
// is rejected so every candidate is counted exactly once
func (s *State) Record(r domain.Result) error {
	s.mu.Lock()
	if _, dup := s.seen[r.Candidate.Line]; dup {
		s.mu.Unlock()
		return perr.Conflictf("line %d already recorded", r.Candidate.Line)
	}
	s.seen[r.Candidate.Line] = struct{}{}
	s.checked++
	s.tickChecks++

	switch r.Outcome {
	case domain.OutcomeValid:
		s.valid++
	case domain.OutcomeInvalid:
		s.invalid++
	case domain.OutcomeFree:
		s.free++
	case domain.OutcomeRateLimited:
		s.rateLimited++
	default:
		s.errored++
	}
	s.mu.Unlock()

	if r.Outcome == domain.OutcomeValid || r.Outcome == domain.OutcomeFree {
		select {
		case s.hits <- r:
		default:
		}
	}
	return nil
}

// Hits is the feed of valid and free results; sends never block,
// so a stalled reader drops hits rather than stalling workers
func (s *State) Hits() <-chan domain.Result { return s.hits }

// TickCPM folds the checks completed since the last tick into the
// smoothed checks-per-minute rate; call it once per second
func (s *State) TickCPM() {
	s.mu.Lock()
	instant := float64(s.tickChecks) * 60
	s.tickChecks = 0
	s.cpm = s.cpm*0.6 + instant*0.4
	s.mu.Unlock()
}

// Snapshot returns a consistent copy of the counters
func (s *State) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Snapshot{
		State:       s.state,
		Total:       s.total,
		Checked:     s.checked,
		Valid:       s.valid,
		Invalid:     s.invalid,
		Free:        s.free,
		RateLimited: s.rateLimited,
		Errored:     s.errored,
		Skipped:     s.skipped,
		Pending:     s.dispatched - s.checked,
		CPM:         int(s.cpm),
		Elapsed:     domain.Millis(now().Sub(s.startedAt)),
	}
}
