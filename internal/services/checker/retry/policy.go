// Package retry drives per-candidate retries as an explicit state machine
package retry

import (
	"math"
	"math/rand"
	"time"

	"cyberchecker/internal/services/checker/domain"
)

// randInt63n is a seam for deterministic jitter in tests
var randInt63n = rand.Int63n

// State is the machine position between attempts
type State string

// Machine states
const (
	StatePending    State = "pending"
	StateAttempting State = "attempting"
	StateRetrying   State = "retrying"
	StateDone       State = "done"
	StateExhausted  State = "exhausted"
)

// Config bounds retries and shapes the backoff curve
type Config struct {
	MaxRetries int
	Base       time.Duration
	Multiplier float64
	MaxDelay   time.Duration
	Jitter     bool
}

// Machine tracks one candidate through its attempts
// total attempts never exceed MaxRetries+1
type Machine struct {
	cfg     Config
	state   State
	attempt int
	last    domain.Outcome
}

// New builds a Machine in StatePending
func New(cfg Config) *Machine {
	if cfg.Base <= 0 {
		cfg.Base = 500 * time.Millisecond
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 2
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	return &Machine{cfg: cfg, state: StatePending}
}

// Begin starts the next attempt and returns its 1-based number
// panics when called from a terminal state, which is a programmer error
func (m *Machine) Begin() int {
	switch m.state {
	case StatePending, StateRetrying:
		m.attempt++
		m.state = StateAttempting
		return m.attempt
	default:
		panic("retry: Begin from state " + string(m.state))
	}
}

// Observe feeds the attempt's verdict and moves the machine
// terminal verdicts finish regardless of budget; transient and
// rate-limited verdicts retry until the budget runs out
func (m *Machine) Observe(o domain.Outcome) State {
	if m.state != StateAttempting {
		panic("retry: Observe from state " + string(m.state))
	}
	m.last = o
	switch {
	case o.Terminal():
		m.state = StateDone
	case m.attempt >= m.cfg.MaxRetries+1:
		m.state = StateExhausted
	default:
		m.state = StateRetrying
	}
	return m.state
}

// Delay returns the backoff before the next attempt:
// base * multiplier^(attempt-1) capped at MaxDelay, with optional
// half-open jitter keeping at least half the computed delay
func (m *Machine) Delay() time.Duration {
	d := time.Duration(float64(m.cfg.Base) * math.Pow(m.cfg.Multiplier, float64(m.attempt-1)))
	if d <= 0 || d > m.cfg.MaxDelay {
		d = m.cfg.MaxDelay
	}
	if m.cfg.Jitter && d > 1 {
		d = d/2 + time.Duration(randInt63n(int64(d/2)))
	}
	return d
}

// State returns the current machine state
func (m *Machine) State() State { return m.state }

// Attempt returns the number of attempts begun so far
func (m *Machine) Attempt() int { return m.attempt }

// Last returns the most recently observed outcome
func (m *Machine) Last() domain.Outcome { return m.last }
