// Package domain defines the types and interfaces for the checker service
package domain

import (
	"encoding/json"
	"time"
)

// Outcome classifies the terminal verdict for a candidate
type Outcome string

// Outcome values
const (
	OutcomeValid          Outcome = "valid"
	OutcomeInvalid        Outcome = "invalid"
	OutcomeFree           Outcome = "free"
	OutcomeRateLimited    Outcome = "rate_limited"
	OutcomeTransientError Outcome = "transient_error"
	OutcomeFatalError     Outcome = "fatal_error"
)

// Terminal reports whether o never benefits from another attempt
func (o Outcome) Terminal() bool {
	switch o {
	case OutcomeValid, OutcomeInvalid, OutcomeFree, OutcomeFatalError:
		return true
	}
	return false
}

// Candidate is one credential pair read from a combo file
// Line is the 1-based input line number and is the candidate's identity
type Candidate struct {
	Line     int
	Username string
	Password string
	Raw      string
}

// Result is the single terminal record for a dispatched candidate
type Result struct {
	Candidate Candidate
	Outcome   Outcome
	Attempts  int
	Captured  map[string]string
	Err       string
	Elapsed   time.Duration
}

// Verdict is the classification of one verification attempt
type Verdict struct {
	Outcome    Outcome
	Captured   map[string]string
	Status     int
	RetryAfter time.Duration
	Err        error
}

// RunState is the scheduler lifecycle state
type RunState string

// RunState values
const (
	StateIdle     RunState = "idle"
	StateRunning  RunState = "running"
	StatePaused   RunState = "paused"
	StateStopping RunState = "stopping"
	StateFinished RunState = "finished"
)

// Snapshot is a point-in-time copy of session counters
// Valid+Invalid+Free+RateLimited+Errored always equals Checked,
// and Checked+Pending equals the number of dispatched candidates
type Snapshot struct {
	State       RunState `json:"state"`
	Total       int      `json:"total"`
	Checked     int      `json:"checked"`
	Valid       int      `json:"valid"`
	Invalid     int      `json:"invalid"`
	Free        int      `json:"free"`
	RateLimited int      `json:"rate_limited"`
	Errored     int      `json:"errored"`
	Skipped     int      `json:"skipped"`
	Pending     int      `json:"pending"`
	CPM         int      `json:"cpm"`
	Elapsed     Millis   `json:"elapsed_ms"`
}

// Millis is a duration carried over the wire as integer milliseconds
type Millis time.Duration

// Duration converts m back to a time.Duration
func (m Millis) Duration() time.Duration { return time.Duration(m) }

// MarshalJSON writes the duration as whole milliseconds
func (m Millis) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(m).Milliseconds())
}

// UnmarshalJSON reads whole milliseconds
func (m *Millis) UnmarshalJSON(b []byte) error {
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*m = Millis(time.Duration(n) * time.Millisecond)
	return nil
}

// SessionConfig describes one checking session
// zero duration fields fall back to the defaults applied by WithDefaults
type SessionConfig struct {
	ConfigName string `json:"config_name" validate:"required"`
	ComboFile  string `json:"combo_file" validate:"required"`
	Offset     int    `json:"offset" validate:"min=0"`

	ProxyFile string `json:"proxy_file,omitempty"`
	ProxyType string `json:"proxy_type,omitempty" validate:"omitempty,oneof=none http socks5"`

	MaxConcurrent   int     `json:"max_concurrent" validate:"min=0"`
	MaxRetries      int     `json:"max_retries" validate:"min=0"`
	RetryBase       Millis  `json:"retry_base_ms" validate:"min=0"`
	RetryMultiplier float64 `json:"retry_multiplier" validate:"min=0"`
	MaxDelay        Millis  `json:"max_delay_ms" validate:"min=0"`
	Jitter          bool    `json:"jitter"`

	WindowDuration Millis `json:"window_ms" validate:"min=0"`
	MaxPerWindow   int    `json:"max_per_window" validate:"min=0"`

	RequestTimeout    Millis `json:"request_timeout_ms" validate:"min=0"`
	HardCancelTimeout Millis `json:"hard_cancel_timeout_ms" validate:"min=0"`
	CheckDelay        Millis `json:"check_delay_ms" validate:"min=0"`
}

// WithDefaults returns a copy with zero fields replaced by working defaults
// the concurrency and timeout defaults match the original checker's CLI defaults
func (c SessionConfig) WithDefaults() SessionConfig {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 10
	}
	if c.RetryBase <= 0 {
		c.RetryBase = Millis(500 * time.Millisecond)
	}
	if c.RetryMultiplier < 1 {
		c.RetryMultiplier = 2
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = Millis(30 * time.Second)
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = Millis(10 * time.Second)
	}
	if c.HardCancelTimeout <= 0 {
		c.HardCancelTimeout = Millis(5 * time.Second)
	}
	if c.CheckDelay <= 0 {
		c.CheckDelay = Millis(50 * time.Millisecond)
	}
	return c
}

// Session is the metadata persisted when a session starts
type Session struct {
	ID         string
	ConfigName string
	ComboFile  string
	StartedAt  time.Time
}

// Attempt is one verification attempt, emitted as telemetry
type Attempt struct {
	SessionID string
	Line      int
	Attempt   int
	Status    int
	Outcome   Outcome
	Latency   time.Duration
	Proxy     string
	At        time.Time
}
