// Package domain defines the persisted shapes of finished check work
package domain

import "time"

// Session statuses
const (
	StatusRunning  = "running"
	StatusFinished = "finished"
)

// SessionRow is one checking session as stored in Postgres
type SessionRow struct {
	ID         string     `json:"id"`
	ConfigName string     `json:"config_name"`
	ComboFile  string     `json:"combo_file"`
	Status     string     `json:"status"`
	Total      int        `json:"total"`
	Checked    int        `json:"checked"`
	Valid      int        `json:"valid"`
	Invalid    int        `json:"invalid"`
	Free       int        `json:"free"`
	RateLimit  int        `json:"rate_limited"`
	Errored    int        `json:"errored"`
	Skipped    int        `json:"skipped"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// OutcomeRow is one terminal candidate result as stored in Postgres
type OutcomeRow struct {
	SessionID string            `json:"session_id"`
	Line      int               `json:"line"`
	Combo     string            `json:"combo"`
	Outcome   string            `json:"outcome"`
	Attempts  int               `json:"attempts"`
	Captured  map[string]string `json:"captured,omitempty"`
	Err       string            `json:"err,omitempty"`
	ElapsedMS int64             `json:"elapsed_ms"`
	CreatedAt time.Time         `json:"created_at"`
}

// ExportFiles are the paths written by an export
type ExportFiles struct {
	Hits string `json:"hits"`
	Free string `json:"free"`
	Log  string `json:"log"`
}
