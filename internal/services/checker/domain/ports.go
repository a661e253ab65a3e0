package domain

import "context"

// CheckerPort is the control surface of the checking scheduler
// all methods are safe to call from any goroutine
type CheckerPort interface {
	// Start validates cfg synchronously and launches the session
	// a second Start while a session is running returns a Conflict error
	Start(ctx context.Context, cfg SessionConfig) (string, error)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	// Stop cancels the session and waits up to the session's
	// HardCancelTimeout for in-flight attempts to finish
	Stop(ctx context.Context) error
	Snapshot(ctx context.Context) Snapshot
}

// Source yields candidates in input order
type Source interface {
	// Next returns the next well-formed candidate
	// ok=false with nil error means the source is exhausted
	Next(ctx context.Context) (c Candidate, ok bool, err error)
	// Skipped counts malformed lines seen so far
	Skipped() int
	Close() error
}

// Verifier runs one full verification attempt for a candidate
type Verifier interface {
	Verify(ctx context.Context, c Candidate) Verdict
}

// SinkPort receives session lifecycle events and terminal outcomes
type SinkPort interface {
	SessionStarted(ctx context.Context, s Session) error
	Record(ctx context.Context, sessionID string, r Result) error
	SessionFinished(ctx context.Context, sessionID string, snap Snapshot) error
}

// AttemptObserver receives per-attempt telemetry
// implementations must not block the calling worker
type AttemptObserver interface {
	ObserveAttempt(ctx context.Context, a Attempt)
}
