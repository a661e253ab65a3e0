package retry

import (
	"testing"
	"time"

	"cyberchecker/internal/platform/testkit"
	"cyberchecker/internal/services/checker/domain"
)

func TestTerminalVerdictFinishesImmediately(t *testing.T) {
	t.Parallel()

	for _, o := range []domain.Outcome{
		domain.OutcomeValid,
		domain.OutcomeInvalid,
		domain.OutcomeFree,
		domain.OutcomeFatalError,
	} {
		m := New(Config{MaxRetries: 5})
		if got := m.Begin(); got != 1 {
			t.Fatalf("Begin() = %d, want 1", got)
		}
		if st := m.Observe(o); st != StateDone {
			t.Fatalf("Observe(%s) = %s, want done", o, st)
		}
	}
}

func TestTransientRetriesUntilBudget(t *testing.T) {
	t.Parallel()

	m := New(Config{MaxRetries: 2})

	for want := 1; want <= 2; want++ {
		if got := m.Begin(); got != want {
			t.Fatalf("Begin() = %d, want %d", got, want)
		}
		if st := m.Observe(domain.OutcomeTransientError); st != StateRetrying {
			t.Fatalf("attempt %d: state %s, want retrying", want, st)
		}
	}

	if got := m.Begin(); got != 3 {
		t.Fatalf("Begin() = %d, want 3", got)
	}
	if st := m.Observe(domain.OutcomeTransientError); st != StateExhausted {
		t.Fatalf("final attempt: state %s, want exhausted", st)
	}
	if m.Attempt() != 3 {
		t.Fatalf("Attempt() = %d, want MaxRetries+1", m.Attempt())
	}
}

func TestRateLimitedRetries(t *testing.T) {
	t.Parallel()

	m := New(Config{MaxRetries: 1})
	m.Begin()
	if st := m.Observe(domain.OutcomeRateLimited); st != StateRetrying {
		t.Fatalf("state %s, want retrying", st)
	}
	m.Begin()
	if st := m.Observe(domain.OutcomeRateLimited); st != StateExhausted {
		t.Fatalf("state %s, want exhausted", st)
	}
	if m.Last() != domain.OutcomeRateLimited {
		t.Fatalf("Last() = %s", m.Last())
	}
}

func TestDelayGrowsAndCaps(t *testing.T) {
	t.Parallel()

	m := New(Config{
		MaxRetries: 10,
		Base:       100 * time.Millisecond,
		Multiplier: 2,
		MaxDelay:   time.Second,
	})

	var prev time.Duration
	for i := 0; i < 8; i++ {
		m.Begin()
		m.Observe(domain.OutcomeTransientError)
		d := m.Delay()
		if d < prev {
			t.Fatalf("delay decreased: %v after %v", d, prev)
		}
		if d > time.Second {
			t.Fatalf("delay %v exceeds cap", d)
		}
		prev = d
	}
	if prev != time.Second {
		t.Fatalf("final delay = %v, want capped at 1s", prev)
	}
}

func TestDelayJitterStaysInHalfOpenRange(t *testing.T) {
	testkit.Serial(t)
	testkit.Swap(t, &randInt63n, func(n int64) int64 { return n - 1 })

	m := New(Config{
		MaxRetries: 1,
		Base:       100 * time.Millisecond,
		Multiplier: 2,
		MaxDelay:   time.Second,
		Jitter:     true,
	})
	m.Begin()
	m.Observe(domain.OutcomeTransientError)
	if d := m.Delay(); d < 50*time.Millisecond || d >= 100*time.Millisecond {
		t.Fatalf("jittered delay %v outside [d/2, d)", d)
	}
}

func TestBeginFromTerminalStatePanics(t *testing.T) {
	t.Parallel()

	m := New(Config{})
	m.Begin()
	m.Observe(domain.OutcomeValid)
	testkit.MustPanic(t, func() { m.Begin() })
}
