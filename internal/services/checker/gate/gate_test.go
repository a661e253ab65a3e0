package gate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAcquireNeverExceedsMaxConcurrent(t *testing.T) {
	t.Parallel()

	const limit = 4
	g := New(Config{MaxConcurrent: limit})

	var cur, peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := g.Acquire(context.Background())
			if err != nil {
				t.Error(err)
				return
			}
			n := cur.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			cur.Add(-1)
			release()
		}()
	}
	wg.Wait()

	if p := peak.Load(); p > limit {
		t.Fatalf("peak concurrency %d exceeds limit %d", p, limit)
	}
	if g.InFlight() != 0 {
		t.Fatalf("InFlight() = %d after all released", g.InFlight())
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	g := New(Config{MaxConcurrent: 1})
	release, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	release()
	release()

	if g.InFlight() != 0 {
		t.Fatalf("InFlight() = %d, want 0", g.InFlight())
	}
	// the slot must be usable again exactly once
	release2, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer release2()
	if g.InFlight() != 1 {
		t.Fatalf("InFlight() = %d, want 1", g.InFlight())
	}
}

func TestWindowBudgetThrottles(t *testing.T) {
	t.Parallel()

	// 2 admissions per 100ms; the burst covers the first two,
	// the third has to wait for the window to refill
	g := New(Config{MaxConcurrent: 10, MaxPerWindow: 2, Window: 100 * time.Millisecond})

	start := time.Now()
	for i := 0; i < 3; i++ {
		release, err := g.Acquire(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		release()
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("third admission took %v, expected a rate wait", elapsed)
	}
}

func TestPenalizeDelaysAdmission(t *testing.T) {
	t.Parallel()

	g := New(Config{MaxConcurrent: 1})
	g.Penalize(60 * time.Millisecond)

	start := time.Now()
	release, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer release()
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("admission after %v, want the penalty honored", elapsed)
	}
}

func TestAcquireHonorsContext(t *testing.T) {
	t.Parallel()

	g := New(Config{MaxConcurrent: 1})
	hold, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer hold()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.Acquire(ctx); err == nil {
		t.Fatal("expected context error while the slot is held")
	}
	if g.InFlight() != 1 {
		t.Fatalf("InFlight() = %d, want 1", g.InFlight())
	}
}
