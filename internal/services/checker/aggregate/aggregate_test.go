package aggregate

import (
	"sync"
	"testing"
	"time"

	perr "cyberchecker/internal/platform/errors"
	"cyberchecker/internal/platform/testkit"
	"cyberchecker/internal/services/checker/domain"
)

func result(line int, o domain.Outcome) domain.Result {
	return domain.Result{
		Candidate: domain.Candidate{Line: line, Username: "u", Password: "p"},
		Outcome:   o,
		Attempts:  1,
	}
}

func TestRecordTalliesByOutcome(t *testing.T) {
	t.Parallel()

	s := New()
	s.MarkDispatched()
	s.MarkDispatched()
	s.MarkDispatched()
	s.MarkDispatched()
	s.MarkDispatched()
	s.MarkDispatched()

	outcomes := []domain.Outcome{
		domain.OutcomeValid,
		domain.OutcomeInvalid,
		domain.OutcomeFree,
		domain.OutcomeRateLimited,
		domain.OutcomeTransientError,
		domain.OutcomeFatalError,
	}
	for i, o := range outcomes {
		if err := s.Record(result(i+1, o)); err != nil {
			t.Fatalf("record line %d: %v", i+1, err)
		}
	}

	snap := s.Snapshot()
	if snap.Checked != 6 || snap.Pending != 0 {
		t.Fatalf("checked=%d pending=%d", snap.Checked, snap.Pending)
	}
	if snap.Valid != 1 || snap.Invalid != 1 || snap.Free != 1 || snap.RateLimited != 1 || snap.Errored != 2 {
		t.Fatalf("counters = %+v", snap)
	}
	if sum := snap.Valid + snap.Invalid + snap.Free + snap.RateLimited + snap.Errored; sum != snap.Checked {
		t.Fatalf("counter sum %d != checked %d", sum, snap.Checked)
	}
}

func TestRecordRejectsDuplicateLine(t *testing.T) {
	t.Parallel()

	s := New()
	s.MarkDispatched()
	if err := s.Record(result(7, domain.OutcomeValid)); err != nil {
		t.Fatalf("first record: %v", err)
	}
	err := s.Record(result(7, domain.OutcomeInvalid))
	if !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("duplicate record err = %v, want conflict", err)
	}
	if snap := s.Snapshot(); snap.Checked != 1 || snap.Valid != 1 || snap.Invalid != 0 {
		t.Fatalf("duplicate must not change counters: %+v", snap)
	}
}

func TestHitsFeedCarriesValidAndFree(t *testing.T) {
	t.Parallel()

	s := New()
	for i := 1; i <= 4; i++ {
		s.MarkDispatched()
	}
	_ = s.Record(result(1, domain.OutcomeValid))
	_ = s.Record(result(2, domain.OutcomeInvalid))
	_ = s.Record(result(3, domain.OutcomeFree))
	_ = s.Record(result(4, domain.OutcomeTransientError))

	var got []int
	for len(s.Hits()) > 0 {
		r := <-s.Hits()
		got = append(got, r.Candidate.Line)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("hit lines = %v, want [1 3]", got)
	}
}

func TestRecordNeverBlocksOnFullHitBuffer(t *testing.T) {
	t.Parallel()

	s := New()
	for i := 1; i <= hitBuffer+10; i++ {
		s.MarkDispatched()
		if err := s.Record(result(i, domain.OutcomeValid)); err != nil {
			t.Fatalf("record line %d: %v", i, err)
		}
	}
	if snap := s.Snapshot(); snap.Valid != hitBuffer+10 {
		t.Fatalf("valid = %d, counters must not drop with the feed", snap.Valid)
	}
}

func TestTickCPMSmoothing(t *testing.T) {
	t.Parallel()

	s := New()
	for i := 1; i <= 10; i++ {
		s.MarkDispatched()
		_ = s.Record(result(i, domain.OutcomeInvalid))
	}
	s.TickCPM()
	// first tick: 0*0.6 + 600*0.4 = 240
	if got := s.Snapshot().CPM; got != 240 {
		t.Fatalf("cpm after first tick = %d, want 240", got)
	}
	s.TickCPM()
	// second tick with no checks: 240*0.6 = 144
	if got := s.Snapshot().CPM; got != 144 {
		t.Fatalf("cpm after idle tick = %d, want 144", got)
	}
}

func TestSnapshotElapsed(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	testkit.Serial(t)
	testkit.Swap(t, &now, func() time.Time { return base })

	s := New()
	testkit.Swap(t, &now, func() time.Time { return base.Add(1500 * time.Millisecond) })
	if got := s.Snapshot().Elapsed.Duration(); got != 1500*time.Millisecond {
		t.Fatalf("elapsed = %v", got)
	}
}

func TestConcurrentRecords(t *testing.T) {
	t.Parallel()

	s := New()
	const n = 200
	for i := 0; i < n; i++ {
		s.MarkDispatched()
	}

	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(line int) {
			defer wg.Done()
			_ = s.Record(result(line, domain.OutcomeInvalid))
		}(i)
	}
	wg.Wait()

	if snap := s.Snapshot(); snap.Checked != n || snap.Invalid != n || snap.Pending != 0 {
		t.Fatalf("snapshot after concurrent records: %+v", snap)
	}
}
