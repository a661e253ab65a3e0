package combo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	perr "cyberchecker/internal/platform/errors"
	"cyberchecker/internal/services/checker/domain"
)

func writeCombo(t *testing.T, lines string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "combo.txt")
	if err := os.WriteFile(p, []byte(lines), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func drain(t *testing.T, s *Source) []domain.Candidate {
	t.Helper()
	var out []domain.Candidate
	for {
		c, ok, err := s.Next(context.Background())
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			return out
		}
		out = append(out, c)
	}
}

func TestNextParsesAndNumbersLines(t *testing.T) {
	t.Parallel()

	p := writeCombo(t, "alice:pw1\nbob:hun:ter2\n")
	s, err := Open(p, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Close() }()

	got := drain(t, s)
	if len(got) != 2 {
		t.Fatalf("candidates = %d, want 2", len(got))
	}
	if got[0].Line != 1 || got[0].Username != "alice" || got[0].Password != "pw1" {
		t.Fatalf("first candidate = %+v", got[0])
	}
	// only the first colon splits
	if got[1].Username != "bob" || got[1].Password != "hun:ter2" {
		t.Fatalf("second candidate = %+v", got[1])
	}
}

func TestNextSkipsMalformedLines(t *testing.T) {
	t.Parallel()

	p := writeCombo(t, "nocolonhere\nalice:pw\n\n  \ncarol:pw2\n")
	s, err := Open(p, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Close() }()

	got := drain(t, s)
	if len(got) != 2 {
		t.Fatalf("candidates = %d, want 2", len(got))
	}
	if s.Skipped() != 3 {
		t.Fatalf("Skipped() = %d, want 3", s.Skipped())
	}
	// line numbers keep counting through skipped lines
	if got[0].Line != 2 || got[1].Line != 5 {
		t.Fatalf("lines = %d, %d, want 2, 5", got[0].Line, got[1].Line)
	}
}

func TestNextNormalizesInvisibleRunes(t *testing.T) {
	t.Parallel()

	p := writeCombo(t, "\ufeffalice:pw\u200b\n")
	s, err := Open(p, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Close() }()

	got := drain(t, s)
	if len(got) != 1 {
		t.Fatalf("candidates = %d, want 1", len(got))
	}
	if got[0].Username != "alice" || got[0].Password != "pw" {
		t.Fatalf("candidate = %+v", got[0])
	}
}

func TestOpenWithOffsetResumes(t *testing.T) {
	t.Parallel()

	p := writeCombo(t, "a:1\nb:2\nc:3\n")
	s, err := Open(p, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Close() }()

	got := drain(t, s)
	if len(got) != 1 {
		t.Fatalf("candidates = %d, want 1", len(got))
	}
	if got[0].Line != 3 || got[0].Username != "c" {
		t.Fatalf("candidate = %+v", got[0])
	}
	if s.Skipped() != 0 {
		t.Fatalf("offset lines must not count as skipped, got %d", s.Skipped())
	}
}

func TestOpenMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Open(filepath.Join(t.TempDir(), "nope.txt"), 0)
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestNextHonorsContext(t *testing.T) {
	t.Parallel()

	p := writeCombo(t, "a:1\n")
	s, err := Open(p, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := s.Next(ctx); err == nil {
		t.Fatal("expected context error")
	}
}

func TestCountLines(t *testing.T) {
	t.Parallel()

	p := writeCombo(t, "a:1\nbogus\nc:3\n")
	n, err := CountLines(p)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("CountLines = %d, want 3", n)
	}
}
