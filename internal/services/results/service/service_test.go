package service

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"cyberchecker/internal/modkit/repokit"
	perr "cyberchecker/internal/platform/errors"
	"cyberchecker/internal/platform/logger"
	chkdomain "cyberchecker/internal/services/checker/domain"
	"cyberchecker/internal/services/results/domain"
	"cyberchecker/internal/services/results/repo"
)

// memStorage is an in-memory repo.Storage for service-level tests
type memStorage struct {
	sessions map[string]domain.SessionRow
	outcomes map[string][]domain.OutcomeRow
}

func newMemStorage() *memStorage {
	return &memStorage{
		sessions: map[string]domain.SessionRow{},
		outcomes: map[string][]domain.OutcomeRow{},
	}
}

func (m *memStorage) InsertSession(_ context.Context, s domain.SessionRow) error {
	m.sessions[s.ID] = s
	return nil
}

func (m *memStorage) FinishSession(_ context.Context, s domain.SessionRow) error {
	cur, ok := m.sessions[s.ID]
	if !ok {
		return perr.NotFoundf("session %q not found", s.ID)
	}
	s.ConfigName = cur.ConfigName
	s.ComboFile = cur.ComboFile
	s.StartedAt = cur.StartedAt
	now := time.Now()
	s.FinishedAt = &now
	m.sessions[s.ID] = s
	return nil
}

func (m *memStorage) InsertOutcome(_ context.Context, r domain.OutcomeRow) error {
	for _, prev := range m.outcomes[r.SessionID] {
		if prev.Line == r.Line {
			return nil
		}
	}
	m.outcomes[r.SessionID] = append(m.outcomes[r.SessionID], r)
	return nil
}

func (m *memStorage) ListSessions(_ context.Context, limit int) ([]domain.SessionRow, error) {
	var out []domain.SessionRow
	for _, s := range m.sessions {
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStorage) GetSession(_ context.Context, id string) (domain.SessionRow, error) {
	s, ok := m.sessions[id]
	if !ok {
		return domain.SessionRow{}, perr.NotFoundf("session %q not found", id)
	}
	return s, nil
}

func (m *memStorage) ListOutcomes(
	_ context.Context,
	sessionID string,
	outcomes []string,
	limit int,
) ([]domain.OutcomeRow, error) {
	var out []domain.OutcomeRow
	for _, r := range m.outcomes[sessionID] {
		if len(outcomes) > 0 {
			keep := false
			for _, o := range outcomes {
				if r.Outcome == o {
					keep = true
					break
				}
			}
			if !keep {
				continue
			}
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func memBinder(m *memStorage) repokit.Binder[repo.Storage] {
	return repokit.BindFunc[repo.Storage](func(repokit.Queryer) repo.Storage { return m })
}

type noopQueryer struct{}

func (noopQueryer) Exec(context.Context, string, ...any) (repokit.CommandTag, error) {
	return nil, nil
}
func (noopQueryer) Query(context.Context, string, ...any) (repokit.Rows, error) { return nil, nil }
func (noopQueryer) QueryRow(context.Context, string, ...any) repokit.Row        { return nil }
func (noopQueryer) Tx(_ context.Context, fn func(q repokit.Queryer) error) error {
	return fn(noopQueryer{})
}

func newTestService(t *testing.T, m *memStorage) *Service {
	t.Helper()
	return New(noopQueryer{}, memBinder(m), Config{ExportDir: t.TempDir()}, *logger.Get())
}

func seedSession(t *testing.T, s *Service) string {
	t.Helper()
	const id = "11111111-2222-3333-4444-555555555555"
	err := s.SessionStarted(context.Background(), chkdomain.Session{
		ID:         id,
		ConfigName: "acct",
		ComboFile:  "combos.txt",
		StartedAt:  time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestSinkRoundTrip(t *testing.T) {
	t.Parallel()

	mem := newMemStorage()
	s := newTestService(t, mem)
	id := seedSession(t, s)

	res := chkdomain.Result{
		Candidate: chkdomain.Candidate{Line: 3, Username: "alice", Password: "pw", Raw: "alice:pw"},
		Outcome:   chkdomain.OutcomeValid,
		Attempts:  2,
		Captured:  map[string]string{"Plan": "premium"},
		Elapsed:   1200 * time.Millisecond,
	}
	if err := s.Record(context.Background(), id, res); err != nil {
		t.Fatal(err)
	}
	if err := s.SessionFinished(context.Background(), id, chkdomain.Snapshot{Checked: 1, Valid: 1}); err != nil {
		t.Fatal(err)
	}

	row, err := s.GetSession(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if row.Status != domain.StatusFinished || row.Valid != 1 {
		t.Fatalf("session row = %+v", row)
	}

	rows, err := s.ListOutcomes(context.Background(), id, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Combo != "alice:pw" || rows[0].ElapsedMS != 1200 {
		t.Fatalf("outcomes = %+v", rows)
	}
}

func TestListOutcomesUnknownSession(t *testing.T) {
	t.Parallel()

	s := newTestService(t, newMemStorage())
	_, err := s.ListOutcomes(context.Background(), "nope", nil, 0)
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestExportWritesHitFreeAndLogFiles(t *testing.T) {
	t.Parallel()

	mem := newMemStorage()
	s := newTestService(t, mem)
	id := seedSession(t, s)

	records := []chkdomain.Result{
		{
			Candidate: chkdomain.Candidate{Line: 1, Raw: "alice:pw"},
			Outcome:   chkdomain.OutcomeValid,
			Attempts:  1,
			Captured:  map[string]string{"Plan": "premium", "Balance": "12.50"},
		},
		{Candidate: chkdomain.Candidate{Line: 2, Raw: "bob:pw"}, Outcome: chkdomain.OutcomeInvalid, Attempts: 1},
		{Candidate: chkdomain.Candidate{Line: 3, Raw: "carol:pw"}, Outcome: chkdomain.OutcomeFree, Attempts: 1},
		{
			Candidate: chkdomain.Candidate{Line: 4, Raw: "dave:pw"},
			Outcome:   chkdomain.OutcomeTransientError,
			Attempts:  3,
			Err:       "connect timed out",
		},
	}
	for _, r := range records {
		if err := s.Record(context.Background(), id, r); err != nil {
			t.Fatal(err)
		}
	}

	files, err := s.Export(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}

	hits := readFile(t, files.Hits)
	if hits != "alice:pw | Balance: 12.50 | Plan: premium\n" {
		t.Fatalf("hits file = %q", hits)
	}
	if free := readFile(t, files.Free); free != "carol:pw\n" {
		t.Fatalf("free file = %q", free)
	}
	log := readFile(t, files.Log)
	if !strings.Contains(log, "bob:pw -> invalid (attempts=1)") {
		t.Fatalf("log file missing invalid line: %q", log)
	}
	if !strings.Contains(log, "dave:pw -> transient_error (attempts=3) err=connect timed out") {
		t.Fatalf("log file missing error line: %q", log)
	}
}

func TestExportUnknownSession(t *testing.T) {
	t.Parallel()

	s := newTestService(t, newMemStorage())
	_, err := s.Export(context.Background(), "nope")
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}
