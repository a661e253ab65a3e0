package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	perr "cyberchecker/internal/platform/errors"
	chkdomain "cyberchecker/internal/services/checker/domain"
	"cyberchecker/internal/services/results/domain"
)

// exportLimit bounds one export pass; sessions are capped well below this
const exportLimit = 1_000_000

// Export implements domain.ExportPort: it writes hits, free accounts and a
// full outcome log to timestamped text files under the configured directory
func (s *Service) Export(ctx context.Context, sessionID string) (domain.ExportFiles, error) {
	if _, err := s.db.GetSession(ctx, sessionID); err != nil {
		return domain.ExportFiles{}, err
	}
	rows, err := s.db.ListOutcomes(ctx, sessionID, nil, exportLimit)
	if err != nil {
		return domain.ExportFiles{}, err
	}
	if err := os.MkdirAll(s.cfg.ExportDir, 0o755); err != nil {
		return domain.ExportFiles{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "create export dir %q", s.cfg.ExportDir)
	}

	ts := time.Now().Format("20060102_150405")
	files := domain.ExportFiles{
		Hits: filepath.Join(s.cfg.ExportDir, "hits_"+ts+".txt"),
		Free: filepath.Join(s.cfg.ExportDir, "free_"+ts+".txt"),
		Log:  filepath.Join(s.cfg.ExportDir, "log_"+ts+".txt"),
	}

	var hits, free, log strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&log, "%s -> %s (attempts=%d)", r.Combo, r.Outcome, r.Attempts)
		if r.Err != "" {
			log.WriteString(" err=" + r.Err)
		}
		log.WriteByte('\n')

		switch r.Outcome {
		case string(chkdomain.OutcomeValid):
			hits.WriteString(hitLine(r))
		case string(chkdomain.OutcomeFree):
			free.WriteString(r.Combo + "\n")
		}
	}

	for path, body := range map[string]string{
		files.Hits: hits.String(),
		files.Free: free.String(),
		files.Log:  log.String(),
	} {
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			return domain.ExportFiles{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "write export file %q", path)
		}
	}

	s.log.Info().
		Str("session_id", sessionID).
		Int("outcomes", len(rows)).
		Str("dir", s.cfg.ExportDir).
		Msg("session exported")
	return files, nil
}

// hitLine renders `combo | Key: value | ...` with captured keys sorted
func hitLine(r domain.OutcomeRow) string {
	if len(r.Captured) == 0 {
		return r.Combo + "\n"
	}
	keys := make([]string, 0, len(r.Captured))
	for k := range r.Captured {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(r.Combo)
	for _, k := range keys {
		sb.WriteString(" | " + k + ": " + r.Captured[k])
	}
	sb.WriteByte('\n')
	return sb.String()
}
