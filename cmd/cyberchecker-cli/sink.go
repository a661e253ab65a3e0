package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	perr "cyberchecker/internal/platform/errors"
	chkdomain "cyberchecker/internal/services/checker/domain"
)

// fileSink implements chkdomain.SinkPort against local text files
// hits and free accounts get their own files, everything lands in the log
type fileSink struct {
	dir string

	mu      sync.Mutex
	results []chkdomain.Result
	files   []string
}

func newFileSink(dir string) *fileSink {
	return &fileSink{dir: dir}
}

// SessionStarted implements chkdomain.SinkPort
func (s *fileSink) SessionStarted(context.Context, chkdomain.Session) error { return nil }

// Record implements chkdomain.SinkPort
func (s *fileSink) Record(_ context.Context, _ string, r chkdomain.Result) error {
	s.mu.Lock()
	s.results = append(s.results, r)
	s.mu.Unlock()
	return nil
}

// SessionFinished implements chkdomain.SinkPort by writing the export files
func (s *fileSink) SessionFinished(context.Context, string, chkdomain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "create export dir %q", s.dir)
	}
	sort.Slice(s.results, func(i, j int) bool {
		return s.results[i].Candidate.Line < s.results[j].Candidate.Line
	})

	ts := time.Now().Format("20060102_150405")
	var hits, free, log strings.Builder
	for _, r := range s.results {
		fmt.Fprintf(&log, "%s -> %s (attempts=%d)", r.Candidate.Raw, r.Outcome, r.Attempts)
		if r.Err != "" {
			log.WriteString(" err=" + r.Err)
		}
		log.WriteByte('\n')

		switch r.Outcome {
		case chkdomain.OutcomeValid:
			hits.WriteString(hitLine(r))
		case chkdomain.OutcomeFree:
			free.WriteString(r.Candidate.Raw + "\n")
		}
	}

	for name, body := range map[string]string{
		"hits_" + ts + ".txt": hits.String(),
		"free_" + ts + ".txt": free.String(),
		"log_" + ts + ".txt":  log.String(),
	} {
		path := filepath.Join(s.dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnavailable, "write export file %q", path)
		}
		s.files = append(s.files, path)
	}
	sort.Strings(s.files)
	return nil
}

// Files returns the export paths written so far
func (s *fileSink) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.files...)
}

// hitLine renders `combo | Key: value | ...` with captured keys sorted
func hitLine(r chkdomain.Result) string {
	if len(r.Captured) == 0 {
		return r.Candidate.Raw + "\n"
	}
	keys := make([]string, 0, len(r.Captured))
	for k := range r.Captured {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(r.Candidate.Raw)
	for _, k := range keys {
		sb.WriteString(" | " + k + ": " + r.Captured[k])
	}
	sb.WriteByte('\n')
	return sb.String()
}
