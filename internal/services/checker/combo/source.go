// Package combo reads candidate credentials from combo files
package combo

import (
	"bufio"
	"context"
	"os"
	"strings"

	perr "cyberchecker/internal/platform/errors"
	str "cyberchecker/internal/platform/strings"
	"cyberchecker/internal/services/checker/domain"
)

// Source reads `user:pass` lines from a combo file
// it satisfies domain.Source; not safe for concurrent Next calls
type Source struct {
	f       *os.File
	sc      *bufio.Scanner
	line    int
	skipped int
}

// Open opens path and positions the reader after the first offset lines
// offset lines are consumed without being counted as skipped
func Open(path string, offset int) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, perr.Wrapf(err, perr.ErrorCodeNotFound, "combo file %q not found", path)
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "open combo file %q", path)
	}
	s := &Source{f: f, sc: bufio.NewScanner(f)}
	s.sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for i := 0; i < offset; i++ {
		if !s.sc.Scan() {
			break
		}
		s.line++
	}
	return s, nil
}

// Next returns the next well-formed candidate
// lines without a `:` separator are counted via Skipped and never returned
func (s *Source) Next(ctx context.Context) (domain.Candidate, bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.Candidate{}, false, err
		}
		if !s.sc.Scan() {
			if err := s.sc.Err(); err != nil {
				return domain.Candidate{}, false, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "read combo file")
			}
			return domain.Candidate{}, false, nil
		}
		s.line++

		raw := str.Normalize(s.sc.Text())
		user, pass, ok := strings.Cut(raw, ":")
		if raw == "" || !ok {
			s.skipped++
			continue
		}
		return domain.Candidate{
			Line:     s.line,
			Username: user,
			Password: pass,
			Raw:      raw,
		}, true, nil
	}
}

// Skipped counts malformed lines seen so far
func (s *Source) Skipped() int { return s.skipped }

// Line is the number of input lines consumed so far
func (s *Source) Line() int { return s.line }

// Close releases the underlying file
func (s *Source) Close() error { return s.f.Close() }

// CountLines counts the lines in a combo file, used for progress totals
func CountLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, perr.Wrapf(err, perr.ErrorCodeNotFound, "combo file %q not found", path)
		}
		return 0, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "open combo file %q", path)
	}
	defer func() { _ = f.Close() }()

	n := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		n++
	}
	if err := sc.Err(); err != nil {
		return 0, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "count combo lines")
	}
	return n, nil
}
