// Package repo provides the results repository implementation
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cyberchecker/internal/modkit/repokit"
	perr "cyberchecker/internal/platform/errors"
	"cyberchecker/internal/services/results/domain"

	"github.com/jackc/pgx/v5"
)

// Schema is the DDL the results tables need
// applied out of band; the integration tests apply it verbatim
const Schema = `
CREATE TABLE IF NOT EXISTS check_sessions (
	id           UUID PRIMARY KEY,
	config_name  TEXT NOT NULL,
	combo_file   TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	total        INT  NOT NULL DEFAULT 0,
	checked      INT  NOT NULL DEFAULT 0,
	valid        INT  NOT NULL DEFAULT 0,
	invalid      INT  NOT NULL DEFAULT 0,
	free         INT  NOT NULL DEFAULT 0,
	rate_limited INT  NOT NULL DEFAULT 0,
	errored      INT  NOT NULL DEFAULT 0,
	skipped      INT  NOT NULL DEFAULT 0,
	started_at   TIMESTAMPTZ NOT NULL,
	finished_at  TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS check_outcomes (
	session_id  UUID NOT NULL REFERENCES check_sessions(id) ON DELETE CASCADE,
	line        INT  NOT NULL,
	combo       TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	attempts    INT  NOT NULL,
	captured    JSONB,
	err         TEXT NOT NULL DEFAULT '',
	elapsed_ms  BIGINT NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (session_id, line)
);

CREATE INDEX IF NOT EXISTS check_outcomes_outcome_idx
	ON check_outcomes (session_id, outcome);
`

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Storage defines the results repository
type Storage interface {
	InsertSession(ctx context.Context, s domain.SessionRow) error
	FinishSession(ctx context.Context, s domain.SessionRow) error
	InsertOutcome(ctx context.Context, r domain.OutcomeRow) error
	ListSessions(ctx context.Context, limit int) ([]domain.SessionRow, error)
	GetSession(ctx context.Context, id string) (domain.SessionRow, error)
	ListOutcomes(ctx context.Context, sessionID string, outcomes []string, limit int) ([]domain.OutcomeRow, error)
}

// InsertSession implements Storage
func (s *pg) InsertSession(ctx context.Context, row domain.SessionRow) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO check_sessions (id, config_name, combo_file, status, total, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		row.ID, row.ConfigName, row.ComboFile, row.Status, row.Total, row.StartedAt,
	)
	return perr.FromPostgres(err, "insert session")
}

// FinishSession implements Storage; counters come from the final snapshot
func (s *pg) FinishSession(ctx context.Context, row domain.SessionRow) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE check_sessions SET
			status = $2, total = $3, checked = $4, valid = $5, invalid = $6,
			free = $7, rate_limited = $8, errored = $9, skipped = $10, finished_at = $11
		WHERE id = $1`,
		row.ID, row.Status, row.Total, row.Checked, row.Valid, row.Invalid,
		row.Free, row.RateLimit, row.Errored, row.Skipped, time.Now().UTC(),
	)
	if err != nil {
		return perr.FromPostgres(err, "finish session")
	}
	if tag.RowsAffected() == 0 {
		return perr.NotFoundf("session %q not found", row.ID)
	}
	return nil
}

// InsertOutcome implements Storage
// the conflict clause keeps outcome writes idempotent per (session, line)
func (s *pg) InsertOutcome(ctx context.Context, r domain.OutcomeRow) error {
	var captured []byte
	if len(r.Captured) > 0 {
		b, err := json.Marshal(r.Captured)
		if err != nil {
			return perr.Wrap(err, perr.ErrorCodeInvalidArgument, "encode captured values")
		}
		captured = b
	}
	_, err := s.q.Exec(ctx, `
		INSERT INTO check_outcomes (session_id, line, combo, outcome, attempts, captured, err, elapsed_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id, line) DO NOTHING`,
		r.SessionID, r.Line, r.Combo, r.Outcome, r.Attempts, captured, r.Err, r.ElapsedMS,
	)
	return perr.FromPostgres(err, "insert outcome")
}

const sessionCols = `id::text, config_name, combo_file, status, total, checked, valid, invalid,
	free, rate_limited, errored, skipped, started_at, finished_at`

func scanSession(row interface{ Scan(...any) error }) (domain.SessionRow, error) {
	var r domain.SessionRow
	err := row.Scan(
		&r.ID, &r.ConfigName, &r.ComboFile, &r.Status, &r.Total, &r.Checked, &r.Valid, &r.Invalid,
		&r.Free, &r.RateLimit, &r.Errored, &r.Skipped, &r.StartedAt, &r.FinishedAt,
	)
	return r, err
}

// ListSessions implements Storage, newest first
func (s *pg) ListSessions(ctx context.Context, limit int) ([]domain.SessionRow, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+sessionCols+`
		FROM check_sessions
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, perr.FromPostgres(err, "list sessions")
	}
	defer rows.Close()

	var out []domain.SessionRow
	for rows.Next() {
		r, err := scanSession(rows)
		if err != nil {
			return nil, perr.FromPostgres(err, "scan session")
		}
		out = append(out, r)
	}
	return out, perr.FromPostgres(rows.Err(), "list sessions")
}

// GetSession implements Storage
func (s *pg) GetSession(ctx context.Context, id string) (domain.SessionRow, error) {
	r, err := scanSession(s.q.QueryRow(ctx, `
		SELECT `+sessionCols+`
		FROM check_sessions
		WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SessionRow{}, perr.NotFoundf("session %q not found", id)
		}
		return domain.SessionRow{}, perr.FromPostgres(err, "get session")
	}
	return r, nil
}

// ListOutcomes implements Storage; an empty outcomes filter returns everything
func (s *pg) ListOutcomes(
	ctx context.Context,
	sessionID string,
	outcomes []string,
	limit int,
) ([]domain.OutcomeRow, error) {
	var sb strings.Builder
	args := []any{sessionID}
	sb.WriteString(`
		SELECT session_id::text, line, combo, outcome, attempts, captured, err, elapsed_ms, created_at
		FROM check_outcomes
		WHERE session_id = $1`)
	if len(outcomes) > 0 {
		ph := make([]string, len(outcomes))
		for i, o := range outcomes {
			args = append(args, o)
			ph[i] = fmt.Sprintf("$%d", len(args))
		}
		sb.WriteString(" AND outcome IN (" + strings.Join(ph, ",") + ")")
	}
	args = append(args, limit)
	fmt.Fprintf(&sb, " ORDER BY line LIMIT $%d", len(args))

	rows, err := s.q.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, perr.FromPostgres(err, "list outcomes")
	}
	defer rows.Close()

	var out []domain.OutcomeRow
	for rows.Next() {
		var r domain.OutcomeRow
		var captured []byte
		if err := rows.Scan(
			&r.SessionID, &r.Line, &r.Combo, &r.Outcome, &r.Attempts,
			&captured, &r.Err, &r.ElapsedMS, &r.CreatedAt,
		); err != nil {
			return nil, perr.FromPostgres(err, "scan outcome")
		}
		if len(captured) > 0 {
			if err := json.Unmarshal(captured, &r.Captured); err != nil {
				return nil, perr.Wrap(err, perr.ErrorCodeMalformedInput, "decode captured values")
			}
		}
		out = append(out, r)
	}
	return out, perr.FromPostgres(rows.Err(), "list outcomes")
}
