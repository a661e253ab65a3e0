// Package repo writes attempt telemetry to ClickHouse
package repo

import (
	"context"

	perr "cyberchecker/internal/platform/errors"
	"cyberchecker/internal/platform/store"
	chkdomain "cyberchecker/internal/services/checker/domain"
)

// Schema is the DDL for the attempts table, applied out of band
const Schema = `
CREATE TABLE IF NOT EXISTS check_attempts (
	session_id  UUID,
	line        Int32,
	attempt     UInt8,
	status      Int32,
	outcome     LowCardinality(String),
	latency_ms  Int64,
	proxy       String,
	at          DateTime64(3, 'UTC')
) ENGINE = MergeTree
ORDER BY (session_id, line, attempt)
`

// Storage defines the telemetry repository
type Storage interface {
	WriteBatch(ctx context.Context, xs []chkdomain.Attempt) error
}

type ch struct{ db store.Clickhouse }

// NewCH constructs a ClickHouse-backed telemetry repo
func NewCH(db store.Clickhouse) Storage { return &ch{db: db} }

var attemptCols = []string{
	"session_id", "line", "attempt", "status", "outcome", "latency_ms", "proxy", "at",
}

// WriteBatch implements Storage with one columnar insert per batch
func (c *ch) WriteBatch(ctx context.Context, xs []chkdomain.Attempt) error {
	if len(xs) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(xs))
	for _, a := range xs {
		rows = append(rows, []any{
			a.SessionID,
			int32(a.Line),
			uint8(a.Attempt),
			int32(a.Status),
			string(a.Outcome),
			a.Latency.Milliseconds(),
			a.Proxy,
			a.At,
		})
	}
	if err := c.db.Insert(ctx, "check_attempts", attemptCols, rows); err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "write attempt batch")
	}
	return nil
}
