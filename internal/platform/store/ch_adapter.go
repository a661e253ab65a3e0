package store

import (
	"context"

	"cyberchecker/internal/platform/store/ch"
)

// chAdapter bridges ch.CH onto the Clickhouse seam
type chAdapter struct {
	c *ch.CH
}

func (a *chAdapter) Ping(ctx context.Context) error { return a.c.Ping(ctx) }

func (a *chAdapter) Insert(ctx context.Context, table string, cols []string, rows [][]any) error {
	return a.c.Insert(ctx, table, cols, rows)
}

func (a *chAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rs, err := a.c.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return chRowsAdapter{r: rs}, nil
}

func (a *chAdapter) Close() error { return a.c.Close() }

// chRowsAdapter drops the error from ch.Rows Close to match the store seam
type chRowsAdapter struct{ r ch.Rows }

func (x chRowsAdapter) Next() bool            { return x.r.Next() }
func (x chRowsAdapter) Scan(dst ...any) error { return x.r.Scan(dst...) }
func (x chRowsAdapter) Err() error            { return x.r.Err() }
func (x chRowsAdapter) Close()                { _ = x.r.Close() }
func (x chRowsAdapter) Columns() []string     { return x.r.Columns() }
