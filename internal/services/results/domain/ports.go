package domain

import "context"

// QueryPort reads persisted sessions and outcomes
type QueryPort interface {
	ListSessions(ctx context.Context, limit int) ([]SessionRow, error)
	GetSession(ctx context.Context, id string) (SessionRow, error)
	ListOutcomes(ctx context.Context, sessionID string, outcomes []string, limit int) ([]OutcomeRow, error)
}

// ExportPort writes a session's hits, free accounts and full log to text files
type ExportPort interface {
	Export(ctx context.Context, sessionID string) (ExportFiles, error)
}
