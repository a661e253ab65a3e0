// Package service persists session outcomes and serves result queries
package service

import (
	"context"

	"cyberchecker/internal/modkit/repokit"
	"cyberchecker/internal/platform/logger"
	chkdomain "cyberchecker/internal/services/checker/domain"
	"cyberchecker/internal/services/results/domain"
	"cyberchecker/internal/services/results/repo"
)

// Config for the results service
type Config struct {
	ExportDir string
	HardLimit int
}

// Service implements the checker sink plus domain.QueryPort and domain.ExportPort
type Service struct {
	log logger.Logger
	db  repo.Storage
	cfg Config
}

// New constructs a results service bound to a Postgres TxRunner
func New(tx repokit.TxRunner, binder repokit.Binder[repo.Storage], cfg Config, log logger.Logger) *Service {
	if cfg.ExportDir == "" {
		cfg.ExportDir = "results"
	}
	if cfg.HardLimit <= 0 {
		cfg.HardLimit = 1000
	}
	return &Service{
		log: log.With().Str("component", "results").Logger(),
		db:  repokit.MustBind(binder, tx),
		cfg: cfg,
	}
}

// SessionStarted implements chkdomain.SinkPort
func (s *Service) SessionStarted(ctx context.Context, sess chkdomain.Session) error {
	return s.db.InsertSession(ctx, domain.SessionRow{
		ID:         sess.ID,
		ConfigName: sess.ConfigName,
		ComboFile:  sess.ComboFile,
		Status:     domain.StatusRunning,
		StartedAt:  sess.StartedAt,
	})
}

// Record implements chkdomain.SinkPort
func (s *Service) Record(ctx context.Context, sessionID string, r chkdomain.Result) error {
	return s.db.InsertOutcome(ctx, domain.OutcomeRow{
		SessionID: sessionID,
		Line:      r.Candidate.Line,
		Combo:     r.Candidate.Raw,
		Outcome:   string(r.Outcome),
		Attempts:  r.Attempts,
		Captured:  r.Captured,
		Err:       r.Err,
		ElapsedMS: r.Elapsed.Milliseconds(),
	})
}

// SessionFinished implements chkdomain.SinkPort
func (s *Service) SessionFinished(ctx context.Context, sessionID string, snap chkdomain.Snapshot) error {
	return s.db.FinishSession(ctx, domain.SessionRow{
		ID:        sessionID,
		Status:    domain.StatusFinished,
		Total:     snap.Total,
		Checked:   snap.Checked,
		Valid:     snap.Valid,
		Invalid:   snap.Invalid,
		Free:      snap.Free,
		RateLimit: snap.RateLimited,
		Errored:   snap.Errored,
		Skipped:   snap.Skipped,
	})
}

// ListSessions implements domain.QueryPort
func (s *Service) ListSessions(ctx context.Context, limit int) ([]domain.SessionRow, error) {
	return s.db.ListSessions(ctx, s.clamp(limit))
}

// GetSession implements domain.QueryPort
func (s *Service) GetSession(ctx context.Context, id string) (domain.SessionRow, error) {
	return s.db.GetSession(ctx, id)
}

// ListOutcomes implements domain.QueryPort
func (s *Service) ListOutcomes(
	ctx context.Context,
	sessionID string,
	outcomes []string,
	limit int,
) ([]domain.OutcomeRow, error) {
	if _, err := s.db.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.db.ListOutcomes(ctx, sessionID, outcomes, s.clamp(limit))
}

func (s *Service) clamp(limit int) int {
	if limit <= 0 || limit > s.cfg.HardLimit {
		return s.cfg.HardLimit
	}
	return limit
}
