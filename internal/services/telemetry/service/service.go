// Package service batches per-attempt telemetry into ClickHouse
package service

import (
	"context"
	"sync"
	"time"

	"cyberchecker/internal/platform/logger"
	chkdomain "cyberchecker/internal/services/checker/domain"
	"cyberchecker/internal/services/telemetry/repo"
)

// Config shapes the batching behavior
type Config struct {
	FlushInterval time.Duration
	BatchSize     int
	Buffer        int
}

func (c Config) withDefaults() Config {
	if c.FlushInterval <= 0 {
		c.FlushInterval = time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 200
	}
	if c.Buffer <= 0 {
		c.Buffer = 4096
	}
	return c
}

// Service implements chkdomain.AttemptObserver
// ObserveAttempt never blocks; attempts queue into a bounded buffer and a
// background loop flushes them by size or interval, dropping on overflow
type Service struct {
	log logger.Logger
	db  repo.Storage
	cfg Config

	in   chan chkdomain.Attempt
	stop chan struct{}
	wg   sync.WaitGroup

	mu      sync.Mutex
	dropped int64
}

// New constructs the batching observer and starts its flush loop
func New(db repo.Storage, cfg Config, log logger.Logger) *Service {
	s := &Service{
		log:  log.With().Str("component", "telemetry").Logger(),
		db:   db,
		cfg:  cfg.withDefaults(),
		in:   make(chan chkdomain.Attempt, cfg.withDefaults().Buffer),
		stop: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.loop()
	return s
}

// ObserveAttempt implements chkdomain.AttemptObserver
func (s *Service) ObserveAttempt(_ context.Context, a chkdomain.Attempt) {
	select {
	case s.in <- a:
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	}
}

// Dropped reports attempts lost to buffer overflow
func (s *Service) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close drains the buffer, flushes the remainder and stops the loop
func (s *Service) Close() error {
	close(s.stop)
	s.wg.Wait()
	return nil
}

func (s *Service) loop() {
	defer s.wg.Done()

	tick := time.NewTicker(s.cfg.FlushInterval)
	defer tick.Stop()

	batch := make([]chkdomain.Attempt, 0, s.cfg.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.db.WriteBatch(context.Background(), batch); err != nil {
			s.log.Warn().Err(err).Int("batch", len(batch)).Msg("attempt batch dropped")
		}
		batch = batch[:0]
	}

	for {
		select {
		case a := <-s.in:
			batch = append(batch, a)
			if len(batch) >= s.cfg.BatchSize {
				flush()
			}
		case <-tick.C:
			flush()
		case <-s.stop:
			for {
				select {
				case a := <-s.in:
					batch = append(batch, a)
					if len(batch) >= s.cfg.BatchSize {
						flush()
					}
					continue
				default:
				}
				break
			}
			flush()
			return
		}
	}
}
