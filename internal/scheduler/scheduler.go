package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/stockpulse/stockpulse/internal/domain/models"
	"github.com/stockpulse/stockpulse/internal/etl"
	"github.com/stockpulse/stockpulse/internal/logger"
)

// Runner is the part of the ETL pipeline the scheduler drives.
type Runner interface {
	Run(ctx context.Context, symbols []string) (models.RunResult, error)
}

// Scheduler triggers one pipeline run per day at a fixed UTC time.
type Scheduler struct {
	cron    *gocron.Scheduler
	runner  Runner
	symbols []string
}

// NewScheduler creates a scheduler that runs the pipeline for the given
// symbols daily at the "HH:MM" time in at (interpreted in UTC).
func NewScheduler(runner Runner, symbols []string, at string) (*Scheduler, error) {
	s := &Scheduler{
		cron:    gocron.NewScheduler(time.UTC),
		runner:  runner,
		symbols: symbols,
	}

	// SingletonMode keeps a slow run from stacking a second invocation; the
	// pipeline rejects overlap as well, but this avoids the noise entirely.
	_, err := s.cron.Every(1).Day().At(at).SingletonMode().Do(s.runOnce)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Start launches the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.StartAsync()
	logger.L().Info().
		Strs("symbols", s.symbols).
		Msg("scheduler started")
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	logger.L().Info().Msg("scheduler stopped")
}

func (s *Scheduler) runOnce() {
	res, err := s.runner.Run(context.Background(), s.symbols)
	if err != nil {
		if errors.Is(err, etl.ErrRunInProgress) {
			logger.L().Warn().Msg("scheduled run skipped, previous run still in progress")
			return
		}
		logger.L().Error().Err(err).Msg("scheduled run failed")
		return
	}

	logger.L().Info().
		Str("run_id", res.RunID).
		Int("succeeded", res.Succeeded()).
		Int("failed", res.Failed()).
		Msg("scheduled run finished")
}
