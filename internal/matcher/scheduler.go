package matcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler drives the matching loop on a fixed wall-clock cadence,
// independent of the presentation layer.
type Scheduler struct {
	cron    *cron.Cron
	service *Service
	spec    string
	logger  *slog.Logger
}

// NewScheduler creates a scheduler that ticks every tick interval.
func NewScheduler(service *Service, tick string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		service: service,
		spec:    fmt.Sprintf("@every %s", tick),
		logger:  logger,
	}
}

// Start registers the tick job and starts the timer. The first tick fires
// after one interval; activation already schedules an immediate fetch on the
// next tick, so no startup cycle is needed.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.service.Tick(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule tick: %w", err)
	}
	s.cron.Start()
	s.logger.Info("matcher scheduler started", "spec", s.spec)
	return nil
}

// Stop halts future ticks. A tick already in flight runs to completion.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("matcher scheduler stopped")
}
