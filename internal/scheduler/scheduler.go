package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/sky-diorama/internal/logger"
)

const jobTimeout = 30 * time.Second

// Refresher refetches weather for known cities whose snapshot went stale.
type Refresher interface {
	RefreshStale(ctx context.Context) int
}

// Scheduler periodically refreshes stale weather so views rarely wait on the upstream.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	log       *logger.Logger
}

// New creates a new Scheduler.
func New(interval time.Duration, refresher Refresher, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		refresher: refresher,
		interval:  interval,
		log:       log.With("component", "scheduler"),
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// A non-positive interval disables background refresh.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.log.Info("background refresh disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.log.Info("background refresh scheduled", "interval", s.interval.String())
	return nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n := s.refresher.RefreshStale(ctx)
	s.log.Debug("weather refresh job completed", "refreshed", n)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
