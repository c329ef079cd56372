package notifier

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler drives periodic alert checks. The interval can be adjusted at
// runtime (config reload) and a check can be kicked immediately (connectivity
// regained).
type Scheduler struct {
	notifier *Notifier
	logger   *slog.Logger

	mu       sync.Mutex
	interval time.Duration

	kick chan struct{}
}

// NewScheduler creates a Scheduler checking every interval.
func NewScheduler(n *Notifier, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		notifier: n,
		logger:   logger,
		interval: interval,
		kick:     make(chan struct{}, 1),
	}
}

// Interval returns the current check interval.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// SetInterval changes the check interval; it takes effect after the current
// wait.
func (s *Scheduler) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.interval = d
	s.mu.Unlock()
	s.logger.Info("alert check interval updated", slog.Duration("interval", d))
}

// Kick requests an immediate check. Never blocks; a pending kick coalesces.
func (s *Scheduler) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Run checks all alert-enabled saved searches on the configured interval
// until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("alert scheduler started", slog.Duration("interval", s.Interval()))

	timer := time.NewTimer(s.Interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("alert scheduler stopped")
			return nil
		case <-timer.C:
		case <-s.kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		s.RunOnce(ctx)
		timer.Reset(s.Interval())
	}
}

// RunOnce performs a single check pass.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.notifier.CheckAll(ctx)
}
