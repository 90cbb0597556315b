package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/mcolletta/direx/internal/logger"
)

// SweeperConfig contains configuration for the journal age sweep.
type SweeperConfig struct {
	// Enabled controls whether the background sweep is active (default: true)
	Enabled bool

	// Interval is how often to sweep (default: 1h)
	Interval time.Duration

	// RetentionAge is how long operations are kept before they and their
	// backups are reclaimed (default: 24h)
	RetentionAge time.Duration
}

// Sweeper periodically removes expired operations from a journal, along
// with the deletion backups they own.
//
// Thread Safety: Safe for concurrent use.
type Sweeper struct {
	journal *Journal
	config  SweeperConfig
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSweeper creates a sweeper for the given journal.
//
// The sweeper is initialized but not started. Call Start() to begin the
// background sweep.
func NewSweeper(j *Journal, config SweeperConfig) *Sweeper {
	if config.Interval == 0 {
		config.Interval = time.Hour
	}
	if config.RetentionAge == 0 {
		config.RetentionAge = 24 * time.Hour
	}

	return &Sweeper{
		journal: j,
		config:  config,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins the background sweep.
//
// Safe to call once; the worker runs until Stop() is called.
func (s *Sweeper) Start() {
	if !s.config.Enabled {
		logger.Info("Journal sweep disabled")
		return
	}

	logger.Info("Starting journal sweeper: interval=%s retention=%s",
		s.config.Interval, s.config.RetentionAge)

	go s.worker()
}

// Stop stops the sweeper and waits for the worker to finish.
//
// Returns an error if the context expires before shutdown completes.
func (s *Sweeper) Stop(ctx context.Context) error {
	if !s.config.Enabled {
		return nil
	}

	close(s.stopCh)

	select {
	case <-s.doneCh:
		logger.Info("Journal sweeper stopped")
		return nil
	case <-ctx.Done():
		logger.Warn("Journal sweeper shutdown timeout")
		return ctx.Err()
	}
}

// RunNow triggers an immediate sweep.
//
// Useful for tests and for initial cleanup on startup. Blocks until the
// sweep completes or the context is cancelled.
func (s *Sweeper) RunNow(ctx context.Context) (*SweepStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.sweep(ctx), nil
}

// worker is the background goroutine that runs periodic sweeps.
func (s *Sweeper) worker() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			stats := s.sweep(ctx)
			cancel()

			if stats.Removed > 0 || stats.Failed > 0 {
				logger.Info("Journal sweep completed: %s", stats.Summary())
			}

		case <-s.stopCh:
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) *SweepStats {
	stats := &SweepStats{StartTime: time.Now()}

	cutoff := time.Now().Add(-s.config.RetentionAge)
	stats.Scanned, stats.Removed, stats.Failed = s.journal.Expire(ctx, cutoff)

	stats.EndTime = time.Now()
	return stats
}

// SweepStats contains statistics from a single sweep run.
type SweepStats struct {
	StartTime time.Time // When the sweep started
	EndTime   time.Time // When the sweep ended
	Scanned   int       // Number of operations examined
	Removed   int       // Number of expired operations removed
	Failed    int       // Number of removals that failed
}

// Duration returns the total sweep duration.
func (s *SweepStats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the sweep.
func (s *SweepStats) Summary() string {
	return fmt.Sprintf("scanned=%d removed=%d failed=%d duration=%s",
		s.Scanned, s.Removed, s.Failed, s.Duration())
}
