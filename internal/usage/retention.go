package usage

import (
	"context"
	"sync"
	"time"

	"github.com/goodtune/wordbuddy/internal/clock"
	"github.com/goodtune/wordbuddy/internal/storage"
	"github.com/rs/zerolog"
)

// RetentionScheduler prunes old round results once a day, just after local
// midnight. Usage counters need no pruning: they reset lazily.
type RetentionScheduler struct {
	results   storage.ResultStore
	retention time.Duration
	clock     clock.Clock
	logger    zerolog.Logger

	mu      sync.Mutex
	timer   clock.Timer
	stopped bool
}

// NewRetentionScheduler creates a scheduler keeping retentionDays of results.
func NewRetentionScheduler(results storage.ResultStore, retentionDays int, clk clock.Clock, logger zerolog.Logger) *RetentionScheduler {
	return &RetentionScheduler{
		results:   results,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		clock:     clk,
		logger:    logger.With().Str("component", "retention").Logger(),
	}
}

// Start runs one prune immediately and schedules the next.
func (rs *RetentionScheduler) Start() {
	rs.logger.Info().Dur("retention", rs.retention).Msg("Result retention scheduler started")
	rs.run()
}

// Stop cancels the pending prune.
func (rs *RetentionScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.stopped = true
	if rs.timer != nil {
		rs.timer.Stop()
	}
	rs.logger.Info().Msg("Result retention scheduler stopped")
}

func (rs *RetentionScheduler) run() {
	rs.prune()

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.stopped {
		return
	}

	next := rs.nextRun()
	rs.timer = rs.clock.AfterFunc(next.Sub(rs.clock.Now()), rs.run)
	rs.logger.Debug().Time("next_run", next).Msg("Scheduled next result prune")
}

// nextRun returns the next local midnight.
func (rs *RetentionScheduler) nextRun() time.Time {
	now := rs.clock.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return midnight.AddDate(0, 0, 1)
}

func (rs *RetentionScheduler) prune() {
	if rs.retention <= 0 {
		return
	}

	cutoff := rs.clock.Now().Add(-rs.retention)
	deleted, err := rs.results.DeleteResultsBefore(context.Background(), cutoff)
	if err != nil {
		rs.logger.Error().Err(err).Msg("Failed to prune round results")
		return
	}

	rs.logger.Info().
		Int("deleted", deleted).
		Time("cutoff", cutoff).
		Msg("Old round results pruned")
}
