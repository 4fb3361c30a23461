// Package scheduler triggers price synchronization once a day.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuel-tracker/internal/ingest"
	"github.com/andygrunwald/fuel-tracker/internal/models"
)

// DefaultInterval is the maximum age of the last sync before the scheduler
// syncs on start.
const DefaultInterval = 24 * time.Hour

// Syncer runs ingestion cycles.
type Syncer interface {
	Sync(ctx context.Context) (ingest.Summary, error)
	LastSync(ctx context.Context) (models.SyncRun, bool, error)
}

// Scheduler manages the daily sync schedule.
type Scheduler struct {
	syncer   Syncer
	syncHour int
	interval time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	mu         sync.RWMutex
	nextSyncAt time.Time
	lastSyncAt *time.Time
	running    bool
}

// New creates a new Scheduler that syncs daily at syncHour (0-23, local
// time). A sync also runs on start when the last one is older than interval;
// zero means DefaultInterval.
func New(syncer Syncer, syncHour int, interval time.Duration, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		syncer:   syncer,
		syncHour: syncHour,
		interval: interval,
		logger:   logger.With().Str("component", "scheduler").Logger(),
		now:      time.Now,
	}
}

// Start starts the scheduler and blocks until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info().
		Int("syncHour", s.syncHour).
		Dur("interval", s.interval).
		Msg("starting scheduler")

	s.runIfNeeded(ctx)

	nextSync := s.scheduleNext()
	timer := time.NewTimer(nextSync.Sub(s.now()))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-timer.C:
			s.runSync(ctx)
			nextSync = s.scheduleNext()
			timer.Reset(nextSync.Sub(s.now()))
		}
	}
}

func (s *Scheduler) scheduleNext() time.Time {
	next := s.calculateNextSyncTime()
	s.mu.Lock()
	s.nextSyncAt = next
	s.mu.Unlock()

	s.logger.Info().
		Time("nextSync", next).
		Dur("duration", next.Sub(s.now())).
		Msg("next sync scheduled")
	return next
}

// calculateNextSyncTime returns the next occurrence of the sync hour.
func (s *Scheduler) calculateNextSyncTime() time.Time {
	now := s.now()

	next := time.Date(now.Year(), now.Month(), now.Day(), s.syncHour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, s.syncHour, 0, 0, 0, now.Location())
	}
	return next
}

// runIfNeeded syncs when no sync was recorded within the interval.
func (s *Scheduler) runIfNeeded(ctx context.Context) {
	last, ok, err := s.syncer.LastSync(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read last sync, running initial sync")
		s.runSync(ctx)
		return
	}

	if ok {
		age := s.now().Sub(last.FinishedAt)
		if age < s.interval {
			s.logger.Info().
				Time("lastSync", last.FinishedAt).
				Dur("age", age).
				Msg("recent sync found, skipping initial sync")
			return
		}
	}

	s.logger.Info().Msg("no recent sync, running initial sync")
	s.runSync(ctx)
}

func (s *Scheduler) runSync(ctx context.Context) {
	s.logger.Info().Msg("running scheduled sync")

	now := s.now()
	s.mu.Lock()
	s.lastSyncAt = &now
	s.mu.Unlock()

	summary, err := s.syncer.Sync(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduled sync failed")
		return
	}
	s.logger.Info().
		Int("inserted", summary.Inserted).
		Int("failed", len(summary.Failed)).
		Msg("scheduled sync completed")
}

// NextSyncAt returns the time of the next scheduled sync.
func (s *Scheduler) NextSyncAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextSyncAt
}

// LastSyncAt returns the time the scheduler last triggered a sync.
func (s *Scheduler) LastSyncAt() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSyncAt
}

// IsRunning returns whether the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
