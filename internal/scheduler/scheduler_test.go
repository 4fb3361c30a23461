package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuel-tracker/internal/ingest"
	"github.com/andygrunwald/fuel-tracker/internal/models"
)

type fakeSyncer struct {
	mu      sync.Mutex
	last    *models.SyncRun
	lastErr error
	syncs   int
}

func (f *fakeSyncer) Sync(ctx context.Context) (ingest.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncs++
	return ingest.Summary{}, nil
}

func (f *fakeSyncer) LastSync(ctx context.Context) (models.SyncRun, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastErr != nil {
		return models.SyncRun{}, false, f.lastErr
	}
	if f.last == nil {
		return models.SyncRun{}, false, nil
	}
	return *f.last, true, nil
}

func (f *fakeSyncer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.syncs
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCalculateNextSyncTime(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		name     string
		now      time.Time
		hour     int
		expected time.Time
	}{
		{"later today", time.Date(2025, 3, 1, 6, 0, 0, 0, loc), 10, time.Date(2025, 3, 1, 10, 0, 0, 0, loc)},
		{"already passed", time.Date(2025, 3, 1, 11, 0, 0, 0, loc), 10, time.Date(2025, 3, 2, 10, 0, 0, 0, loc)},
		{"exactly at hour", time.Date(2025, 3, 1, 10, 0, 0, 0, loc), 10, time.Date(2025, 3, 2, 10, 0, 0, 0, loc)},
		{"month end", time.Date(2025, 1, 31, 23, 0, 0, 0, loc), 0, time.Date(2025, 2, 1, 0, 0, 0, 0, loc)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&fakeSyncer{}, tt.hour, 0, zerolog.Nop())
			s.now = fixedNow(tt.now)
			if got := s.calculateNextSyncTime(); !got.Equal(tt.expected) {
				t.Errorf("calculateNextSyncTime() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestRunIfNeeded(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		last      *models.SyncRun
		lastErr   error
		wantSyncs int
	}{
		{"never synced", nil, nil, 1},
		{"recent sync", &models.SyncRun{FinishedAt: now.Add(-2 * time.Hour)}, nil, 0},
		{"stale sync", &models.SyncRun{FinishedAt: now.Add(-25 * time.Hour)}, nil, 1},
		{"lookup failure", nil, errors.New("db down"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			syncer := &fakeSyncer{last: tt.last, lastErr: tt.lastErr}
			s := New(syncer, 10, 24*time.Hour, zerolog.Nop())
			s.now = fixedNow(now)

			s.runIfNeeded(context.Background())

			if got := syncer.count(); got != tt.wantSyncs {
				t.Errorf("expected %d syncs, got %d", tt.wantSyncs, got)
			}
		})
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	syncer := &fakeSyncer{last: &models.SyncRun{FinishedAt: time.Now()}}
	s := New(syncer, 3, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	deadline := time.After(2 * time.Second)
	for !s.IsRunning() || s.NextSyncAt().IsZero() {
		select {
		case <-deadline:
			t.Fatal("scheduler did not start")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	if s.IsRunning() {
		t.Error("expected scheduler to report not running")
	}
	if syncer.count() != 0 {
		t.Errorf("expected no initial sync after a recent one, got %d", syncer.count())
	}
}
