/*
scheduler.go - Periodic global analytics refresher

PURPOSE:
  The admin dashboard reads global counters on every page view. Counting
  every habit and ledger per request does not scale, so a background
  goroutine recomputes them on an interval and handlers serve the snapshot.

DESIGN:
  - Runs a background goroutine with configurable refresh interval
  - Refreshes immediately on start
  - A failed refresh keeps the previous snapshot and is logged
  - With an upstream AnalyticsSource the counters are passed through as-is

CONFIGURATION:
  - Interval: How often to refresh (default: 5 minutes)
  - Enabled: Whether the goroutine runs; when false every Snapshot call
    computes fresh counters

USAGE:
  refresher := NewAnalyticsRefresher(store, logger)
  refresher.Start()
  // ... later
  refresher.Stop()

SEE ALSO:
  - handlers.go: GetAnalytics endpoint
  - habit/rollup.go: AnalyticsFrom
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/habituo/habit-engine/habit"
)

// AnalyticsSnapshot is a set of counters and when they were computed.
type AnalyticsSnapshot struct {
	habit.GlobalAnalytics
	RefreshedAt time.Time
}

// AnalyticsRefresher keeps a recent AnalyticsSnapshot.
type AnalyticsRefresher struct {
	Source   any // habit.AnalyticsSource or habit.HabitStore (+ habit.UserStore)
	Interval time.Duration
	Timeout  time.Duration
	Enabled  bool

	logger *zap.Logger

	snapMu   sync.RWMutex
	snapshot AnalyticsSnapshot
	ok       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewAnalyticsRefresher(source any, logger *zap.Logger) *AnalyticsRefresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsRefresher{
		Source:   source,
		Interval: 5 * time.Minute,
		Timeout:  30 * time.Second,
		Enabled:  true,
		logger:   logger.Named("analytics"),
	}
}

// Start begins the refresher.
func (ar *AnalyticsRefresher) Start() {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	if !ar.Enabled {
		ar.logger.Info("refresher disabled, counters computed per request")
		return
	}
	if ar.ticker != nil {
		return
	}

	ar.ticker = time.NewTicker(ar.Interval)
	ar.stop = make(chan struct{})
	ar.wg.Add(1)

	go ar.run(ar.ticker, ar.stop)

	ar.logger.Info("refresher started", zap.Duration("interval", ar.Interval))
}

// Stop stops the refresher and waits for an in-progress refresh.
func (ar *AnalyticsRefresher) Stop() {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	if ar.ticker != nil {
		ar.ticker.Stop()
		close(ar.stop)
		ar.wg.Wait()
		ar.ticker = nil
		ar.logger.Info("refresher stopped")
	}
}

func (ar *AnalyticsRefresher) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer ar.wg.Done()

	// Refresh immediately on start
	ar.RunNow(context.Background())

	for {
		select {
		case <-ticker.C:
			ar.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow recomputes the snapshot.
func (ar *AnalyticsRefresher) RunNow(ctx context.Context) (AnalyticsSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, ar.Timeout)
	defer cancel()

	start := time.Now()
	a, err := habit.AnalyticsFrom(ctx, ar.Source)
	if err != nil {
		ar.logger.Warn("analytics refresh failed", zap.Error(err))
		return AnalyticsSnapshot{}, err
	}
	snap := AnalyticsSnapshot{GlobalAnalytics: a, RefreshedAt: time.Now().UTC()}

	ar.snapMu.Lock()
	ar.snapshot, ar.ok = snap, true
	ar.snapMu.Unlock()

	ar.logger.Debug("analytics refreshed",
		zap.Int("users", a.TotalUsers),
		zap.Int("completions", a.TotalCompletions),
		zap.Duration("took", time.Since(start)))
	return snap, nil
}

// Snapshot returns the latest counters, computing them when none exist yet
// or the refresher is disabled.
func (ar *AnalyticsRefresher) Snapshot(ctx context.Context) (AnalyticsSnapshot, error) {
	if ar.Enabled {
		ar.snapMu.RLock()
		snap, ok := ar.snapshot, ar.ok
		ar.snapMu.RUnlock()
		if ok {
			return snap, nil
		}
	}
	return ar.RunNow(ctx)
}

// Invalidate drops the snapshot so the next read recomputes it.
func (ar *AnalyticsRefresher) Invalidate() {
	ar.snapMu.Lock()
	ar.ok = false
	ar.snapMu.Unlock()
}
