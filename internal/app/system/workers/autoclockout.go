// Package workers holds the background loops the server runs alongside
// the HTTP handler: the auto clock-out sweep and the news expiry
// cleanup.
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	timestore "github.com/canvashub/canvashub/internal/app/store/timetracking"
)

// AutoClockOut closes work sessions left open longer than the maximum
// shift length, so a forgotten clock-out does not accrue hours overnight.
type AutoClockOut struct {
	sessions *timestore.Store
	log      *zap.Logger
	interval time.Duration
	maxOpen  time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewAutoClockOut creates the sweep worker. interval is how often to
// sweep; maxOpen is the longest a session may stay open (a standard
// shift is eight hours).
func NewAutoClockOut(sessions *timestore.Store, logger *zap.Logger, interval, maxOpen time.Duration) *AutoClockOut {
	return &AutoClockOut{
		sessions: sessions,
		log:      logger,
		interval: interval,
		maxOpen:  maxOpen,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the sweep loop.
func (w *AutoClockOut) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("auto clock-out worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("max_open", w.maxOpen))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *AutoClockOut) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("auto clock-out worker stopped")
}

func (w *AutoClockOut) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *AutoClockOut) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := w.sessions.AutoClockOut(ctx, w.maxOpen, time.Now())
	if err != nil {
		w.log.Error("auto clock-out sweep failed", zap.Error(err))
		return
	}
	if count > 0 {
		w.log.Info("auto clocked out stale sessions", zap.Int64("count", count))
	}
}
