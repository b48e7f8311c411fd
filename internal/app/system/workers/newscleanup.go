package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	newsstore "github.com/canvashub/canvashub/internal/app/store/news"
)

// NewsCleanup deletes expired news posts and their read receipts. Posts
// carry a hard expiry of at most 72 hours, so the sweep keeps the feed
// collection small.
type NewsCleanup struct {
	news     *newsstore.Store
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewNewsCleanup(news *newsstore.Store, logger *zap.Logger, interval time.Duration) *NewsCleanup {
	return &NewsCleanup{
		news:     news,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the cleanup loop.
func (w *NewsCleanup) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("news cleanup worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *NewsCleanup) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("news cleanup worker stopped")
}

func (w *NewsCleanup) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.cleanup()
		}
	}
}

func (w *NewsCleanup) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := w.news.DeleteExpired(ctx, time.Now())
	if err != nil {
		w.log.Error("news cleanup failed", zap.Error(err))
		return
	}
	if count > 0 {
		w.log.Info("deleted expired news posts", zap.Int64("count", count))
	}
}
