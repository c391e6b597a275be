package debounce

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// FlushFunc persists one coalesced payload.
type FlushFunc func(ctx context.Context, key string, payload any) error

// Writer coalesces rapid successive writes to the same key (a write per
// keystroke from the UI) into one persistence call after a quiet period.
// Readers tolerate values stale by at most one interval.
type Writer struct {
	interval time.Duration
	flush    FlushFunc
	log      *logrus.Logger

	mu      sync.Mutex
	pending map[string]entry
}

type entry struct {
	payload any
	touched time.Time
}

func New(interval time.Duration, flush FlushFunc, log *logrus.Logger) *Writer {
	if interval <= 0 {
		interval = time.Second
	}
	return &Writer{
		interval: interval,
		flush:    flush,
		log:      log,
		pending:  make(map[string]entry),
	}
}

// Submit records or replaces the pending payload for key and restarts its
// quiet period. Last write wins.
func (w *Writer) Submit(key string, payload any) {
	w.mu.Lock()
	w.pending[key] = entry{payload: payload, touched: time.Now()}
	w.mu.Unlock()
}

// Run drives the flush loop until ctx is done, then drains whatever is still
// pending. Flush failures are logged, never surfaced.
func (w *Writer) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.flushQuiet(context.Background(), time.Time{})
			return
		case now := <-ticker.C:
			w.flushQuiet(ctx, now.Add(-w.interval))
		}
	}
}

// flushQuiet flushes entries untouched since cutoff. A zero cutoff flushes
// everything.
func (w *Writer) flushQuiet(ctx context.Context, cutoff time.Time) {
	w.mu.Lock()
	due := make(map[string]any)
	for key, e := range w.pending {
		if cutoff.IsZero() || e.touched.Before(cutoff) {
			due[key] = e.payload
			delete(w.pending, key)
		}
	}
	w.mu.Unlock()

	for key, payload := range due {
		if err := w.flush(ctx, key, payload); err != nil {
			w.log.WithField("key", key).Warnf("debounced flush failed: %v", err)
		}
	}
}
