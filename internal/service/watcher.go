package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"giveawaybot/internal/logger"
)

// DefaultWatchInterval is how often the watcher checks the end time when none is configured
const DefaultWatchInterval = 20 * time.Second

// DeadlineWatcher finalizes the giveaway once its end time passes
type DeadlineWatcher struct {
	ctx      context.Context
	cancel   context.CancelFunc
	interval time.Duration
	service  *GiveawayService
	onFinish func(*FinalizeResult)
	done     chan struct{}
	stopOnce sync.Once
}

// NewDeadlineWatcher creates a watcher for the service's giveaway
func NewDeadlineWatcher(svc *GiveawayService, interval time.Duration) *DeadlineWatcher {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &DeadlineWatcher{
		ctx:      ctx,
		cancel:   cancel,
		interval: interval,
		service:  svc,
		done:     make(chan struct{}),
	}
}

// SetReporter registers a callback invoked after each deadline finalization
func (w *DeadlineWatcher) SetReporter(fn func(*FinalizeResult)) {
	w.onFinish = fn
}

// Start runs one check right away and then keeps checking on a ticker until Stop
func (w *DeadlineWatcher) Start() {
	logger.Debug(0, "deadline_watcher_started", fmt.Sprintf("interval=%v code=%s", w.interval, w.service.Code()))

	go func() {
		defer close(w.done)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.check()
		for {
			select {
			case <-ticker.C:
				w.check()
			case <-w.ctx.Done():
				logger.Debug(0, "deadline_watcher_stopped", "")
				return
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight check to return, including a
// results fan-out it started
func (w *DeadlineWatcher) Stop() {
	w.stopOnce.Do(func() {
		w.cancel()
		<-w.done
	})
}

func (w *DeadlineWatcher) check() {
	result, err := w.service.FinalizeIfDue(w.ctx)
	if err != nil {
		logger.Error(0, "deadline_watcher_check_failed", err)
	}
	if result == nil {
		return
	}

	logger.Debug(0, "deadline_watcher_finalized", fmt.Sprintf("code=%s winners=%d", result.Giveaway.Code, len(result.Winners)))
	if w.onFinish != nil {
		w.onFinish(result)
	}
}
