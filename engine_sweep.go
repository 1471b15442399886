package forumguard

import (
	"context"
	"log/slog"
	"time"
)

/*
====================================
EXPIRED REFRESH SWEEP
====================================
*/

// SweepExpired bulk-deletes expired refresh records once. Lookups already
// treat expired records as absent, so the sweep only reclaims space.
func (e *Engine) SweepExpired(ctx context.Context) (int64, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	n, err := e.store.SweepExpired(ctx)
	if err != nil {
		return n, e.storeUnavailable(ctx, "sweep", err)
	}
	if n > 0 {
		e.metrics.Add(MetricSweepRemoved, uint64(n))
		e.logger.InfoContext(ctx, "expired refresh tokens swept", slog.Int64("removed", n))
	}
	return n, nil
}

// RunSweeper calls SweepExpired every Store.SweepInterval until ctx is
// done. A zero interval disables it. Sweep failures are logged and the
// loop continues.
func (e *Engine) RunSweeper(ctx context.Context) error {
	interval := e.config.Store.SweepInterval
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_, _ = e.SweepExpired(ctx)
		}
	}
}

// StartSweeper runs RunSweeper in the background until ctx is done or
// Close is called. Calling it twice is a no-op.
func (e *Engine) StartSweeper(ctx context.Context) {
	e.sweepMu.Lock()
	defer e.sweepMu.Unlock()
	if e.sweepCancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.sweepCancel = cancel
	e.sweepDone = done

	go func() {
		defer close(done)
		_ = e.RunSweeper(ctx)
	}()
}

func (e *Engine) stopSweeper() {
	e.sweepMu.Lock()
	cancel, done := e.sweepCancel, e.sweepDone
	e.sweepCancel, e.sweepDone = nil, nil
	e.sweepMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
