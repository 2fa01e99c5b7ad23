package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/five82/matdeck/internal/state"
)

const (
	defaultPollInterval = 5 * time.Second
	maxBackoff          = 30 * time.Second
)

// Loader is the part of the store the poller drives.
type Loader interface {
	LoadAssets(ctx context.Context) error
	Snapshot() state.Snapshot
}

// StartPoller launches a background goroutine that reloads the cache. After
// failures the delay grows exponentially up to maxBackoff. It returns
// immediately; the goroutine exits when ctx is cancelled.
func StartPoller(ctx context.Context, store Loader, interval time.Duration, log *zap.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	go func() {
		timer := time.NewTimer(interval)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			if err := store.LoadAssets(ctx); err != nil && ctx.Err() == nil {
				log.Debug("poll failed", zap.Error(err))
			}
			failures := store.Snapshot().ConsecutiveFailures
			timer.Reset(calculateBackoff(failures, interval))
		}
	}()
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}
