package storage

import (
	"context"
	"log/slog"
	"time"
)

// RetentionService periodically purges stored uploads older than the
// configured retention period. It is only started when retention is enabled;
// the default deployment retains uploads indefinitely.
type RetentionService struct {
	store     Store
	retention time.Duration
	interval  time.Duration
	done      chan struct{}
}

// NewRetentionService creates a new retention sweeper.
func NewRetentionService(store Store, retention, interval time.Duration) *RetentionService {
	return &RetentionService{
		store:     store,
		retention: retention,
		interval:  interval,
		done:      make(chan struct{}),
	}
}

// Start begins the purge loop in a background goroutine.
func (rs *RetentionService) Start(ctx context.Context) {
	slog.Info("upload retention sweeper started",
		"retention", rs.retention,
		"interval", rs.interval,
	)

	go func() {
		ticker := time.NewTicker(rs.interval)
		defer ticker.Stop()

		// Run once immediately on start
		rs.runPurge()

		for {
			select {
			case <-ticker.C:
				rs.runPurge()
			case <-ctx.Done():
				slog.Info("upload retention sweeper stopping")
				close(rs.done)
				return
			}
		}
	}()
}

// Wait blocks until the sweeper has fully stopped.
func (rs *RetentionService) Wait() {
	<-rs.done
}

func (rs *RetentionService) runPurge() {
	purged, err := rs.store.PurgeOlderThan(rs.retention)
	if err != nil {
		slog.Error("upload purge failed", "error", err)
		return
	}
	if purged > 0 {
		slog.Info("purged old uploads", "count", purged, "older_than", rs.retention)
	}
}
