package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"spool/internal/logging"
	"spool/internal/queue"
)

// HeartbeatMonitor manages item heartbeats and stale item reclamation.
type HeartbeatMonitor struct {
	store             *queue.Store
	logger            *slog.Logger
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
}

// NewHeartbeatMonitor creates a new monitor.
func NewHeartbeatMonitor(store *queue.Store, logger *slog.Logger, interval, timeout time.Duration) *HeartbeatMonitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &HeartbeatMonitor{
		store:             store,
		logger:            logging.NewComponentLogger(logger, "workflow-heartbeat"),
		heartbeatInterval: interval,
		heartbeatTimeout:  timeout,
	}
}

// ReclaimStale resets items in the given processing statuses whose heartbeat
// stopped long enough ago to assume their worker died.
func (h *HeartbeatMonitor) ReclaimStale(ctx context.Context, statuses ...queue.Status) {
	if h.heartbeatTimeout <= 0 || len(statuses) == 0 {
		return
	}
	cutoff := time.Now().UTC().Add(-h.heartbeatTimeout)
	reclaimed, err := h.store.ReclaimStaleProcessing(ctx, cutoff, statuses...)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			h.logger.Warn("reclaim stale processing failed, stuck items may remain", logging.Args(logging.Error(err))...)
		}
		return
	}
	if reclaimed > 0 {
		h.logger.Info("reclaimed stale items", logging.Args(logging.Int64("count", reclaimed))...)
	}
}

// StartLoop runs a heartbeat updater for a specific item until context cancellation.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, wg *sync.WaitGroup, itemID int64) {
	defer wg.Done()
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, h.logger)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.UpdateHeartbeat(ctx, itemID); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				logger.Warn("heartbeat update failed", logging.Args(logging.Error(err))...)
			}
		}
	}
}
