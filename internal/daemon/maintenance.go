package daemon

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spool/internal/logging"
	"spool/internal/metrics"
	"spool/internal/staging"
)

const (
	queueDepthInterval = 15 * time.Second
	sweepInterval      = time.Hour
)

// maintenanceLoop runs the periodic housekeeping tasks: queue depth metrics,
// stale staging cleanup, and log retention.
func (d *Daemon) maintenanceLoop(ctx context.Context) {
	depthTicker := time.NewTicker(queueDepthInterval)
	defer depthTicker.Stop()
	sweepTicker := time.NewTicker(sweepInterval)
	defer sweepTicker.Stop()

	d.updateQueueDepth(ctx)
	d.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-depthTicker.C:
			d.updateQueueDepth(ctx)
		case <-sweepTicker.C:
			d.sweep(ctx)
		}
	}
}

func (d *Daemon) updateQueueDepth(ctx context.Context) {
	stats, err := d.store.Stats(ctx)
	if err != nil {
		d.logger.Debug("queue stats unavailable", logging.Error(err))
		return
	}
	for status, count := range stats {
		metrics.QueueDepth.WithLabelValues(string(status)).Set(float64(count))
	}
}

func (d *Daemon) sweep(ctx context.Context) {
	if hours := d.cfg.Workflow.StagingCleanupHours; hours > 0 {
		maxAge := time.Duration(hours) * time.Hour
		result := staging.CleanStale(ctx, d.cfg.Paths.StagingDir, maxAge, d.logger)
		if len(result.Removed) > 0 {
			d.logger.Info("staging sweep complete",
				logging.Int("removed", len(result.Removed)),
				logging.Int("errors", len(result.Errors)))
		}
	}
	d.pruneLogs()
}

// pruneLogs removes rotated log files older than the configured retention.
// The active daemon log is never touched.
func (d *Daemon) pruneLogs() {
	days := d.cfg.Logging.RetentionDays
	if days <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	entries, err := os.ReadDir(d.cfg.Paths.LogDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}
		path := filepath.Join(d.cfg.Paths.LogDir, entry.Name())
		if path == d.logPath {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			d.logger.Debug("log prune failed",
				logging.String("path", path),
				logging.Error(err))
		}
	}
}
