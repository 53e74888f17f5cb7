package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"spool/internal/logging"
	"spool/internal/notifications"
	"spool/internal/queue"
	"spool/internal/status"
)

func (m *Manager) publishEvent(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Debug("notification failed", logging.Args(
			logging.String("event", string(event)),
			logging.Error(err),
		)...)
	}
}

func (m *Manager) notifyEpisodeCompleted(ctx context.Context, item *queue.Item) {
	m.publishEvent(ctx, notifications.EventEpisodeCompleted, episodePayload(item, ""))
}

func (m *Manager) notifyEpisodeFailed(ctx context.Context, item *queue.Item, reason string) {
	m.publishEvent(ctx, notifications.EventEpisodeFailed, episodePayload(item, reason))
}

func (m *Manager) notifyReview(ctx context.Context, item *queue.Item, reason string) {
	// User stops are an outcome the user asked for, not one worth a push.
	if queue.IsUserStopReason(reason) {
		return
	}
	m.publishEvent(ctx, notifications.EventReviewRouted, episodePayload(item, reason))
}

func episodePayload(item *queue.Item, reason string) notifications.Payload {
	payload := notifications.Payload{
		"series":  item.Series,
		"season":  item.Season,
		"episode": item.Episode,
		"title":   item.Title,
	}
	if reason != "" {
		payload["reason"] = reason
	}
	return payload
}

// checkBatchCompletion refreshes coordinator progress for the item's batch
// and, once every episode has settled, publishes the completion event and
// releases the coordinator for the next batch.
func (m *Manager) checkBatchCompletion(ctx context.Context, item *queue.Item) {
	if item == nil || item.BatchID == "" {
		return
	}
	items, err := m.store.ItemsByBatch(ctx, item.BatchID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			m.logger.Warn("batch lookup failed during completion check", logging.Args(
				logging.String(logging.FieldBatchID, item.BatchID),
				logging.Error(err),
			)...)
		}
		return
	}
	if len(items) == 0 {
		return
	}

	var succeeded, failed int
	var earliest time.Time
	for _, sib := range items {
		if earliest.IsZero() || sib.CreatedAt.Before(earliest) {
			earliest = sib.CreatedAt
		}
		switch sib.Status {
		case queue.StatusCompleted:
			succeeded++
		case queue.StatusFailed, queue.StatusReview:
			failed++
		}
	}
	terminal := succeeded + failed

	m.updateBatchProgress(item, terminal, len(items))

	if terminal < len(items) {
		return
	}

	m.mu.Lock()
	if m.completedBatch == item.BatchID {
		m.mu.Unlock()
		return
	}
	m.completedBatch = item.BatchID
	m.mu.Unlock()

	duration := time.Duration(0)
	if !earliest.IsZero() {
		duration = time.Since(earliest)
	}
	m.logger.Info("batch complete", logging.Args(
		logging.String(logging.FieldBatchID, item.BatchID),
		logging.Int("succeeded", succeeded),
		logging.Int("failed", failed),
		logging.Duration("duration", duration),
	)...)
	m.publishEvent(ctx, notifications.EventBatchCompleted, notifications.Payload{
		"episodes":  len(items),
		"succeeded": succeeded,
		"failed":    failed,
		"duration":  duration,
	})
	if m.coord != nil {
		if snap := m.coord.Snapshot(); snap.Active && snap.BatchID == item.BatchID {
			m.coord.Finish()
		}
	}
}

func (m *Manager) updateBatchProgress(item *queue.Item, terminal, total int) {
	if m.coord == nil || total == 0 {
		return
	}
	snap := m.coord.Snapshot()
	if !snap.Active || snap.BatchID != item.BatchID {
		return
	}
	fields := []status.Field{
		status.Episode(terminal),
		status.Total(total),
		status.Percent(float64(terminal) / float64(total) * 100),
		status.Message(fmt.Sprintf("%d/%d episodes done", terminal, total)),
	}
	if title := strings.TrimSpace(item.Title); title != "" {
		fields = append(fields, status.Title(item.EpisodeCode()+" "+title))
	}
	m.coord.Update(fields...)
}
