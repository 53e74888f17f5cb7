package workflow

import (
	"context"
	"time"

	"spool/internal/logging"
	"spool/internal/queue"
)

// nextItemForLane scans the lane's start statuses in priority order and
// claims the first admissible item. Claiming is a compare-and-swap on the
// item status, so concurrent workers racing for the same row settle at the
// store and the losers move on to the next candidate.
func (m *Manager) nextItemForLane(ctx context.Context, lane *laneState) (*queue.Item, pipelineStage, error) {
	for _, startStatus := range lane.statusOrder {
		stg, ok := lane.stageForStatus(startStatus)
		if !ok {
			continue
		}
		items, err := m.store.ItemsByStatus(ctx, startStatus)
		if err != nil {
			return nil, pipelineStage{}, err
		}
		for _, item := range items {
			if m.batchCancelled(item) {
				m.stopForUser(ctx, item)
				continue
			}
			open, err := m.throttleOpen(ctx, item)
			if err != nil {
				return nil, pipelineStage{}, err
			}
			if !open {
				continue
			}
			claimed, err := m.store.ClaimForProcessing(ctx, item.ID, stg.startStatus, stg.processingStatus)
			if err != nil {
				return nil, pipelineStage{}, err
			}
			if !claimed {
				continue
			}
			fresh, err := m.store.GetByID(ctx, item.ID)
			if err != nil {
				return nil, pipelineStage{}, err
			}
			return fresh, stg, nil
		}
	}
	return nil, pipelineStage{}, nil
}

// throttleOpen reports whether the item's throttle group is admitted.
// Group zero is always open. A later group opens once every episode of the
// previous group reached a terminal status and the configured pause has
// elapsed since the last of them settled.
func (m *Manager) throttleOpen(ctx context.Context, item *queue.Item) (bool, error) {
	if item.ThrottleGroup <= 0 || item.BatchID == "" {
		return true, nil
	}
	siblings, err := m.store.ItemsByBatch(ctx, item.BatchID)
	if err != nil {
		return false, err
	}
	var newest time.Time
	for _, sib := range siblings {
		if sib.ThrottleGroup != item.ThrottleGroup-1 {
			continue
		}
		if !terminalStatus(sib.Status) {
			return false, nil
		}
		if sib.UpdatedAt.After(newest) {
			newest = sib.UpdatedAt
		}
	}
	if newest.IsZero() || m.throttlePause <= 0 {
		return true, nil
	}
	return time.Since(newest) >= m.throttlePause, nil
}

// batchCancelled reports whether the item belongs to the active batch and
// that batch has a pending cancellation request.
func (m *Manager) batchCancelled(item *queue.Item) bool {
	if m.coord == nil || item.BatchID == "" {
		return false
	}
	snap := m.coord.Snapshot()
	return snap.Active && snap.CancelRequested && snap.BatchID == item.BatchID
}

// stopForUser routes an unclaimed item of a cancelled batch to review so the
// batch can drain without processing it. No notification fires for user
// stops; the user asked for this outcome.
func (m *Manager) stopForUser(ctx context.Context, item *queue.Item) {
	item.SetReview(queue.UserStopReason)
	if err := m.store.Update(ctx, item); err != nil {
		m.logger.Warn("failed to persist user stop", logging.Args(
			logging.Int64(logging.FieldItemID, item.ID),
			logging.Error(err),
		)...)
		return
	}
	m.logger.Info("episode stopped by user", logging.Args(
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldEpisode, item.EpisodeCode()),
	)...)
	m.checkBatchCompletion(ctx, item)
}

func terminalStatus(status queue.Status) bool {
	switch status {
	case queue.StatusCompleted, queue.StatusFailed, queue.StatusReview:
		return true
	default:
		return false
	}
}
