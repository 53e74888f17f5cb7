package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"spool/internal/logging"
	"spool/internal/metrics"
	"spool/internal/queue"
	"spool/internal/stage"
)

// processItem drives one claimed item through its stage: persist the
// processing fields, run Prepare and Execute under a heartbeat, then advance
// the item to the stage's done status or route the failure.
func (m *Manager) processItem(ctx context.Context, lane *laneState, stg pipelineStage, item *queue.Item) error {
	stageCtx := withStageContext(ctx, lane, stg.name, item, uuid.NewString())
	logger := logging.WithContext(stageCtx, m.logger)
	m.setLastItem(item)

	m.setItemProcessingState(item, stg)
	if err := m.store.Update(stageCtx, item); err != nil {
		wrapped := fmt.Errorf("persist processing transition: %w", err)
		logger.Error("failed to persist processing transition", logging.Args(logging.Error(wrapped))...)
		m.setLastError(wrapped)
		return wrapped
	}

	stageStart := time.Now()
	logger.Info("stage started", logging.Args(
		logging.String("processing_status", string(stg.processingStatus)),
		logging.String("source_url", strings.TrimSpace(item.SourceURL)),
	)...)

	if err := stg.handler.Prepare(stageCtx, item); err != nil {
		return m.handleStageFailure(stageCtx, stg, item, err, logger)
	}
	if err := m.store.Update(stageCtx, item); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		logger.Error("failed to persist stage preparation", logging.Args(logging.Error(wrapped))...)
		m.setLastError(wrapped)
		return wrapped
	}

	execErr := m.executeWithHeartbeat(stageCtx, stg.handler, item)
	if execErr != nil {
		if ctx.Err() != nil || errors.Is(execErr, context.Canceled) {
			m.rollbackInterrupted(stageCtx, stg, item)
			return context.Canceled
		}
		return m.handleStageFailure(stageCtx, stg, item, execErr, logger)
	}

	persistCtx := context.WithoutCancel(stageCtx)

	if item.NeedsReview {
		// The handler already routed the episode; keep its reason.
		if item.Status != queue.StatusReview {
			item.SetReview(item.ReviewReason)
		}
		if err := m.store.Update(persistCtx, item); err != nil {
			wrapped := fmt.Errorf("persist review routing: %w", err)
			logger.Error("failed to persist review routing", logging.Args(logging.Error(wrapped))...)
			m.setLastError(wrapped)
			return wrapped
		}
		logger.Info("stage routed item to review", logging.Args(
			logging.String("reason", item.ReviewReason),
			logging.Duration("stage_duration", time.Since(stageStart)),
		)...)
		m.setLastItem(item)
		m.notifyReview(persistCtx, item, item.ReviewReason)
		m.checkBatchCompletion(persistCtx, item)
		return nil
	}

	item.Status = stg.doneStatus
	item.LastHeartbeat = nil
	if item.Status == queue.StatusCompleted {
		item.ProgressStage = deriveStageLabel(queue.StatusCompleted)
		if item.ProgressPercent < 100 {
			item.ProgressPercent = 100
		}
		if strings.TrimSpace(item.ProgressMessage) == "" {
			item.ProgressMessage = deriveStageLabel(queue.StatusCompleted)
		}
	}
	if err := m.store.Update(persistCtx, item); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		logger.Error("failed to persist stage result", logging.Args(logging.Error(wrapped))...)
		m.setLastError(wrapped)
		return wrapped
	}
	logger.Info("stage completed", logging.Args(
		logging.String("next_status", string(item.Status)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)...)
	metrics.StageDuration.WithLabelValues(stg.name).Observe(time.Since(stageStart).Seconds())
	m.setLastItem(item)
	if item.Status == queue.StatusCompleted {
		metrics.EpisodesCompleted.Inc()
		m.notifyEpisodeCompleted(persistCtx, item)
	}
	m.checkBatchCompletion(persistCtx, item)
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, handler stage.Handler, item *queue.Item) error {
	if m.heartbeat == nil {
		return handler.Execute(ctx, item)
	}
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, item.ID)

	execErr := handler.Execute(ctx, item)
	hbCancel()
	hbWG.Wait()
	return execErr
}

// setItemProcessingState resets the in-memory copy to match the claim the
// store already recorded, plus a clean progress slate for the new stage.
func (m *Manager) setItemProcessingState(item *queue.Item, stg pipelineStage) {
	now := time.Now().UTC()
	label := deriveStageLabel(stg.processingStatus)
	item.Status = stg.processingStatus
	item.SetProgress(label, label+" started", 0)
	item.ErrorMessage = ""
	item.LastHeartbeat = &now
}

// rollbackInterrupted returns a shutdown-interrupted item to its stage start
// status so the next daemon run resumes it instead of counting a failure.
func (m *Manager) rollbackInterrupted(ctx context.Context, stg pipelineStage, item *queue.Item) {
	persistCtx := context.WithoutCancel(ctx)
	item.Status = stg.startStatus
	item.LastHeartbeat = nil
	item.SetProgress(deriveStageLabel(stg.processingStatus), "Interrupted, will resume", 0)
	if err := m.store.Update(persistCtx, item); err != nil {
		m.logger.Warn("failed to roll back interrupted item", logging.Args(
			logging.Int64(logging.FieldItemID, item.ID),
			logging.Error(err),
		)...)
		return
	}
	m.logger.Debug("stage interrupted by shutdown", logging.Args(
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldStage, stg.name),
	)...)
}
