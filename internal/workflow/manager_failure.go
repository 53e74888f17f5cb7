package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"spool/internal/logging"
	"spool/internal/metrics"
	"spool/internal/queue"
	"spool/internal/services"
)

// handleStageFailure classifies a stage error, persists the resulting
// terminal status, and emits the matching notification. Validation-class
// errors route to review; everything else marks the item failed so a retry
// can pick it up.
func (m *Manager) handleStageFailure(ctx context.Context, stg pipelineStage, item *queue.Item, stageErr error, logger *slog.Logger) error {
	m.setLastError(stageErr)
	message := failureMessage(stg.name, stageErr)
	resolved := services.FailureStatus(stageErr)
	if resolved == queue.StatusReview {
		item.SetReview(message)
	} else {
		item.SetFailed(message)
	}
	metrics.EpisodesFailed.WithLabelValues(string(resolved)).Inc()

	logger.Error("stage failed", logging.Args(
		logging.String("resolved_status", string(resolved)),
		logging.String("error_message", message),
		logging.Alert("stage_failure"),
		logging.Error(stageErr),
	)...)

	persistCtx := context.WithoutCancel(ctx)
	if err := m.store.Update(persistCtx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not persist stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Args(logging.Error(err))...)
		}
	}

	m.setLastItem(item)
	if resolved == queue.StatusReview {
		m.notifyReview(persistCtx, item, message)
	} else {
		m.notifyEpisodeFailed(persistCtx, item, message)
	}
	m.checkBatchCompletion(persistCtx, item)
	return fmt.Errorf("%s: %w", stg.name, stageErr)
}

func failureMessage(stageName string, stageErr error) string {
	if stageErr == nil {
		if stageName != "" {
			return stageName + " failed without error detail"
		}
		return "workflow failed without error detail"
	}
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		if stageName != "" {
			return stageName + " failed"
		}
		return "workflow failed"
	}
	return message
}
