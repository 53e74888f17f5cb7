package workflow

import (
	"context"
	"strings"
	"unicode"

	"spool/internal/queue"
	"spool/internal/services"
)

// withStageContext annotates the context with everything downstream log
// lines and service calls need to correlate work on one item.
func withStageContext(ctx context.Context, lane *laneState, stageName string, item *queue.Item, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if item != nil {
		ctx = services.WithItemID(ctx, item.ID)
		ctx = services.WithBatchID(ctx, item.BatchID)
		if item.Season > 0 || item.Episode > 0 {
			ctx = services.WithEpisode(ctx, item.EpisodeCode())
		}
	}
	if stageName != "" {
		ctx = services.WithStage(ctx, stageName)
	}
	if lane != nil && strings.TrimSpace(lane.name) != "" {
		ctx = services.WithLane(ctx, strings.TrimSpace(lane.name))
	}
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}

func deriveStageLabel(status queue.Status) string {
	if status == "" {
		return ""
	}
	parts := strings.Fields(strings.ReplaceAll(string(status), "_", " "))
	for i, part := range parts {
		if part == "" {
			continue
		}
		runes := []rune(strings.ToLower(part))
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}
