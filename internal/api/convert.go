package api

import (
	"slices"
	"sort"
	"time"

	"spool/internal/deps"
	"spool/internal/queue"
	"spool/internal/status"
	"spool/internal/workflow"
)

// FromQueueItem converts a queue record to its API representation.
func FromQueueItem(item *queue.Item) QueueItem {
	if item == nil {
		return QueueItem{}
	}

	dto := QueueItem{
		ID:             item.ID,
		BatchID:        item.BatchID,
		Series:         item.Series,
		Season:         item.Season,
		Episode:        item.Episode,
		Title:          item.Title,
		EpisodeCode:    item.EpisodeCode(),
		SourceURL:      item.SourceURL,
		Status:         string(item.Status),
		ProcessingLane: string(queue.LaneForItem(item)),
		Progress: QueueProgress{
			Stage:   item.ProgressStage,
			Percent: item.ProgressPercent,
			Message: item.ProgressMessage,
		},
		AudioLang:     item.AudioLang,
		DubLang:       item.DubLang,
		SubtitleLangs: item.SubtitleLangs,
		VerifyReason:  item.VerifyReason,
		ErrorMessage:  item.ErrorMessage,
		StagedFile:    item.StagedFile,
		FinalFile:     item.FinalFile,
		NeedsReview:   item.NeedsReview,
		ReviewReason:  item.ReviewReason,
	}
	if !item.AirDate.IsZero() {
		dto.AirDate = item.AirDate.Format("2006-01-02")
	}
	if !item.CreatedAt.IsZero() {
		dto.CreatedAt = item.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !item.UpdatedAt.IsZero() {
		dto.UpdatedAt = item.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromQueueItems converts a slice of queue records into API DTOs.
func FromQueueItems(items []*queue.Item) []QueueItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]QueueItem, 0, len(items))
	for _, item := range items {
		out = append(out, FromQueueItem(item))
	}
	return out
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	healthNames := make([]string, 0, len(summary.StageHealth))
	for name := range summary.StageHealth {
		healthNames = append(healthNames, name)
	}
	slices.Sort(healthNames)

	health := make([]StageHealth, 0, len(healthNames))
	for _, name := range healthNames {
		h := summary.StageHealth[name]
		health = append(health, StageHealth{
			Name:   name,
			Ready:  h.Ready,
			Detail: h.Detail,
		})
	}

	stats := make(map[string]int, len(summary.QueueStats))
	for st, count := range summary.QueueStats {
		stats[string(st)] = count
	}

	lanes := make([]LaneStatus, 0, len(summary.Lanes))
	for _, lane := range summary.Lanes {
		lanes = append(lanes, LaneStatus{
			Name:    lane.Name,
			Workers: lane.Workers,
			Stages:  lane.Stages,
		})
	}

	wf := WorkflowStatus{
		Running:     summary.Running,
		Lanes:       lanes,
		QueueStats:  stats,
		StageHealth: health,
	}

	if summary.LastError != "" {
		wf.LastError = summary.LastError
	}
	if summary.LastItem != nil {
		last := FromQueueItem(summary.LastItem)
		wf.LastItem = &last
	}
	return wf
}

// FromBatchRecord converts the coordinator's record to API payload.
func FromBatchRecord(rec status.Record) BatchStatus {
	dto := BatchStatus{
		Active:          rec.Active,
		BatchID:         rec.BatchID,
		Title:           rec.Title,
		CurrentEpisode:  rec.CurrentEpisode,
		TotalEpisodes:   rec.TotalEpisodes,
		Percent:         rec.Percent,
		Message:         rec.Message,
		CancelRequested: rec.CancelRequested,
	}
	if !rec.StartedAt.IsZero() {
		dto.StartedAt = rec.StartedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromDependencyStatuses converts dependency check results to API payload.
func FromDependencyStatuses(statuses []deps.Status) []DependencyStatus {
	if len(statuses) == 0 {
		return nil
	}
	out := make([]DependencyStatus, 0, len(statuses))
	for _, dep := range statuses {
		out = append(out, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return out
}

// MergeQueueStats normalizes status counts into string keys, padding known
// statuses with zero so consumers render stable tables.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	merged := make(map[string]int, len(stats))
	for _, st := range queue.AllStatuses() {
		merged[string(st)] = 0
	}
	for st, count := range stats {
		merged[string(st)] = count
	}
	return merged
}

// SortQueueItemsNewestFirst orders queue items by CreatedAt descending,
// breaking ties by ID descending.
func SortQueueItemsNewestFirst(items []QueueItem) []QueueItem {
	if len(items) == 0 {
		return nil
	}
	sorted := make([]QueueItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		ti := ParseQueueTime(sorted[i].CreatedAt)
		tj := ParseQueueTime(sorted[j].CreatedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})
	return sorted
}

// ParseQueueTime parses API timestamps for consumers that need display
// formatting. Returns the zero time for empty or malformed values.
func ParseQueueTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}
