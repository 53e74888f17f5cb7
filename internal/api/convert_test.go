package api_test

import (
	"testing"
	"time"

	"spool/internal/api"
	"spool/internal/queue"
)

func TestFromQueueItemMapsFields(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	item := &queue.Item{
		ID:              7,
		BatchID:         "batch-1",
		Series:          "Demo Show",
		Season:          1,
		Episode:         5,
		Title:           "Pilot",
		SourceURL:       "https://host-a.example/v/1",
		Status:          queue.StatusDownloading,
		AudioLang:       "ja",
		DubLang:         "de",
		SubtitleLangs:   "de,en",
		ProgressStage:   "Downloading",
		ProgressPercent: 42,
		ProgressMessage: "Fetching",
		CreatedAt:       created,
	}

	dto := api.FromQueueItem(item)

	if dto.ID != 7 || dto.Series != "Demo Show" || dto.EpisodeCode != "S01E05" {
		t.Fatalf("unexpected identity fields: %+v", dto)
	}
	if dto.Status != "downloading" {
		t.Fatalf("status = %q", dto.Status)
	}
	if dto.ProcessingLane != string(queue.LaneTransfer) {
		t.Fatalf("lane = %q", dto.ProcessingLane)
	}
	if dto.Progress.Percent != 42 || dto.Progress.Stage != "Downloading" {
		t.Fatalf("progress = %+v", dto.Progress)
	}
	if dto.AudioLang != "ja" || dto.DubLang != "de" {
		t.Fatalf("language fields = %q/%q", dto.AudioLang, dto.DubLang)
	}
	if dto.CreatedAt != "2026-03-14T09:26:53.000Z" {
		t.Fatalf("createdAt = %q", dto.CreatedAt)
	}
}

func TestFromQueueItemNil(t *testing.T) {
	if dto := api.FromQueueItem(nil); dto.ID != 0 || dto.Status != "" {
		t.Fatalf("expected zero DTO, got %+v", dto)
	}
}

func TestMergeQueueStatsPadsKnownStatuses(t *testing.T) {
	merged := api.MergeQueueStats(map[queue.Status]int{
		queue.StatusPending:   2,
		queue.StatusCompleted: 1,
	})
	if merged["pending"] != 2 || merged["completed"] != 1 {
		t.Fatalf("unexpected counts: %v", merged)
	}
	if _, ok := merged["failed"]; !ok {
		t.Fatal("expected zero-padded failed count")
	}
}

func TestSortQueueItemsNewestFirst(t *testing.T) {
	items := []api.QueueItem{
		{ID: 1, CreatedAt: "2026-01-01T00:00:00.000Z"},
		{ID: 3, CreatedAt: "2026-01-03T00:00:00.000Z"},
		{ID: 2, CreatedAt: "2026-01-03T00:00:00.000Z"},
	}
	sorted := api.SortQueueItemsNewestFirst(items)
	if sorted[0].ID != 3 || sorted[1].ID != 2 || sorted[2].ID != 1 {
		t.Fatalf("unexpected order: %v, %v, %v", sorted[0].ID, sorted[1].ID, sorted[2].ID)
	}
}
