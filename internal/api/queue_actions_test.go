package api_test

import (
	"context"
	"testing"

	"spool/internal/api"
	"spool/internal/queue"
	"spool/internal/testsupport"
)

func seedEpisode(t *testing.T, store *queue.Store, episode int, status queue.Status) *queue.Item {
	t.Helper()
	item := testsupport.NewEpisode(t, store, "", queue.EpisodeSeed{
		Series:    "Demo Show",
		Season:    1,
		Episode:   episode,
		SourceURL: "https://host-a.example/v/1",
	})
	if status != queue.StatusPending {
		item.Status = status
		if err := store.Update(context.Background(), item); err != nil {
			t.Fatalf("set status: %v", err)
		}
	}
	return item
}

func TestRetryFailedItemsByID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	failed := seedEpisode(t, store, 1, queue.StatusFailed)
	pending := seedEpisode(t, store, 2, queue.StatusPending)

	actions := api.NewStoreActions(store)
	ctx := context.Background()

	result, err := api.RetryFailedItemsByID(ctx, actions, []int64{failed.ID, pending.ID, 999})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if result.UpdatedCount != 1 {
		t.Fatalf("updated = %d, want 1", result.UpdatedCount)
	}
	if result.Items[0].Outcome != api.RetryItemUpdated {
		t.Fatalf("failed item outcome = %q", result.Items[0].Outcome)
	}
	if result.Items[1].Outcome != api.RetryItemNotFailed {
		t.Fatalf("pending item outcome = %q", result.Items[1].Outcome)
	}
	if result.Items[2].Outcome != api.RetryItemNotFound {
		t.Fatalf("missing item outcome = %q", result.Items[2].Outcome)
	}

	refreshed, err := store.GetByID(ctx, failed.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if refreshed.Status != queue.StatusPending {
		t.Fatalf("status after retry = %q", refreshed.Status)
	}
}

func TestStopItemsByID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	running := seedEpisode(t, store, 1, queue.StatusDownloading)
	done := seedEpisode(t, store, 2, queue.StatusCompleted)

	actions := api.NewStoreActions(store)
	ctx := context.Background()

	result, err := api.StopItemsByID(ctx, actions, []int64{running.ID, done.ID})
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if result.UpdatedCount != 1 {
		t.Fatalf("updated = %d, want 1", result.UpdatedCount)
	}
	if result.Items[0].Outcome != api.StopItemUpdated {
		t.Fatalf("running item outcome = %q", result.Items[0].Outcome)
	}
	if result.Items[1].Outcome != api.StopItemAlreadyCompleted {
		t.Fatalf("completed item outcome = %q", result.Items[1].Outcome)
	}

	refreshed, err := store.GetByID(ctx, running.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if refreshed.Status != queue.StatusReview || !refreshed.NeedsReview {
		t.Fatalf("stopped item = %q needsReview=%v", refreshed.Status, refreshed.NeedsReview)
	}
	if refreshed.ReviewReason != queue.UserStopReason {
		t.Fatalf("review reason = %q", refreshed.ReviewReason)
	}
}

func TestRemoveItemsByID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := seedEpisode(t, store, 1, queue.StatusPending)

	actions := api.NewStoreActions(store)
	ctx := context.Background()

	result, err := api.RemoveItemsByID(ctx, actions, []int64{item.ID, 999})
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if result.RemovedCount != 1 {
		t.Fatalf("removed = %d, want 1", result.RemovedCount)
	}
	if result.Items[0].Outcome != api.RemoveItemRemoved {
		t.Fatalf("first outcome = %q", result.Items[0].Outcome)
	}
	if result.Items[1].Outcome != api.RemoveItemNotFound {
		t.Fatalf("second outcome = %q", result.Items[1].Outcome)
	}
}
