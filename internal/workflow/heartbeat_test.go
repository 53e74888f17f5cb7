package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"spool/internal/logging"
	"spool/internal/queue"
	"spool/internal/testsupport"
)

func TestHeartbeatLoopStampsItem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := testsupport.NewEpisode(t, store, "", queue.EpisodeSeed{
		Series: "Beat", SourceURL: "https://example.com/beat",
	})
	item.Status = queue.StatusDownloading
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	monitor := NewHeartbeatMonitor(store, logging.NewNop(), 5*time.Millisecond, time.Minute)
	loopCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go monitor.StartLoop(loopCtx, &wg, item.ID)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		updated, err := store.GetByID(ctx, item.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if updated.LastHeartbeat != nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	wg.Wait()

	updated, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.LastHeartbeat == nil {
		t.Fatal("expected heartbeat loop to stamp the item")
	}
}

func TestManagerRollsBackInterruptedStage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := testsupport.NewEpisode(t, store, "", queue.EpisodeSeed{
		Series: "Interrupted", Season: 1, Episode: 1,
		SourceURL: "https://example.com/interrupted",
	})

	started := make(chan struct{})
	stages, _, _, _ := passthroughStages()
	stages.Transfer = &stubHandler{name: "transfer", execute: func(ctx context.Context, _ *queue.Item) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}}
	mgr := NewManager(cfg, store, stages, logging.NewNop(), fastOptions(WithNotifier(&recordingNotifier{}))...)
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	<-started
	mgr.Stop()

	rolled, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if rolled.Status != queue.StatusExtracted {
		t.Fatalf("expected rollback to extracted, got %s", rolled.Status)
	}
	if rolled.ProgressMessage != "Interrupted, will resume" {
		t.Fatalf("unexpected progress message: %q", rolled.ProgressMessage)
	}
	if rolled.LastHeartbeat != nil {
		t.Fatal("rollback should clear the heartbeat")
	}
}
