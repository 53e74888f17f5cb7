package api_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"spool/internal/api"
	"spool/internal/catalog"
	"spool/internal/status"
	"spool/internal/testsupport"
)

func demoBatch() catalog.Batch {
	return catalog.Batch{
		Series:  "Demo Show",
		Context: "anime",
		Episodes: []catalog.EpisodeSeed{
			{Season: 1, Episode: 1, URL: "https://host-a.example/s01e01",
				AirDate: "2026-03-07"},
			{Season: 1, Episode: 2, URL: "https://host-a.example/s01e02",
				Mirrors: []string{"https://host-b.example/s01e02"}},
		},
	}
}

func TestSubmitEnqueuesBatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	coord := status.New()

	svc := api.NewBatchService(store, coord)
	resp, err := svc.Submit(context.Background(), demoBatch())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.BatchID == "" {
		t.Fatal("expected batch id")
	}
	if len(resp.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(resp.Items))
	}
	if resp.Items[1].EpisodeCode != "S01E02" {
		t.Fatalf("episode code = %q", resp.Items[1].EpisodeCode)
	}

	rec := coord.Snapshot()
	if !rec.Active || rec.BatchID != resp.BatchID || rec.TotalEpisodes != 2 {
		t.Fatalf("unexpected batch record: %+v", rec)
	}

	items, err := store.ItemsByBatch(context.Background(), resp.BatchID)
	if err != nil {
		t.Fatalf("list batch: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("stored items = %d, want 2", len(items))
	}
	if items[0].Context != "anime" {
		t.Fatalf("context = %q", items[0].Context)
	}
	if got := items[0].AirDate.Format("2006-01-02"); got != "2026-03-07" {
		t.Fatalf("air date = %q, want 2026-03-07", got)
	}
	if !items[1].AirDate.IsZero() {
		t.Fatalf("expected undated episode, got %v", items[1].AirDate)
	}
}

func TestSubmitPartitionsLargeBatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	batch := catalog.Batch{Series: "Demo Show"}
	for ep := 1; ep <= 12; ep++ {
		batch.Episodes = append(batch.Episodes, catalog.EpisodeSeed{
			Season: 1, Episode: ep,
			URL: fmt.Sprintf("https://host-a.example/s01e%02d", ep),
		})
	}

	svc := api.NewBatchService(store, status.New(), api.WithThrottle(10, 5))
	resp, err := svc.Submit(context.Background(), batch)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	items, err := store.ItemsByBatch(context.Background(), resp.BatchID)
	if err != nil {
		t.Fatalf("list batch: %v", err)
	}
	groups := map[int]int{}
	for _, item := range items {
		groups[item.ThrottleGroup]++
	}
	if groups[0] != 5 || groups[1] != 5 || groups[2] != 2 {
		t.Fatalf("group sizes = %v, want 5/5/2", groups)
	}
}

func TestSubmitLeavesSmallBatchUnpartitioned(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	svc := api.NewBatchService(store, status.New(), api.WithThrottle(10, 5))
	resp, err := svc.Submit(context.Background(), demoBatch())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	items, err := store.ItemsByBatch(context.Background(), resp.BatchID)
	if err != nil {
		t.Fatalf("list batch: %v", err)
	}
	for _, item := range items {
		if item.ThrottleGroup != 0 {
			t.Fatalf("episode %s got group %d, want 0", item.EpisodeCode(), item.ThrottleGroup)
		}
	}
}

func TestSubmitRejectsSecondActiveBatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	coord := status.New()

	svc := api.NewBatchService(store, coord)
	if _, err := svc.Submit(context.Background(), demoBatch()); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := svc.Submit(context.Background(), demoBatch())
	if !errors.Is(err, status.ErrBatchActive) {
		t.Fatalf("expected ErrBatchActive, got %v", err)
	}
}

func TestCancelWithoutCoordinator(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewBatchService(store, nil)
	if resp := svc.Cancel(); resp.Requested {
		t.Fatal("cancel without coordinator should not report requested")
	}
}
