package main

import (
	"context"
	"testing"

	"spool/internal/queue"
	"spool/internal/testsupport"
)

func TestQueueStatusAndList(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	testsupport.NewEpisode(t, env.store, "", queue.EpisodeSeed{
		Series:    "Demo Show",
		Season:    1,
		Episode:   1,
		SourceURL: "https://mirror.example/demo-s01e01.mp4",
	})
	failed := testsupport.NewEpisode(t, env.store, "", queue.EpisodeSeed{
		Series:    "Other Show",
		Season:    2,
		Episode:   3,
		SourceURL: "https://mirror.example/other-s02e03.mp4",
	})
	failed.SetFailed("mirror exhausted")
	if err := env.store.Update(ctx, failed); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "status"}, env.apiAddr, env.configPath)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, "Pending")
	requireContains(t, out, "Failed")

	out, _, err = runCLI(t, []string{"queue", "list"}, env.apiAddr, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Demo Show")
	requireContains(t, out, "S02E03")
}

func TestQueueRetryAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	item := testsupport.NewEpisode(t, env.store, "", queue.EpisodeSeed{
		Series:    "Demo Show",
		Season:    1,
		Episode:   2,
		SourceURL: "https://mirror.example/demo-s01e02.mp4",
	})
	item.SetFailed("mirror exhausted")
	if err := env.store.Update(ctx, item); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "retry"}, env.apiAddr, env.configPath)
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	requireContains(t, out, "Retried 1 failed items")

	out, _, err = runCLI(t, []string{"queue", "clear"}, env.apiAddr, env.configPath)
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Cleared 1 queue items")
}

func TestQueueRemoveReportsMissing(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"queue", "remove", "42"}, env.apiAddr, env.configPath)
	if err != nil {
		t.Fatalf("queue remove: %v", err)
	}
	requireContains(t, out, "Item 42 not found")
}

func TestQueueHealthSummary(t *testing.T) {
	env := setupCLITestEnv(t)

	testsupport.NewEpisode(t, env.store, "", queue.EpisodeSeed{
		Series:    "Demo Show",
		Season:    1,
		Episode:   4,
		SourceURL: "https://mirror.example/demo-s01e04.mp4",
	})

	out, _, err := runCLI(t, []string{"queue", "health"}, env.apiAddr, env.configPath)
	if err != nil {
		t.Fatalf("queue health: %v", err)
	}
	requireContains(t, out, "Total: 1")
	requireContains(t, out, "Pending: 1")
}
