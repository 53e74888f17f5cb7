package api_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"spool/internal/api"
	"spool/internal/queue"
	"spool/internal/testsupport"
)

func TestCleanStagingDirectoriesUnconfigured(t *testing.T) {
	result, err := api.CleanStagingDirectories(context.Background(), api.CleanStagingRequest{})
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if result.Configured {
		t.Fatal("expected unconfigured result for empty staging dir")
	}
}

func TestCleanStagingDirectoriesOrphansOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	item := testsupport.NewEpisode(t, store, "", queue.EpisodeSeed{
		Series:    "Demo Show",
		Season:    1,
		Episode:   5,
		SourceURL: "https://host-a.example/v/1",
	})
	claimed := item.StagingRoot(cfg.Paths.StagingDir)
	if err := os.MkdirAll(claimed, 0o755); err != nil {
		t.Fatalf("create claimed dir: %v", err)
	}
	orphan := filepath.Join(cfg.Paths.StagingDir, "Stale Show-S09E09")
	if err := os.MkdirAll(orphan, 0o755); err != nil {
		t.Fatalf("create orphan dir: %v", err)
	}

	result, err := api.CleanStagingDirectories(context.Background(), api.CleanStagingRequest{
		StagingDir: cfg.Paths.StagingDir,
		Active:     api.StoreActiveDirs{Store: store, StagingDir: cfg.Paths.StagingDir},
	})
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if !result.Configured || result.Scope != "orphaned staging" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Cleanup.Removed) != 1 || result.Cleanup.Removed[0] != orphan {
		t.Fatalf("removed = %v", result.Cleanup.Removed)
	}
	if _, err := os.Stat(claimed); err != nil {
		t.Fatal("claimed staging dir should survive cleanup")
	}
}

func TestCleanStagingDirectoriesAll(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(filepath.Join(cfg.Paths.StagingDir, "anything"), 0o755); err != nil {
		t.Fatalf("create dir: %v", err)
	}

	result, err := api.CleanStagingDirectories(context.Background(), api.CleanStagingRequest{
		StagingDir: cfg.Paths.StagingDir,
		CleanAll:   true,
	})
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if result.Scope != "staging" || len(result.Cleanup.Removed) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}
