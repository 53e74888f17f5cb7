package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"spool/internal/catalog"
)

func TestAddFromURLsAndCancel(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{
		"add", "--series", "Demo Show", "--season", "1",
		"https://mirror.example/demo-s01e01.mp4",
		"https://mirror.example/demo-s01e02.mp4",
	}, env.apiAddr, env.configPath)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	requireContains(t, out, "2 episodes of Demo Show")

	_, _, err = runCLI(t, []string{
		"add", "--series", "Demo Show", "--season", "1",
		"https://mirror.example/demo-s01e03.mp4",
	}, env.apiAddr, env.configPath)
	if err == nil {
		t.Fatal("expected second add to fail while a batch is active")
	}
	requireContains(t, err.Error(), "already active")

	out, _, err = runCLI(t, []string{"cancel"}, env.apiAddr, env.configPath)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	requireContains(t, out, "Cancellation requested")
}

func TestAddFromSeedFile(t *testing.T) {
	env := setupCLITestEnv(t)

	batch := catalog.Batch{
		Series:  "Seeded Show",
		Context: "anime",
		Season:  2,
		Episodes: []catalog.EpisodeSeed{
			{Episode: 1, Title: "Opening", URL: "https://mirror.example/seeded-s02e01.mp4"},
		},
	}
	data, err := json.Marshal(batch)
	if err != nil {
		t.Fatalf("marshal seeds: %v", err)
	}
	seedPath := filepath.Join(t.TempDir(), "seeds.json")
	if err := os.WriteFile(seedPath, data, 0o644); err != nil {
		t.Fatalf("write seeds: %v", err)
	}

	out, _, err := runCLI(t, []string{"add", "--file", seedPath}, env.apiAddr, env.configPath)
	if err != nil {
		t.Fatalf("add --file: %v", err)
	}
	requireContains(t, out, "1 episodes of Seeded Show")
}

func TestAddRejectsEmptySubmission(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"add"}, env.apiAddr, env.configPath)
	if err == nil {
		t.Fatal("expected error for empty submission")
	}
}
