package logging_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"spool/internal/logging"
)

func TestCleanupOldLogsPrunesExpired(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "spoold-2024.log")
	freshPath := filepath.Join(dir, "spoold.log")

	for _, path := range []string{oldPath, freshPath} {
		if err := os.WriteFile(path, []byte("line\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	stale := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(oldPath, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	logging.CleanupOldLogs(logging.NewNop(), 7, logging.RetentionTarget{
		Dir:     dir,
		Pattern: "*.log",
		Exclude: []string{freshPath},
	})

	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be pruned, stat err=%v", oldPath, err)
	}
	if _, err := os.Stat(freshPath); err != nil {
		t.Fatalf("expected %s to remain: %v", freshPath, err)
	}
}

func TestCleanupOldLogsDisabled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "old.log")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stale := time.Now().AddDate(0, 0, -90)
	if err := os.Chtimes(path, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	logging.CleanupOldLogs(nil, 0, logging.RetentionTarget{Dir: dir, Pattern: "*.log"})

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to remain with retention disabled: %v", err)
	}
}
