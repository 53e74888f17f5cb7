package api

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"spool/internal/queue"
	"spool/internal/staging"
)

// ActiveDirProvider surfaces the staging directory names still claimed by
// in-flight queue items.
type ActiveDirProvider interface {
	ActiveStagingDirs(ctx context.Context) (map[string]struct{}, error)
}

type CleanStagingRequest struct {
	StagingDir string
	CleanAll   bool
	Active     ActiveDirProvider
}

type CleanStagingResult struct {
	Configured bool
	Scope      string
	Cleanup    staging.CleanStaleResult
}

// CleanStagingDirectories applies staging cleanup policy used by CLI commands.
func CleanStagingDirectories(ctx context.Context, req CleanStagingRequest) (CleanStagingResult, error) {
	stagingDir := strings.TrimSpace(req.StagingDir)
	if stagingDir == "" {
		return CleanStagingResult{Configured: false}, nil
	}

	if req.CleanAll {
		return CleanStagingResult{
			Configured: true,
			Scope:      "staging",
			Cleanup:    staging.CleanStale(ctx, stagingDir, 0, nil),
		}, nil
	}

	if req.Active == nil {
		return CleanStagingResult{}, fmt.Errorf("active directory provider is required when clean_all is false")
	}
	active, err := req.Active.ActiveStagingDirs(ctx)
	if err != nil {
		return CleanStagingResult{}, err
	}
	return CleanStagingResult{
		Configured: true,
		Scope:      "orphaned staging",
		Cleanup:    staging.CleanOrphaned(ctx, stagingDir, active, nil),
	}, nil
}

// StoreActiveDirs derives claimed staging directory names from non-terminal
// queue items.
type StoreActiveDirs struct {
	Store      QueueReader
	StagingDir string
}

// ActiveStagingDirs lists the directory base names owned by items that have
// not reached a terminal status.
func (s StoreActiveDirs) ActiveStagingDirs(ctx context.Context) (map[string]struct{}, error) {
	items, err := s.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	active := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.Status == queue.StatusCompleted {
			continue
		}
		root := item.StagingRoot(s.StagingDir)
		if root == "" {
			continue
		}
		active[filepath.Base(root)] = struct{}{}
	}
	return active, nil
}
