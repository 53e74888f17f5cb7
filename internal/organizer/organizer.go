package organizer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"spool/internal/config"
	"spool/internal/fileutil"
	"spool/internal/logging"
	"spool/internal/queue"
	"spool/internal/services"
	"spool/internal/services/jellyfin"
	"spool/internal/stage"
)

// Option configures optional Organizer behavior.
type Option func(*Organizer)

// WithService overrides the media server refresh client (primarily for tests).
func WithService(service jellyfin.Service) Option {
	return func(o *Organizer) {
		if service != nil {
			o.service = service
		}
	}
}

// Organizer moves staged episode files into the library tree.
type Organizer struct {
	cfg     *config.Config
	store   *queue.Store
	logger  *slog.Logger
	service jellyfin.Service
}

// New constructs the organizing stage handler.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...Option) *Organizer {
	o := &Organizer{
		cfg:     cfg,
		store:   store,
		service: jellyfin.NewFromConfig(cfg),
	}
	o.SetLogger(logger)
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SetLogger swaps the stage logger.
func (o *Organizer) SetLogger(logger *slog.Logger) {
	o.logger = logging.NewComponentLogger(logger, "organizer")
}

// Prepare validates that a staged file exists before the move starts.
func (o *Organizer) Prepare(ctx context.Context, item *queue.Item) error {
	staged := strings.TrimSpace(item.StagedFile)
	if staged == "" {
		return services.Wrap(services.ErrValidation, "organizer", "validate staged file",
			"Episode has no staged file to organize", nil)
	}
	if _, err := os.Stat(staged); err != nil {
		return services.Wrap(services.ErrValidation, "organizer", "validate staged file",
			"Staged file is missing from disk", err)
	}
	item.InitProgress("Organizing", "Moving into library")
	return nil
}

// Execute moves the staged file into the library layout and triggers a
// media server rescan.
func (o *Organizer) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, o.logger)

	libraryDir := strings.TrimSpace(o.cfg.Paths.LibraryDir)
	if libraryDir == "" {
		return services.Wrap(services.ErrConfiguration, "organizer", "resolve library dir",
			"Library directory is not configured", nil)
	}

	staged := strings.TrimSpace(item.StagedFile)
	ext := filepath.Ext(staged)
	if ext == "" {
		ext = ".mp4"
	}
	target := libraryTarget(libraryDir, item, ext)
	target = withCollisionSuffix(target, func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	})

	item.SetProgress("Organizing", "Moving "+filepath.Base(target), 50)
	if err := o.store.UpdateProgress(ctx, item); err != nil {
		logger.Debug("progress update failed", logging.Error(err))
	}

	if err := fileutil.MoveFile(staged, target); err != nil {
		return services.Wrap(services.ErrTransient, "organizer", "move staged file",
			fmt.Sprintf("Failed to move episode into library: %s", filepath.Base(target)), err)
	}
	item.FinalFile = target

	if err := o.service.Refresh(ctx); err != nil {
		logger.Warn("library refresh failed", logging.Error(err))
	}

	o.removeStagingDir(item, logger)

	item.SetProgressComplete("Organized", "Available in library: "+filepath.Base(target))
	logger.Info("episode organized",
		logging.String("final_file", target),
		logging.String("series", item.Series))
	return nil
}

// HealthCheck verifies the library directory is writable.
func (o *Organizer) HealthCheck(ctx context.Context) stage.Health {
	const name = "organizer"
	libraryDir := strings.TrimSpace(o.cfg.Paths.LibraryDir)
	if libraryDir == "" {
		return stage.Unhealthy(name, "library directory not configured")
	}
	if info, err := os.Stat(libraryDir); err != nil || !info.IsDir() {
		return stage.Unhealthy(name, "library directory not accessible: "+libraryDir)
	}
	return stage.Healthy(name)
}

// removeStagingDir clears the per-episode staging directory once it no longer
// holds anything. Failure here is never fatal.
func (o *Organizer) removeStagingDir(item *queue.Item, logger *slog.Logger) {
	root := item.StagingRoot(o.cfg.Paths.StagingDir)
	if root == "" || root == o.cfg.Paths.StagingDir {
		return
	}
	entries, err := os.ReadDir(root)
	if err != nil || len(entries) > 0 {
		return
	}
	if err := os.Remove(root); err != nil {
		logger.Debug("staging dir cleanup failed", logging.Error(err))
	}
}
