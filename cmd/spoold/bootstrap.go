package main

import (
	"log/slog"

	"spool/internal/config"
	"spool/internal/extract"
	"spool/internal/organizer"
	"spool/internal/queue"
	"spool/internal/status"
	"spool/internal/transfer"
	"spool/internal/workflow"
)

// buildStages wires the three workflow handlers: candidate extraction,
// download/verify transfer, and library placement.
func buildStages(cfg *config.Config, store *queue.Store, logger *slog.Logger, coord *status.Coordinator) workflow.StageSet {
	return workflow.StageSet{
		Extractor: extract.New(cfg, store, logger),
		Transfer:  transfer.New(cfg, store, logger, transfer.WithCoordinator(coord)),
		Organizer: organizer.New(cfg, store, logger),
	}
}
