package workflow

import "spool/internal/queue"

// configureLanes registers the concrete stage handlers the workflow will run.
// Candidate resolution and transfer work run in separate lanes so slow
// downloads never starve extraction of the next episodes.
func (m *Manager) configureLanes(set StageSet) {
	extract := &laneState{
		lane:    queue.LaneExtract,
		name:    "extract",
		workers: laneWorkers(m.cfg.Workflow.ExtractWorkers),
	}
	transfer := &laneState{
		lane:    queue.LaneTransfer,
		name:    "transfer",
		workers: laneWorkers(m.cfg.Workflow.TransferWorkers),
	}

	if set.Extractor != nil {
		extract.stages = append(extract.stages, pipelineStage{
			name:             "extractor",
			handler:          set.Extractor,
			startStatus:      queue.StatusPending,
			processingStatus: queue.StatusExtracting,
			doneStatus:       queue.StatusExtracted,
		})
	}
	if set.Transfer != nil {
		transfer.stages = append(transfer.stages, pipelineStage{
			name:             "transfer",
			handler:          set.Transfer,
			startStatus:      queue.StatusExtracted,
			processingStatus: queue.StatusDownloading,
			doneStatus:       queue.StatusDownloaded,
		})
	}
	if set.Organizer != nil {
		transfer.stages = append(transfer.stages, pipelineStage{
			name:             "organizer",
			handler:          set.Organizer,
			startStatus:      queue.StatusDownloaded,
			processingStatus: queue.StatusOrganizing,
			doneStatus:       queue.StatusCompleted,
		})
	}

	lanes := make(map[queue.ProcessingLane]*laneState)
	order := make([]queue.ProcessingLane, 0, 2)
	if len(extract.stages) > 0 {
		extract.finalize()
		lanes[extract.lane] = extract
		order = append(order, extract.lane)
	}
	if len(transfer.stages) > 0 {
		transfer.finalize()
		lanes[transfer.lane] = transfer
		order = append(order, transfer.lane)
	}

	m.mu.Lock()
	m.lanes = lanes
	m.laneOrder = order
	m.mu.Unlock()
}

func laneWorkers(configured int) int {
	if configured < 1 {
		return 1
	}
	return configured
}
