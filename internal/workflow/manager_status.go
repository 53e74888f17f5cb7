package workflow

import (
	"context"

	"spool/internal/logging"
	"spool/internal/queue"
	"spool/internal/stage"
)

// LaneSummary describes one configured lane for diagnostics.
type LaneSummary struct {
	Name    string
	Workers int
	Stages  []string
}

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool
	Lanes       []LaneSummary
	LastError   string
	LastItem    *queue.Item
	QueueStats  map[queue.Status]int
	StageHealth map[string]stage.Health
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastItem := m.lastItem
	lanes := make([]LaneSummary, 0, len(m.laneOrder))
	stageSet := make([]pipelineStage, 0)
	for _, name := range m.laneOrder {
		lane := m.lanes[name]
		if lane == nil {
			continue
		}
		summary := LaneSummary{Name: lane.name, Workers: lane.workers}
		for _, stg := range lane.stages {
			summary.Stages = append(summary.Stages, stg.name)
		}
		lanes = append(lanes, summary)
		stageSet = append(stageSet, lane.stages...)
	}
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Args(logging.Error(err))...)
	}

	health := make(map[string]stage.Health, len(stageSet))
	for _, stg := range stageSet {
		if stg.handler == nil {
			continue
		}
		health[stg.name] = stg.handler.HealthCheck(ctx)
	}

	summary := StatusSummary{Running: running, Lanes: lanes, QueueStats: stats, StageHealth: health}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastItem != nil {
		copied := *lastItem
		summary.LastItem = &copied
	}
	return summary
}
