package workflow

import (
	"context"
	"errors"
	"time"

	"spool/internal/logging"
	"spool/internal/queue"
)

// Start begins background processing. Each lane spawns its configured number
// of workers; Start returns once all workers are launched.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	lanes := make([]*laneState, 0, len(m.laneOrder))
	for _, name := range m.laneOrder {
		lane := m.lanes[name]
		if lane == nil || len(lane.statusOrder) == 0 {
			continue
		}
		lanes = append(lanes, lane)
	}
	if len(lanes) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.stop = cancel
	m.running = true

	for _, lane := range lanes {
		m.wg.Add(lane.workers)
	}
	m.mu.Unlock()

	for _, lane := range lanes {
		for i := 0; i < lane.workers; i++ {
			go m.runWorker(runCtx, lane, i)
		}
	}
	return nil
}

// Stop terminates background processing and waits for in-flight stages to
// wind down. Interrupted items roll back to their stage start status so the
// next run resumes them.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.stop
	m.running = false
	m.stop = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Running reports whether the manager currently owns worker goroutines.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *Manager) runWorker(ctx context.Context, lane *laneState, index int) {
	defer m.wg.Done()
	logger := m.logger.With(
		logging.String(logging.FieldLane, lane.name),
		logging.Int("worker", index),
	)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// One reclaimer per lane keeps the stale sweep from racing itself.
		if index == 0 && m.heartbeat != nil {
			m.heartbeat.ReclaimStale(ctx, lane.processingStatuses...)
		}

		item, stg, err := m.nextItemForLane(ctx, lane)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.setLastError(err)
			logger.Error("failed to fetch next queue item", logging.Args(logging.Error(err))...)
			m.sleep(ctx, m.retryInterval)
			continue
		}
		if item == nil {
			m.sleep(ctx, m.pollInterval)
			continue
		}

		if err := m.processItem(ctx, lane, stg, item); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Debug("item processing ended with failure", logging.Args(
				logging.Int64(logging.FieldItemID, item.ID),
				logging.Error(err),
			)...)
		}
	}
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastItem(item *queue.Item) {
	m.mu.Lock()
	if item == nil {
		m.lastItem = nil
	} else {
		copied := *item
		m.lastItem = &copied
	}
	m.mu.Unlock()
}
