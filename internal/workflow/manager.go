package workflow

import (
	"log/slog"
	"sync"
	"time"

	"spool/internal/config"
	"spool/internal/logging"
	"spool/internal/notifications"
	"spool/internal/queue"
	"spool/internal/status"
)

// Manager coordinates queue processing using registered stage handlers.
type Manager struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	notifier notifications.Service
	coord    *status.Coordinator

	pollInterval  time.Duration
	retryInterval time.Duration
	throttlePause time.Duration
	heartbeat     *HeartbeatMonitor

	lanes     map[queue.ProcessingLane]*laneState
	laneOrder []queue.ProcessingLane

	mu       sync.RWMutex
	running  bool
	stop     func()
	wg       sync.WaitGroup
	lastErr  error
	lastItem *queue.Item

	// completedBatch remembers the most recently drained batch so concurrent
	// workers finishing the final two episodes publish one completion event.
	completedBatch string
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithNotifier overrides the ntfy-backed notifier built from configuration.
func WithNotifier(notifier notifications.Service) ManagerOption {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// WithCoordinator attaches the shared batch status coordinator. The manager
// reports batch progress through it and honors its cancellation flag.
func WithCoordinator(coord *status.Coordinator) ManagerOption {
	return func(m *Manager) { m.coord = coord }
}

// WithPollInterval overrides the idle poll interval from configuration.
func WithPollInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

// WithRetryInterval overrides the backoff applied after queue errors.
func WithRetryInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.retryInterval = d
		}
	}
}

// WithHeartbeat overrides the heartbeat cadence from configuration.
func WithHeartbeat(interval, timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.heartbeat = NewHeartbeatMonitor(m.store, m.logger, interval, timeout)
	}
}

// NewManager constructs a workflow manager around the supplied stage handlers.
func NewManager(cfg *config.Config, store *queue.Store, stages StageSet, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:           cfg,
		store:         store,
		logger:        logging.NewComponentLogger(logger, "workflow"),
		notifier:      notifications.NewService(cfg),
		pollInterval:  time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		retryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		throttlePause: time.Duration(cfg.Workflow.ThrottlePauseSeconds) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		lanes: make(map[queue.ProcessingLane]*laneState),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.pollInterval <= 0 {
		m.pollInterval = time.Second
	}
	if m.retryInterval <= 0 {
		m.retryInterval = m.pollInterval
	}
	m.configureLanes(stages)
	return m
}
