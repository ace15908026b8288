// Package pipeline turns pending tasks into finished vertical videos. A
// dispatcher claims tasks from the store and hands each one to a runner
// goroutine, bounded by a concurrency gate.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/taskstore"
)

// Manager owns the dispatcher loop and the pool of in-flight runners.
type Manager struct {
	cfg          *config.Config
	store        *taskstore.Store
	logger       *slog.Logger
	runner       *Runner
	gate         *Gate
	pollInterval time.Duration
	wake         chan struct{}

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs a pipeline manager around the given collaborators.
func NewManager(cfg *config.Config, store *taskstore.Store, logger *slog.Logger, synthesizer Synthesizer, footage FootageSource, transcriber Transcriber, engine MediaEngine, notifier notifications.Notifier) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	pollInterval := time.Duration(cfg.Workflow.QueuePollInterval) * time.Second
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logging.WithComponent(logger, "pipeline"),
		runner:       NewRunner(cfg, store, logger, synthesizer, footage, transcriber, engine, notifier),
		gate:         NewGate(cfg.Workflow.MaxConcurrent),
		pollInterval: pollInterval,
		wake:         make(chan struct{}, 1),
	}
}

// Start launches the dispatcher. It returns immediately.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("pipeline already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	go m.dispatch(runCtx)
	return nil
}

// Stop cancels the dispatcher and waits for in-flight runners to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Wake nudges the dispatcher after a submission so new tasks start without
// waiting out the poll interval.
func (m *Manager) Wake() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// InFlight returns the number of tasks currently rendering.
func (m *Manager) InFlight() int {
	return m.gate.InUse()
}

// dispatch holds a gate slot before claiming, so pending tasks stay pending
// until a runner can actually start.
func (m *Manager) dispatch(ctx context.Context) {
	defer m.wg.Done()
	for {
		if err := m.gate.Acquire(ctx); err != nil {
			return
		}

		task, err := m.store.ClaimNextPending(ctx)
		if err != nil {
			m.gate.Release()
			if ctx.Err() != nil {
				return
			}
			m.logger.Error("failed to claim next task", logging.Error(err))
			m.waitForWork(ctx)
			continue
		}
		if task == nil {
			m.gate.Release()
			if !m.waitForWork(ctx) {
				return
			}
			continue
		}

		m.wg.Add(1)
		go func(task *taskstore.Task) {
			defer m.wg.Done()
			defer m.gate.Release()
			m.runner.Run(ctx, task)
		}(task)
	}
}

// waitForWork blocks until the poll interval elapses, a wake signal arrives,
// or shutdown. Returns false on shutdown.
func (m *Manager) waitForWork(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-m.wake:
		return true
	case <-time.After(m.pollInterval):
		return true
	}
}
