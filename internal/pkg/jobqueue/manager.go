package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tubtip/tubtip/internal/pkg/logger"
)

// Manager runs a queue together with its periodic housekeeping.
type Manager struct {
	queue         *Queue
	statsInterval time.Duration
	log           zerolog.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewManager wraps queue. statsInterval controls how often queue depth is
// logged; zero disables it.
func NewManager(queue *Queue, statsInterval time.Duration) *Manager {
	return &Manager{
		queue:         queue,
		statsInterval: statsInterval,
		log:           logger.WithComponent("jobqueue.manager"),
	}
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	m.stopCh = make(chan struct{})
	m.running = true
	m.queue.Start()

	if m.statsInterval > 0 {
		m.wg.Add(1)
		go m.statsWorker()
	}
	m.log.Info().Msg("started")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	close(m.stopCh)
	m.running = false
	m.wg.Wait()
	m.queue.Stop()
	m.log.Info().Msg("stopped")
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) statsWorker() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.logStats(context.Background())
		}
	}
}

func (m *Manager) logStats(ctx context.Context) {
	pending, err := m.queue.GetQueueSize(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("read queue size")
		return
	}
	processing, _ := m.queue.GetProcessingSize(ctx)
	stats, _ := m.queue.GetJobStats(ctx)
	m.log.Debug().
		Int64("pending", pending).
		Int64("processing", processing).
		Int64("completed", stats[JobStatusCompleted]).
		Int64("failed", stats[JobStatusFailed]).
		Msg("queue stats")
}
