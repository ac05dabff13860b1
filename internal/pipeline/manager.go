// Package pipeline runs submitted videos through transcript acquisition and
// content generation on a bounded worker pool.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"recast/internal/config"
	"recast/internal/logging"
	"recast/internal/services"
	"recast/internal/store"
)

// Manager owns the worker pool that drains the job queue.
type Manager struct {
	cfg          *config.Config
	store        *store.Store
	orchestrator *Orchestrator
	logger       *slog.Logger
	workers      int
	pollInterval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs a manager over the store and orchestrator.
func NewManager(cfg *config.Config, st *store.Store, orchestrator *Orchestrator, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	workers := cfg.Workflow.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Manager{
		cfg:          cfg,
		store:        st,
		orchestrator: orchestrator,
		logger:       logging.WithComponent(logger, "pipeline"),
		workers:      workers,
		pollInterval: cfg.QueuePollInterval(),
	}
}

// Start launches the worker pool.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("pipeline already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	m.wg.Add(m.workers)
	for i := 0; i < m.workers; i++ {
		go m.runWorker(runCtx, i)
	}
	m.logger.Info("pipeline started", logging.Int("workers", m.workers))
	return nil
}

// Stop cancels the workers and waits for in-flight jobs to unwind.
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
	m.logger.Info("pipeline stopped")
}

func (m *Manager) runWorker(ctx context.Context, id int) {
	defer m.wg.Done()
	log := m.logger.With(logging.Int("worker", id))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, video, err := m.store.NextRunnable(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("failed to fetch next job", logging.Error(err))
			if sleepErr := services.SleepWithContext(ctx, m.cfg.ErrorRetryInterval()); sleepErr != nil {
				return
			}
			continue
		}
		if job == nil {
			if sleepErr := services.SleepWithContext(ctx, m.pollInterval); sleepErr != nil {
				return
			}
			continue
		}

		// The conditional PENDING to PROCESSING update is the claim; a
		// worker that loses simply polls again.
		claimed, err := m.store.ClaimVideo(ctx, video.ID)
		if err != nil {
			log.Error("claim failed", logging.Error(err))
			continue
		}
		if !claimed {
			continue
		}

		if err := m.orchestrator.Run(ctx, job, video); err != nil {
			if errors.Is(err, context.Canceled) {
				// Shutdown mid-job: mark both records FAILED so the
				// operator can requeue them with a retry.
				m.markFailed(job, video, "interrupted by shutdown")
				return
			}
			log.Error("job failed",
				logging.String(logging.FieldJobID, job.ID),
				logging.String(logging.FieldVideoID, video.ID),
				logging.Error(err))
			m.markFailed(job, video, err.Error())
		}
	}
}

// markFailed records terminal failure state. Best effort: a store error here
// is logged, never propagated.
func (m *Manager) markFailed(job *store.ProcessingJob, video *store.VideoSource, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.store.SetJobStatus(ctx, job.ID, store.JobFailed, message); err != nil {
		m.logger.Error("failed to record job failure",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err))
	}
	if err := m.store.SetVideoStatus(ctx, video.ID, store.VideoFailed, message); err != nil {
		m.logger.Error("failed to record video failure",
			logging.String(logging.FieldVideoID, video.ID),
			logging.Error(err))
	}
}
