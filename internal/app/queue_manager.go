package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/tunegrab-go/internal/domain"
	"github.com/yourusername/tunegrab-go/internal/infrastructure"
	"github.com/yourusername/tunegrab-go/pkg/logger"
)

// QueueManager polls the run queue and dispatches pending runs to the
// run manager
type QueueManager struct {
	repo        domain.RunRepository
	runMgr      *RunManager
	notifier    *infrastructure.NotificationService
	config      *domain.QueueConfig
	multiLogger *logger.MultiLogger
	mu          sync.RWMutex
	running     bool
	sawWork     bool
	inflight    map[string]struct{} // runs handed to a worker, keyed by ID
	stopChan    chan struct{}
	exitChan    chan struct{}
	workerWg    sync.WaitGroup
}

// NewQueueManager creates a new queue manager
func NewQueueManager(
	repo domain.RunRepository,
	runMgr *RunManager,
	notifier *infrastructure.NotificationService,
	config *domain.QueueConfig,
	multiLogger *logger.MultiLogger,
) *QueueManager {
	return &QueueManager{
		repo:        repo,
		runMgr:      runMgr,
		notifier:    notifier,
		config:      config,
		multiLogger: multiLogger,
		inflight:    make(map[string]struct{}),
		stopChan:    make(chan struct{}),
		exitChan:    make(chan struct{}),
	}
}

// Start starts the queue processor
func (qm *QueueManager) Start(ctx context.Context) error {
	qm.mu.Lock()
	if qm.running {
		qm.mu.Unlock()
		return fmt.Errorf("queue manager already running")
	}
	qm.running = true
	qm.mu.Unlock()

	if qm.multiLogger != nil {
		qm.multiLogger.LogRunEvent("queue_started")
	}

	qm.workerWg.Add(1)
	go qm.processQueue(ctx)

	return nil
}

// Stop stops the queue processor
func (qm *QueueManager) Stop() error {
	qm.mu.Lock()
	if !qm.running {
		qm.mu.Unlock()
		return fmt.Errorf("queue manager not running")
	}
	qm.running = false
	qm.mu.Unlock()

	if qm.multiLogger != nil {
		qm.multiLogger.LogRunEvent("queue_stopped")
	}
	close(qm.stopChan)
	qm.workerWg.Wait()

	return nil
}

// IsRunning returns whether the queue manager is running
func (qm *QueueManager) IsRunning() bool {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	return qm.running
}

// WaitForExit returns a channel that is closed when the processor exits on
// its own after the queue stayed empty past the configured window
func (qm *QueueManager) WaitForExit() <-chan struct{} {
	return qm.exitChan
}

// AddRun queues a run for the given reference. An empty kind is detected
// from the URL.
func (qm *QueueManager) AddRun(url string, kind domain.RefKind, outputDir, quality string, concurrency int) (*domain.Run, error) {
	if kind == "" {
		kind = domain.DetectRefKind(url)
	}
	if !domain.ValidateRefKind(kind) {
		return nil, fmt.Errorf("invalid reference kind: %s", kind)
	}

	run := domain.NewRun(url, kind, outputDir, quality, concurrency)

	if err := qm.repo.Create(run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	if qm.multiLogger != nil {
		qm.multiLogger.LogRunEvent("run_queued",
			zap.String("id", run.ID),
			zap.String("url", url),
			zap.String("kind", string(kind)))
	}

	qm.notifier.NotifyRunQueued(url, kind)

	return run, nil
}

// GetRun retrieves a run by ID
func (qm *QueueManager) GetRun(id string) (*domain.Run, error) {
	return qm.repo.FindByID(id)
}

// ListRuns lists all runs with optional filters
func (qm *QueueManager) ListRuns(filters map[string]interface{}) ([]*domain.Run, error) {
	return qm.repo.FindAll(filters)
}

// GetStats returns queue statistics
func (qm *QueueManager) GetStats() (*domain.ServiceStats, error) {
	return qm.repo.GetStats()
}

// DeleteRun removes a run record. Active runs must be cancelled first.
func (qm *QueueManager) DeleteRun(id string) error {
	run, err := qm.repo.FindByID(id)
	if err != nil {
		return fmt.Errorf("run not found: %w", err)
	}

	if run.IsPending() || run.IsProcessing() {
		return fmt.Errorf("run is %s, cancel it first", run.Status)
	}

	return qm.repo.Delete(id)
}

// processQueue polls for pending runs and dispatches them
func (qm *QueueManager) processQueue(ctx context.Context) {
	defer qm.workerWg.Done()

	ticker := time.NewTicker(qm.config.CheckInterval)
	defer ticker.Stop()

	emptyStartTime := time.Time{}

	for {
		select {
		case <-ctx.Done():
			if qm.multiLogger != nil {
				qm.multiLogger.LogRunEvent("queue_processor_stopped",
					zap.String("reason", "context_cancelled"))
			}
			return
		case <-qm.stopChan:
			if qm.multiLogger != nil {
				qm.multiLogger.LogRunEvent("queue_processor_stopped",
					zap.String("reason", "stop_signal"))
			}
			return
		case <-ticker.C:
			pending, err := qm.repo.FindPending()
			if err != nil {
				if qm.multiLogger != nil {
					qm.multiLogger.LogAppError("Failed to fetch pending runs", zap.Error(err))
				}
				continue
			}

			// Claim runs not yet handed to a worker. A run stays pending in
			// the database until ProcessRun picks it up, so consecutive polls
			// can see it again.
			qm.mu.Lock()
			var ready []*domain.Run
			for _, run := range pending {
				if _, busy := qm.inflight[run.ID]; busy {
					continue
				}
				qm.inflight[run.ID] = struct{}{}
				ready = append(ready, run)
			}
			busy := len(qm.inflight) - len(ready)
			qm.mu.Unlock()

			if len(pending) == 0 && busy == 0 {
				// Queue fully drained
				if emptyStartTime.IsZero() {
					emptyStartTime = time.Now()
					if qm.multiLogger != nil {
						qm.multiLogger.LogRunEvent("queue_empty")
					}
					qm.mu.Lock()
					hadWork := qm.sawWork
					qm.sawWork = false
					qm.mu.Unlock()
					if hadWork {
						qm.notifier.NotifyQueueEmpty()
					}
				} else if qm.config.AutoExitOnEmpty && time.Since(emptyStartTime) > qm.config.EmptyWaitTime {
					if qm.multiLogger != nil {
						qm.multiLogger.LogRunEvent("queue_auto_exit",
							zap.String("reason", "empty_timeout"))
					}
					close(qm.exitChan)
					return
				}
				continue
			}

			// Reset empty timer
			emptyStartTime = time.Time{}

			qm.mu.Lock()
			qm.sawWork = true
			qm.mu.Unlock()

			for _, run := range ready {
				r := run

				if qm.multiLogger != nil {
					qm.multiLogger.LogRunEvent("run_started",
						zap.String("id", r.ID),
						zap.String("url", r.URL),
						zap.String("kind", string(r.Kind)))
				}

				// One goroutine per run; the semaphore in RunManager bounds
				// how many actually execute
				qm.workerWg.Add(1)
				go func(run *domain.Run) {
					defer qm.workerWg.Done()
					defer func() {
						qm.mu.Lock()
						delete(qm.inflight, run.ID)
						qm.mu.Unlock()
					}()

					if err := qm.runMgr.ProcessRun(ctx, run); err != nil {
						if qm.multiLogger != nil {
							qm.multiLogger.LogRunEvent("run_failed",
								zap.String("id", run.ID),
								zap.Error(err))
							qm.multiLogger.LogAppError("Failed to process run",
								zap.String("id", run.ID),
								zap.Error(err))
						}
					} else {
						if qm.multiLogger != nil {
							qm.multiLogger.LogRunEvent("run_completed",
								zap.String("id", run.ID),
								zap.String("status", string(run.Status)),
								zap.Int("total", run.Total),
								zap.Int("fetched", run.Successful),
								zap.Int("skipped", run.Skipped))
						}
					}
				}(r)
			}
		}
	}
}
