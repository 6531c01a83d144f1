package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/tunegrab-go/internal/domain"
	"github.com/yourusername/tunegrab-go/internal/infrastructure"
	"go.uber.org/zap"
)

// RunManager executes queued runs through the coordinator and owns their
// lifecycle state transitions
type RunManager struct {
	repo        domain.RunRepository
	coordinator *Coordinator
	notifier    *infrastructure.NotificationService
	config      *domain.Config
	logger      *zap.Logger
	semaphore   chan struct{} // bounds runs executing at once
	cancels     map[string]context.CancelFunc
	mu          sync.RWMutex
}

// NewRunManager creates a new run manager
func NewRunManager(
	repo domain.RunRepository,
	coordinator *Coordinator,
	notifier *infrastructure.NotificationService,
	config *domain.Config,
	logger *zap.Logger,
) *RunManager {
	limit := config.Runner.ConcurrentLimit
	if limit < 1 {
		limit = 1
	}

	return &RunManager{
		repo:        repo,
		coordinator: coordinator,
		notifier:    notifier,
		config:      config,
		logger:      logger,
		semaphore:   make(chan struct{}, limit),
		cancels:     make(map[string]context.CancelFunc),
	}
}

// ProcessRun executes a single run end to end: resolve, fetch every track,
// retry the whole pipeline on failure. Tracks finished by an earlier attempt
// are skipped by the exists check, so retries only redo what failed.
func (rm *RunManager) ProcessRun(ctx context.Context, run *domain.Run) error {
	// Acquire a run slot
	select {
	case rm.semaphore <- struct{}{}:
		defer func() { <-rm.semaphore }()
	case <-ctx.Done():
		return ctx.Err()
	}

	runCtx, cancel := context.WithCancel(ctx)
	rm.mu.Lock()
	rm.cancels[run.ID] = cancel
	rm.mu.Unlock()

	defer func() {
		cancel()
		rm.mu.Lock()
		delete(rm.cancels, run.ID)
		rm.mu.Unlock()
	}()

	rm.logger.Info("Processing run",
		zap.String("id", run.ID),
		zap.String("url", run.URL),
		zap.String("kind", string(run.Kind)))

	// Mark as processing
	run.MarkProcessing()
	if err := rm.repo.Update(run); err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}

	rm.notifier.NotifyRunStarted(run.URL, run.Kind)

	ref := run.Ref()
	opts := rm.optionsFor(run)

	// Attempt the pipeline with retries
	var stats domain.RunStats
	var runErr error
	for attempt := 0; attempt <= rm.config.Runner.MaxRetries; attempt++ {
		if attempt > 0 {
			rm.logger.Info("Retrying run",
				zap.String("id", run.ID),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", rm.config.Runner.MaxRetries))

			// Wait before retry
			select {
			case <-time.After(rm.config.Runner.RetryDelay):
			case <-runCtx.Done():
			}
			if runCtx.Err() != nil {
				break
			}

			run.IncrementRetry()
			rm.repo.Update(run)
		}

		stats, runErr = rm.coordinator.Run(runCtx, ref, opts)

		if runCtx.Err() != nil {
			break
		}
		if runErr == nil && stats.Failed == 0 {
			break
		}

		rm.logger.Warn("Run attempt unsuccessful",
			zap.String("id", run.ID),
			zap.Int("attempt", attempt),
			zap.Int("failed_tracks", stats.Failed),
			zap.Error(runErr))
	}

	// Cancelled: keep whatever counters were reached
	if runCtx.Err() != nil {
		run.ApplyStats(stats)
		run.MarkCancelled()
		if err := rm.repo.Update(run); err != nil {
			rm.logger.Error("Failed to update run status", zap.Error(err))
		}

		rm.logger.Info("Run cancelled",
			zap.String("id", run.ID),
			zap.Int("fetched", stats.Successful),
			zap.Int("skipped", stats.Skipped))
		return runCtx.Err()
	}

	// Resolution failed on every attempt
	if runErr != nil {
		run.MarkFailed(runErr, stats)
		if err := rm.repo.Update(run); err != nil {
			rm.logger.Error("Failed to update run status", zap.Error(err))
		}

		rm.logger.Error("Run failed after retries",
			zap.String("id", run.ID),
			zap.String("url", run.URL),
			zap.Error(runErr))

		rm.notifier.NotifyRunFailed(run.URL, runErr)
		return runErr
	}

	// Some tracks never made it; mark failed so the run stays retryable
	if stats.Failed > 0 {
		err := fmt.Errorf("%d of %d tracks failed", stats.Failed, stats.Total)
		run.MarkFailed(err, stats)
		if uerr := rm.repo.Update(run); uerr != nil {
			rm.logger.Error("Failed to update run status", zap.Error(uerr))
		}

		rm.logger.Warn("Run finished with failed tracks",
			zap.String("id", run.ID),
			zap.Int("total", stats.Total),
			zap.Int("failed", stats.Failed))

		rm.notifier.NotifyRunFailed(run.URL, err)
		return err
	}

	// Clean finish
	run.MarkCompleted(stats)
	if err := rm.repo.Update(run); err != nil {
		rm.logger.Error("Failed to update run status", zap.Error(err))
	}

	rm.logger.Info("Run completed",
		zap.String("id", run.ID),
		zap.String("url", run.URL),
		zap.Int("total", stats.Total),
		zap.Int("fetched", stats.Successful),
		zap.Int("skipped", stats.Skipped))

	rm.notifier.NotifyRunCompleted(run.URL, stats)
	return nil
}

// CancelRun cancels a run. An executing run is interrupted through its
// context and finalized by ProcessRun; a queued one is marked directly.
func (rm *RunManager) CancelRun(id string) error {
	run, err := rm.repo.FindByID(id)
	if err != nil {
		return fmt.Errorf("run not found: %w", err)
	}

	if run.IsTerminal() {
		return fmt.Errorf("run already in terminal state: %s", run.Status)
	}

	rm.mu.RLock()
	cancel, inFlight := rm.cancels[id]
	rm.mu.RUnlock()

	if inFlight {
		cancel()
		rm.logger.Info("Run cancellation requested", zap.String("id", id))
		return nil
	}

	run.MarkCancelled()
	if err := rm.repo.Update(run); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rm.logger.Info("Run cancelled", zap.String("id", id))
	return nil
}

// RetryRun puts a failed run back on the queue
func (rm *RunManager) RetryRun(id string) error {
	run, err := rm.repo.FindByID(id)
	if err != nil {
		return fmt.Errorf("run not found: %w", err)
	}

	if run.Status != domain.StatusFailed {
		return fmt.Errorf("run is not in failed state: %s", run.Status)
	}

	// Reset run state
	run.Status = domain.StatusQueued
	run.RetryCount = 0
	run.ErrorMessage = ""
	run.UpdatedAt = time.Now()

	if err := rm.repo.Update(run); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rm.logger.Info("Run queued for retry", zap.String("id", id))
	return nil
}

// optionsFor assembles the effective options for a run: record fields win,
// configuration fills the gaps
func (rm *RunManager) optionsFor(run *domain.Run) domain.RunOptions {
	opts := domain.RunOptionsFromConfig(rm.config)
	if run.OutputDir != "" {
		opts.OutputDir = run.OutputDir
	}
	if run.Quality != "" {
		opts.Quality = run.Quality
	}
	if run.Concurrency > 0 {
		opts.Concurrency = run.Concurrency
	}
	return opts
}
