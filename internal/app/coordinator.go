package app

import (
	"context"
	"sync"
	"time"

	"github.com/yourusername/tunegrab-go/internal/domain"
	"go.uber.org/zap"
)

// Coordinator drives one full run: resolve the reference, then push every
// track through the processor, either sequentially or with a bounded worker
// pool. It is the single writer of the RunStats ledger.
type Coordinator struct {
	source    domain.MediaSource
	processor *TrackProcessor
	sink      domain.ProgressSink
	logger    *zap.Logger
}

// NewCoordinator creates a run coordinator
func NewCoordinator(source domain.MediaSource, processor *TrackProcessor, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		source:    source,
		processor: processor,
		logger:    logger,
	}
}

// SetProgressSink installs an observer for per-track progress events. A nil
// sink disables reporting.
func (c *Coordinator) SetProgressSink(sink domain.ProgressSink) {
	c.sink = sink
}

// Run executes the pipeline for one reference and returns the final ledger.
// A resolution failure returns the zero ledger and the error; per-track
// failures are counted, never returned.
func (c *Coordinator) Run(ctx context.Context, ref domain.PlaylistRef, opts domain.RunOptions) (domain.RunStats, error) {
	stats := domain.RunStats{}

	tracks, err := c.source.Resolve(ctx, ref)
	if err != nil {
		return stats, err
	}

	collection := ref.Kind == domain.KindPlaylist
	stats.Total = len(tracks)

	c.logger.Info("Reference resolved",
		zap.String("url", ref.URL),
		zap.String("kind", string(ref.Kind)),
		zap.Int("tracks", len(tracks)))

	if opts.Concurrency <= 1 {
		return c.runSequential(ctx, tracks, collection, opts, stats)
	}
	return c.runConcurrent(ctx, tracks, collection, opts, stats)
}

// runSequential processes tracks one at a time in playlist order, pausing
// TrackDelay between consecutive tracks
func (c *Coordinator) runSequential(ctx context.Context, tracks []domain.Track, collection bool, opts domain.RunOptions, stats domain.RunStats) (domain.RunStats, error) {
	for i, track := range tracks {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		// No delay before the first track
		if i > 0 && opts.TrackDelay > 0 {
			select {
			case <-time.After(opts.TrackDelay):
			case <-ctx.Done():
				return stats, ctx.Err()
			}
		}

		outcome := c.processTrack(ctx, track, len(tracks), collection, opts)
		stats.Record(outcome)
	}

	return stats, nil
}

// runConcurrent processes tracks through a fixed pool of workers. Outcomes
// funnel back to this goroutine, which stays the only ledger writer.
func (c *Coordinator) runConcurrent(ctx context.Context, tracks []domain.Track, collection bool, opts domain.RunOptions, stats domain.RunStats) (domain.RunStats, error) {
	jobs := make(chan domain.Track)
	results := make(chan domain.Outcome)

	var wg sync.WaitGroup
	for w := 0; w < opts.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for track := range jobs {
				results <- c.processTrack(ctx, track, len(tracks), collection, opts)
			}
		}()
	}

	// Feeder stops handing out work as soon as the context is done
	go func() {
		defer close(jobs)
		for _, track := range tracks {
			select {
			case jobs <- track:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for outcome := range results {
		stats.Record(outcome)
	}

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

// processTrack runs one track through the processor, bridging its progress
// callbacks into the run's event stream
func (c *Coordinator) processTrack(ctx context.Context, track domain.Track, total int, collection bool, opts domain.RunOptions) domain.Outcome {
	c.emit(domain.ProgressEvent{Track: track, Total: total, Stage: domain.StageStart, Percent: -1})

	var progress domain.ProgressFunc
	if c.sink != nil {
		progress = func(stage domain.ProgressStage, percent float64) {
			c.emit(domain.ProgressEvent{Track: track, Total: total, Stage: stage, Percent: percent})
		}
	}

	outcome := c.processor.Process(ctx, track, collection, opts, progress)

	switch outcome.Kind {
	case domain.OutcomeSuccess:
		c.logger.Info("Track complete",
			zap.String("id", track.ID),
			zap.String("file", outcome.Path))
		c.emit(domain.ProgressEvent{Track: track, Total: total, Stage: domain.StageComplete, Percent: 100})
	case domain.OutcomeSkipped:
		c.logger.Info("Track skipped, already present",
			zap.String("id", track.ID),
			zap.String("file", outcome.Path))
		c.emit(domain.ProgressEvent{Track: track, Total: total, Stage: domain.StageSkipped, Percent: 100})
	case domain.OutcomeFailed:
		c.logger.Warn("Track failed",
			zap.String("id", track.ID),
			zap.Error(outcome.Err))
		c.emit(domain.ProgressEvent{Track: track, Total: total, Stage: domain.StageFailed, Percent: -1, Err: outcome.Err.Error()})
	}

	return outcome
}

func (c *Coordinator) emit(event domain.ProgressEvent) {
	if c.sink != nil {
		c.sink(event)
	}
}
