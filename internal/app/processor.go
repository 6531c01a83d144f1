package app

import (
	"context"
	"fmt"
	"os"

	"github.com/yourusername/tunegrab-go/internal/domain"
	"go.uber.org/zap"
)

// TrackProcessor turns one resolved track into exactly one Outcome. It owns
// the skip-on-exists check and destination naming; the media source only ever
// sees tracks that actually need fetching.
type TrackProcessor struct {
	source domain.MediaSource
	logger *zap.Logger
}

// NewTrackProcessor creates a track processor backed by the given source
func NewTrackProcessor(source domain.MediaSource, logger *zap.Logger) *TrackProcessor {
	return &TrackProcessor{
		source: source,
		logger: logger,
	}
}

// Process handles a single track. It never returns an error: every failure is
// folded into the Outcome so the caller's ledger stays the single record of
// what happened.
func (p *TrackProcessor) Process(ctx context.Context, track domain.Track, collection bool, opts domain.RunOptions, progress domain.ProgressFunc) domain.Outcome {
	destPath := domain.DestinationPath(opts.OutputDir, track, collection, opts.Ext())

	// Skip check comes first so re-runs never touch the source
	if _, err := os.Stat(destPath); err == nil {
		p.logger.Debug("Track already present, skipping",
			zap.String("id", track.ID),
			zap.String("file", destPath))
		return domain.Skipped(destPath)
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return domain.Failed(fmt.Errorf("creating output directory: %w", err))
	}

	if err := p.source.Fetch(ctx, track, destPath, opts.FetchOpts(), progress); err != nil {
		return domain.Failed(fmt.Errorf("fetching %q: %w", track.Title, err))
	}

	return domain.Success(destPath)
}
