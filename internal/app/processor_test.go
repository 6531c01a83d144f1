package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/tunegrab-go/internal/domain"
	"go.uber.org/zap"
)

func TestProcess_FetchSuccess(t *testing.T) {
	source := newStubSource("My Song")
	p := NewTrackProcessor(source, zap.NewNop())
	opts := testOpts(t, 1)

	outcome := p.Process(context.Background(), source.tracks[0], true, opts, nil)

	assert.Equal(t, domain.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, filepath.Join(opts.OutputDir, "001_My Song.mp3"), outcome.Path)
	assert.NoError(t, outcome.Err)

	_, err := os.Stat(outcome.Path)
	assert.NoError(t, err, "the converted file exists at the reported path")
}

func TestProcess_SkipsExisting(t *testing.T) {
	source := newStubSource("My Song")
	p := NewTrackProcessor(source, zap.NewNop())
	opts := testOpts(t, 1)

	dest := domain.DestinationPath(opts.OutputDir, source.tracks[0], true, opts.Ext())
	require.NoError(t, os.WriteFile(dest, []byte("present"), 0644))

	outcome := p.Process(context.Background(), source.tracks[0], true, opts, nil)

	assert.Equal(t, domain.OutcomeSkipped, outcome.Kind)
	assert.Equal(t, dest, outcome.Path)
	assert.Empty(t, source.calls(), "skip decision happens before any source call")
}

func TestProcess_FetchFailure(t *testing.T) {
	source := newStubSource("My Song")
	source.failFor["vid1"] = errors.New("stream error")
	p := NewTrackProcessor(source, zap.NewNop())
	opts := testOpts(t, 1)

	outcome := p.Process(context.Background(), source.tracks[0], true, opts, nil)

	assert.Equal(t, domain.OutcomeFailed, outcome.Kind)
	require.Error(t, outcome.Err)
	assert.ErrorContains(t, outcome.Err, "stream error")
	assert.ErrorContains(t, outcome.Err, "My Song", "the error names the track")
}

func TestProcess_SingleNamingHasNoPrefix(t *testing.T) {
	source := newStubSource("My Song")
	p := NewTrackProcessor(source, zap.NewNop())
	opts := testOpts(t, 1)

	outcome := p.Process(context.Background(), source.tracks[0], false, opts, nil)

	assert.Equal(t, domain.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, filepath.Join(opts.OutputDir, "My Song.mp3"), outcome.Path)
}

func TestProcess_CreatesOutputDir(t *testing.T) {
	source := newStubSource("My Song")
	p := NewTrackProcessor(source, zap.NewNop())
	opts := testOpts(t, 1)
	opts.OutputDir = filepath.Join(opts.OutputDir, "nested", "collection")

	outcome := p.Process(context.Background(), source.tracks[0], true, opts, nil)

	require.Equal(t, domain.OutcomeSuccess, outcome.Kind)
	info, err := os.Stat(opts.OutputDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestProcess_ForwardsProgress(t *testing.T) {
	source := newStubSource("My Song")
	p := NewTrackProcessor(source, zap.NewNop())
	opts := testOpts(t, 1)

	var stages []domain.ProgressStage
	progress := func(stage domain.ProgressStage, percent float64) {
		stages = append(stages, stage)
	}

	outcome := p.Process(context.Background(), source.tracks[0], true, opts, progress)

	require.Equal(t, domain.OutcomeSuccess, outcome.Kind)
	assert.Contains(t, stages, domain.StageFetching, "source progress reaches the caller")
}
