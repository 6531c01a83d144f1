package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRun(t *testing.T) {
	run := NewRun("https://www.youtube.com/playlist?list=PLx", KindPlaylist, "/music", "320", 2)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "https://www.youtube.com/playlist?list=PLx", run.URL)
	assert.Equal(t, KindPlaylist, run.Kind)
	assert.Equal(t, StatusQueued, run.Status)
	assert.Equal(t, "/music", run.OutputDir)
	assert.Equal(t, "320", run.Quality)
	assert.Equal(t, 2, run.Concurrency)
	assert.Equal(t, 0, run.RetryCount)
}

func TestRun_Ref(t *testing.T) {
	run := NewRun("https://youtu.be/abc", KindSingle, "/music", "320", 1)

	ref := run.Ref()

	assert.Equal(t, "https://youtu.be/abc", ref.URL)
	assert.Equal(t, KindSingle, ref.Kind)
}

func TestRun_MarkProcessing(t *testing.T) {
	run := NewRun("https://youtu.be/abc", KindSingle, "/music", "320", 1)

	run.MarkProcessing()

	assert.Equal(t, StatusProcessing, run.Status)
	assert.NotNil(t, run.StartedAt)
}

func TestRun_MarkCompleted(t *testing.T) {
	run := NewRun("https://youtu.be/abc", KindSingle, "/music", "320", 1)

	run.MarkCompleted(RunStats{Total: 5, Successful: 4, Failed: 1})

	assert.Equal(t, StatusCompleted, run.Status)
	assert.Equal(t, 5, run.Total)
	assert.Equal(t, 4, run.Successful)
	assert.Equal(t, 1, run.Failed)
	assert.NotNil(t, run.CompletedAt)
}

func TestRun_MarkFailed(t *testing.T) {
	run := NewRun("https://youtu.be/abc", KindSingle, "/music", "320", 1)

	run.MarkFailed(errors.New("playlist unreachable"), RunStats{})

	assert.Equal(t, StatusFailed, run.Status)
	assert.Equal(t, "playlist unreachable", run.ErrorMessage)
	assert.Equal(t, 0, run.Total)
}

func TestRun_StatsRoundTrip(t *testing.T) {
	run := NewRun("https://youtu.be/abc", KindSingle, "/music", "320", 1)
	run.ApplyStats(RunStats{Total: 7, Successful: 5, Failed: 1, Skipped: 1})

	stats := run.Stats()

	assert.Equal(t, 7, stats.Total)
	assert.Equal(t, 5, stats.Successful)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Skipped)
	assert.True(t, stats.Consistent())
}

func TestRun_IncrementRetry(t *testing.T) {
	run := NewRun("https://youtu.be/abc", KindSingle, "/music", "320", 1)

	run.IncrementRetry()
	assert.Equal(t, 1, run.RetryCount)

	run.IncrementRetry()
	assert.Equal(t, 2, run.RetryCount)
}

func TestRun_CanRetry(t *testing.T) {
	run := NewRun("https://youtu.be/abc", KindSingle, "/music", "320", 1)
	run.Status = StatusFailed

	assert.True(t, run.CanRetry(3))

	run.RetryCount = 3
	assert.False(t, run.CanRetry(3))

	run.RetryCount = 0
	run.Status = StatusCompleted
	assert.False(t, run.CanRetry(3))
}

func TestRun_IsTerminal(t *testing.T) {
	run := NewRun("https://youtu.be/abc", KindSingle, "/music", "320", 1)

	assert.False(t, run.IsTerminal())

	run.Status = StatusCompleted
	assert.True(t, run.IsTerminal())

	run.Status = StatusCancelled
	assert.True(t, run.IsTerminal())

	run.Status = StatusFailed
	assert.False(t, run.IsTerminal())
}

func TestResolutionError(t *testing.T) {
	inner := errors.New("HTTP 404")
	err := &ResolutionError{Ref: "https://www.youtube.com/playlist?list=PLx", Err: inner}

	assert.Contains(t, err.Error(), "PLx")
	assert.Contains(t, err.Error(), "404")
	assert.ErrorIs(t, err, inner)

	var resErr *ResolutionError
	assert.ErrorAs(t, error(err), &resErr)
}

func TestResolutionError_WrapsNoTracks(t *testing.T) {
	err := &ResolutionError{Ref: "https://x", Err: ErrNoTracks}
	assert.ErrorIs(t, err, ErrNoTracks)
}
