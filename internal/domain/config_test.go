package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NotNil(t, config)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 8090, config.Server.Port)
	assert.Equal(t, "mp3", config.Audio.Format)
	assert.Equal(t, "320", config.Audio.Bitrate)
	assert.Equal(t, 44100, config.Audio.SampleRate)
	assert.Equal(t, 2, config.Audio.Channels)
	assert.Equal(t, "ytdlp", config.Source.Backend)
	assert.Equal(t, "yt-dlp", config.Source.YTDLPBinary)
	assert.Equal(t, "ffmpeg", config.Source.FFmpegBinary)
	assert.Equal(t, 1, config.Runner.Concurrency)
	assert.Equal(t, time.Second, config.Runner.TrackDelay)
	assert.Equal(t, 3, config.Runner.MaxRetries)
	assert.Equal(t, 30*time.Second, config.Runner.RetryDelay)
	assert.Equal(t, 10*time.Second, config.Queue.CheckInterval)
	assert.True(t, config.Notification.Enabled)
	assert.Equal(t, "info", config.Logging.Level)
}

func TestRunOptionsFromConfig(t *testing.T) {
	config := DefaultConfig()
	config.Output.Directory = "/tmp/music"
	config.Audio.Bitrate = "192"
	config.Runner.Concurrency = 4

	opts := RunOptionsFromConfig(config)

	assert.Equal(t, "/tmp/music", opts.OutputDir)
	assert.Equal(t, "192", opts.Quality)
	assert.Equal(t, 4, opts.Concurrency)
	assert.Equal(t, time.Second, opts.TrackDelay)
	assert.Equal(t, "mp3", opts.Ext())
}

func TestRunOptions_FetchOpts(t *testing.T) {
	opts := RunOptions{
		Quality: "256",
		Audio:   AudioSettings{Format: "mp3", SampleRate: 48000, Channels: 2},
	}

	fo := opts.FetchOpts()

	assert.Equal(t, "256", fo.Quality)
	assert.Equal(t, "mp3", fo.Format)
	assert.Equal(t, 48000, fo.SampleRate)
	assert.Equal(t, 2, fo.Channels)
}

func TestRunOptions_ExtDefaultsToMP3(t *testing.T) {
	opts := RunOptions{}
	assert.Equal(t, "mp3", opts.Ext())
}
