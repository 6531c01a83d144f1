package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Output       OutputConfig       `mapstructure:"output"`
	Audio        AudioSettings      `mapstructure:"audio"`
	Source       SourceConfig       `mapstructure:"source"`
	Runner       RunnerConfig       `mapstructure:"runner"`
	Queue        QueueConfig        `mapstructure:"queue"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// OutputConfig contains output filesystem configuration
type OutputConfig struct {
	Directory string `mapstructure:"directory"`
	LogsDir   string `mapstructure:"logs_dir"`
	ConfigDir string `mapstructure:"config_dir"`
}

// AudioSettings describe the normalized artifact every track is converted to
type AudioSettings struct {
	Format     string `mapstructure:"format"`      // mp3
	Bitrate    string `mapstructure:"bitrate"`     // kbps, e.g. "320"
	SampleRate int    `mapstructure:"sample_rate"` // Hz
	Channels   int    `mapstructure:"channels"`
}

// SourceConfig selects and configures the media source backend
type SourceConfig struct {
	Backend      string        `mapstructure:"backend"` // native or ytdlp
	YTDLPBinary  string        `mapstructure:"ytdlp_binary"`
	FFmpegBinary string        `mapstructure:"ffmpeg_binary"`
	CookieFile   string        `mapstructure:"cookie_file"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
}

// RunnerConfig controls how the pipeline schedules tracks and how the
// server retries whole runs
type RunnerConfig struct {
	Concurrency     int           `mapstructure:"concurrency"`      // 1 = sequential
	TrackDelay      time.Duration `mapstructure:"track_delay"`      // pause between tracks, sequential mode only
	MaxRetries      int           `mapstructure:"max_retries"`      // run-level retries (server mode)
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
	ConcurrentLimit int           `mapstructure:"concurrent_limit"` // runs processed at once
}

// QueueConfig contains queue-related configuration
type QueueConfig struct {
	DatabasePath    string        `mapstructure:"database_path"`
	CheckInterval   time.Duration `mapstructure:"check_interval"`
	AutoExitOnEmpty bool          `mapstructure:"auto_exit_on_empty"`
	EmptyWaitTime   time.Duration `mapstructure:"empty_wait_time"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Sound   bool   `mapstructure:"sound"`
	Method  string `mapstructure:"method"` // osascript, notify-send, etc.
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8090,
		},
		Output: OutputConfig{
			Directory: "$HOME/Music/tunegrab",
			LogsDir:   "$HOME/.config/tunegrab/logs",
			ConfigDir: "$HOME/.config/tunegrab",
		},
		Audio: AudioSettings{
			Format:     "mp3",
			Bitrate:    "320",
			SampleRate: 44100,
			Channels:   2,
		},
		Source: SourceConfig{
			Backend:      "ytdlp",
			YTDLPBinary:  "yt-dlp",
			FFmpegBinary: "ffmpeg",
			CookieFile:   "",
			HTTPTimeout:  2 * time.Minute,
		},
		Runner: RunnerConfig{
			Concurrency:     1,
			TrackDelay:      time.Second,
			MaxRetries:      3,
			RetryDelay:      30 * time.Second,
			ConcurrentLimit: 1,
		},
		Queue: QueueConfig{
			DatabasePath:    "$HOME/.config/tunegrab/runs.db",
			CheckInterval:   10 * time.Second,
			AutoExitOnEmpty: false,
			EmptyWaitTime:   5 * time.Minute,
		},
		Notification: NotificationConfig{
			Enabled: true,
			Sound:   true,
			Method:  "osascript",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}

// RunOptionsFromConfig assembles the per-run option block from the loaded
// configuration, leaving room for the CLI or API to override fields
func RunOptionsFromConfig(cfg *Config) RunOptions {
	return RunOptions{
		OutputDir:   cfg.Output.Directory,
		Quality:     cfg.Audio.Bitrate,
		Concurrency: cfg.Runner.Concurrency,
		TrackDelay:  cfg.Runner.TrackDelay,
		Audio:       cfg.Audio,
	}
}
