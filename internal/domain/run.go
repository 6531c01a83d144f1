package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the current status of a queued run
type RunStatus string

const (
	StatusQueued     RunStatus = "queued"
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
	StatusCancelled  RunStatus = "cancelled"
)

// RunOptions are the per-run knobs. They are assembled by the caller,
// immutable for the duration of the run, and passed by value; collaborators
// never write to them.
type RunOptions struct {
	OutputDir   string        `json:"output_dir"`
	Quality     string        `json:"quality"`
	Concurrency int           `json:"concurrency"`
	TrackDelay  time.Duration `json:"track_delay"`
	Audio       AudioSettings `json:"audio"`
}

// Ext returns the destination file extension for these options
func (o RunOptions) Ext() string {
	if o.Audio.Format == "" {
		return "mp3"
	}
	return o.Audio.Format
}

// FetchOpts projects the run options onto a single fetch
func (o RunOptions) FetchOpts() FetchOptions {
	return FetchOptions{
		Quality:    o.Quality,
		Format:     o.Ext(),
		SampleRate: o.Audio.SampleRate,
		Channels:   o.Audio.Channels,
	}
}

// Run is one pipeline execution tracked by the server queue. The counter
// columns are copied from the final RunStats when the run finishes, so the
// history table answers "what happened" without re-reading the filesystem.
type Run struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	URL          string     `json:"url" gorm:"not null"`
	Kind         RefKind    `json:"kind" gorm:"not null"`
	Status       RunStatus  `json:"status" gorm:"not null;index"`
	OutputDir    string     `json:"output_dir"`
	Quality      string     `json:"quality"`
	Concurrency  int        `json:"concurrency" gorm:"default:0"`
	Priority     int        `json:"priority" gorm:"default:0;index"`
	Total        int        `json:"total" gorm:"default:0"`
	Successful   int        `json:"successful" gorm:"default:0"`
	Failed       int        `json:"failed" gorm:"default:0"`
	Skipped      int        `json:"skipped" gorm:"default:0"`
	RetryCount   int        `json:"retry_count" gorm:"default:0"`
	ErrorMessage string     `json:"error_message,omitempty"`
	ProcessLog   string     `json:"process_log,omitempty" gorm:"type:text"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// NewRun creates a queued run for the given reference
func NewRun(url string, kind RefKind, outputDir, quality string, concurrency int) *Run {
	return &Run{
		ID:          uuid.New().String(),
		URL:         url,
		Kind:        kind,
		Status:      StatusQueued,
		OutputDir:   outputDir,
		Quality:     quality,
		Concurrency: concurrency,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

// Ref rebuilds the playlist reference for this run
func (r *Run) Ref() PlaylistRef {
	return PlaylistRef{URL: r.URL, Kind: r.Kind}
}

// MarkProcessing marks the run as processing
func (r *Run) MarkProcessing() {
	r.Status = StatusProcessing
	now := time.Now()
	r.StartedAt = &now
	r.UpdatedAt = now
}

// MarkCompleted marks the run as completed and records the final counters
func (r *Run) MarkCompleted(stats RunStats) {
	r.Status = StatusCompleted
	r.ApplyStats(stats)
	now := time.Now()
	r.CompletedAt = &now
	r.UpdatedAt = now
}

// MarkFailed marks the run as failed, keeping whatever counters were reached
func (r *Run) MarkFailed(err error, stats RunStats) {
	r.Status = StatusFailed
	r.ErrorMessage = err.Error()
	r.ApplyStats(stats)
	r.UpdatedAt = time.Now()
}

// MarkCancelled marks the run as cancelled
func (r *Run) MarkCancelled() {
	r.Status = StatusCancelled
	r.UpdatedAt = time.Now()
}

// ApplyStats copies ledger counters onto the record
func (r *Run) ApplyStats(stats RunStats) {
	r.Total = stats.Total
	r.Successful = stats.Successful
	r.Failed = stats.Failed
	r.Skipped = stats.Skipped
}

// Stats rebuilds the ledger view of the record
func (r *Run) Stats() RunStats {
	return RunStats{
		Total:      r.Total,
		Successful: r.Successful,
		Failed:     r.Failed,
		Skipped:    r.Skipped,
	}
}

// IncrementRetry increments the retry count
func (r *Run) IncrementRetry() {
	r.RetryCount++
	r.UpdatedAt = time.Now()
}

// CanRetry checks if the run can be retried. Retrying a failed run is cheap:
// tracks that already finished are skipped by the exists check.
func (r *Run) CanRetry(maxRetries int) bool {
	return r.RetryCount < maxRetries && r.Status == StatusFailed
}

// IsTerminal checks if the run is in a terminal state
func (r *Run) IsTerminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusCancelled
}

// IsPending checks if the run is waiting to be picked up
func (r *Run) IsPending() bool {
	return r.Status == StatusQueued
}

// IsProcessing checks if the run is currently executing
func (r *Run) IsProcessing() bool {
	return r.Status == StatusProcessing
}
