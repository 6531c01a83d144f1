package domain

// RunRepository defines the interface for run persistence
type RunRepository interface {
	// Create creates a new run
	Create(run *Run) error

	// Update updates an existing run
	Update(run *Run) error

	// Delete deletes a run by ID
	Delete(id string) error

	// FindByID finds a run by ID
	FindByID(id string) (*Run, error)

	// FindByStatus finds runs by status
	FindByStatus(status RunStatus) ([]*Run, error)

	// FindPending finds all queued runs ordered by priority and creation time
	FindPending() ([]*Run, error)

	// FindAll finds all runs with optional filters
	FindAll(filters map[string]interface{}) ([]*Run, error)

	// Count returns the total number of runs
	Count() (int64, error)

	// CountByStatus returns the number of runs by status
	CountByStatus(status RunStatus) (int64, error)

	// GetStats returns aggregate run statistics
	GetStats() (*ServiceStats, error)
}

// ServiceStats aggregates the run table by status, plus the per-track
// counters summed across all recorded runs
type ServiceStats struct {
	Total         int64 `json:"total"`
	Queued        int64 `json:"queued"`
	Processing    int64 `json:"processing"`
	Completed     int64 `json:"completed"`
	Failed        int64 `json:"failed"`
	Cancelled     int64 `json:"cancelled"`
	TracksFetched int64 `json:"tracks_fetched"`
	TracksFailed  int64 `json:"tracks_failed"`
	TracksSkipped int64 `json:"tracks_skipped"`
}
