package domain

// ProgressStage labels the discrete points of one track's lifecycle
type ProgressStage string

const (
	StageStart       ProgressStage = "start"
	StageFetching    ProgressStage = "fetching"
	StageTranscoding ProgressStage = "transcoding"
	StageComplete    ProgressStage = "complete"
	StageSkipped     ProgressStage = "skipped"
	StageFailed      ProgressStage = "failed"
)

// ProgressFunc receives per-track progress from a media source. percent is
// in [0,100] and -1 when the backend cannot estimate it. Implementations
// must treat it as fire-and-forget: it carries no control-flow authority
// and may be nil.
type ProgressFunc func(stage ProgressStage, percent float64)

// ProgressEvent is one entry of the run's event stream
type ProgressEvent struct {
	Track   Track         `json:"track"`
	Total   int           `json:"total"`
	Stage   ProgressStage `json:"stage"`
	Percent float64       `json:"percent"`
	Err     string        `json:"error,omitempty"`
}

// ProgressSink consumes run progress events. A nil sink disables reporting;
// the pipeline's behavior is identical either way.
type ProgressSink func(ProgressEvent)
