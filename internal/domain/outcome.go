package domain

// OutcomeKind classifies what happened to one track
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeFailed  OutcomeKind = "failed"
	OutcomeSkipped OutcomeKind = "skipped"
)

// Outcome is the result of processing a single track. Exactly one Outcome is
// produced per track per run.
type Outcome struct {
	Kind OutcomeKind
	Path string // destination file (success), or the existing file (skipped)
	Err  error  // set only for OutcomeFailed
}

// Success builds a success outcome for the file written at path
func Success(path string) Outcome {
	return Outcome{Kind: OutcomeSuccess, Path: path}
}

// Failed builds a failure outcome carrying the underlying error
func Failed(err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Err: err}
}

// Skipped builds a skip outcome pointing at the file that already exists
func Skipped(path string) Outcome {
	return Outcome{Kind: OutcomeSkipped, Path: path}
}

// RunStats is the ledger of one run. It has a single writer, the run
// coordinator, and is handed to the caller as the final report. Total is set
// right after resolution, the other counters accumulate one increment per
// processed track, so Total == Successful+Failed+Skipped holds at the end of
// an uninterrupted run.
type RunStats struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
}

// Record increments the counter matching the outcome
func (s *RunStats) Record(o Outcome) {
	switch o.Kind {
	case OutcomeSuccess:
		s.Successful++
	case OutcomeFailed:
		s.Failed++
	case OutcomeSkipped:
		s.Skipped++
	}
}

// Consistent reports whether the counters add up to the total
func (s *RunStats) Consistent() bool {
	return s.Total == s.Successful+s.Failed+s.Skipped
}
