package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoTracks is reported when a playlist resolves but contains no usable
// entries. It is always wrapped in a ResolutionError.
var ErrNoTracks = errors.New("no usable tracks in playlist")

// ResolutionError means the playlist reference could not be turned into a
// track list: bad reference, unreachable catalog, or zero usable entries.
// It is fatal to the run and distinct from an empty-but-successful result.
type ResolutionError struct {
	Ref string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving %q: %v", e.Ref, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// FetchOptions carries the audio conversion parameters for one fetch
type FetchOptions struct {
	Quality    string // target bitrate in kbps, e.g. "320"
	Format     string // container/codec, e.g. "mp3"
	SampleRate int
	Channels   int
}

// MediaSource resolves playlist references and turns single tracks into
// finished audio files. Two interchangeable backends implement it: the
// native two-stage one (library fetch plus ffmpeg) and the integrated
// yt-dlp one. The run coordinator never knows which is active.
type MediaSource interface {
	// Name returns the backend identifier used in config and logs
	Name() string

	// Resolve turns a ref into an ordered track list. Playlist refs
	// enumerate the collection; single refs return exactly one track with
	// Index 1. Unreadable entries are dropped, not reported as failures.
	// A failed or empty resolution comes back as a *ResolutionError.
	Resolve(ctx context.Context, ref PlaylistRef) ([]Track, error)

	// Fetch downloads one track and leaves the finished audio file at
	// destPath. Intermediate artifacts are cleaned up on every path; a
	// partial file is never left at destPath itself. progress may be nil.
	Fetch(ctx context.Context, track Track, destPath string, opts FetchOptions, progress ProgressFunc) error
}

// Transcoder converts a downloaded media file into the target audio format.
// It is the second stage of the native backend; the integrated backend folds
// transcoding into its single toolchain invocation.
type Transcoder interface {
	Transcode(ctx context.Context, srcPath, destPath string, opts FetchOptions) error
}
