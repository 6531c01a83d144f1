package domain

import "strings"

// RefKind discriminates between a single track and an ordered collection
type RefKind string

const (
	KindSingle   RefKind = "single"   // one track, no index prefix
	KindPlaylist RefKind = "playlist" // ordered collection
)

// PlaylistRef identifies the media to acquire. It is supplied by the caller
// and never mutated by the pipeline.
type PlaylistRef struct {
	URL  string  `json:"url"`
	Kind RefKind `json:"kind"`
}

// NewPlaylistRef builds a ref, classifying the URL when kind is empty
func NewPlaylistRef(url string, kind RefKind) PlaylistRef {
	if kind == "" {
		kind = DetectRefKind(url)
	}
	return PlaylistRef{URL: url, Kind: kind}
}

// Track is one resolved entry of a playlist. Index is assigned during
// resolution, starts at 1, and stays fixed for the life of the run; it is
// what the destination filename prefix is derived from.
type Track struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Index int    `json:"index"`
	URL   string `json:"url"`
}

// DetectRefKind classifies a URL as a playlist or a single track. YouTube
// playlist URLs carry a list= query parameter; everything else is treated
// as one track.
func DetectRefKind(url string) RefKind {
	if strings.Contains(url, "list=") {
		return KindPlaylist
	}
	return KindSingle
}

// ExtractPlaylistID pulls the playlist identifier out of a URL. Returns ""
// when the URL has no list= parameter.
func ExtractPlaylistID(url string) string {
	if !strings.Contains(url, "list=") {
		return ""
	}
	part := strings.SplitN(url, "list=", 2)[1]
	if i := strings.Index(part, "&"); i >= 0 {
		part = part[:i]
	}
	return part
}

// WatchURL builds the canonical watch URL for a video ID
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// ValidateRefKind checks if a ref kind is valid
func ValidateRefKind(kind RefKind) bool {
	return kind == KindSingle || kind == KindPlaylist
}
