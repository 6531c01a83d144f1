package domain

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// maxTitleRunes bounds the sanitized title length before the ellipsis
	maxTitleRunes = 200
	ellipsis      = "..."
)

var (
	forbiddenChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// SanitizeTitle maps an arbitrary title to a name safe on common
// filesystems. Forbidden characters become underscores, whitespace runs
// collapse to a single space, and anything longer than 200 runes is cut and
// marked with a trailing ellipsis. The result is never empty: a title that
// sanitizes away entirely comes back as "_".
func SanitizeTitle(raw string) string {
	s := forbiddenChars.ReplaceAllString(raw, "_")
	s = whitespaceRuns.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if runes := []rune(s); len(runes) > maxTitleRunes {
		s = string(runes[:maxTitleRunes]) + ellipsis
	}

	if s == "" {
		return "_"
	}
	return s
}

// TrackFileName names a collection entry: zero-padded index prefix plus the
// sanitized title. The prefix keeps directory listings in playlist order and
// disambiguates duplicate titles.
func TrackFileName(index int, title, ext string) string {
	return fmt.Sprintf("%03d_%s.%s", index, SanitizeTitle(title), ext)
}

// SingleFileName names a single-track download, no index prefix
func SingleFileName(title, ext string) string {
	return fmt.Sprintf("%s.%s", SanitizeTitle(title), ext)
}

// DestinationPath derives the output path for a track. It is deterministic:
// the same (output dir, title, index) triple always yields the same path,
// which is what makes skip-on-exists re-runs safe.
func DestinationPath(outputDir string, track Track, collection bool, ext string) string {
	if collection {
		return filepath.Join(outputDir, TrackFileName(track.Index, track.Title, ext))
	}
	return filepath.Join(outputDir, SingleFileName(track.Title, ext))
}
