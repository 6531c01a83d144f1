package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/tunegrab-go/internal/domain"
	"github.com/yourusername/tunegrab-go/pkg/logger"
)

// flatEntry is one line of yt-dlp --dump-json --flat-playlist output. Only
// the fields the pipeline needs are decoded.
type flatEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// YTDLPSource implements MediaSource by shelling out to the yt-dlp binary.
// Download and conversion happen in a single invocation; failures are opaque
// beyond the exit status and captured stderr.
type YTDLPSource struct {
	config      *domain.SourceConfig
	logsDir     string
	eventLogger *logger.MultiLogger // For structured events only (LogRunEvent, LogAppError)
}

// NewYTDLPSource creates a yt-dlp backed media source
func NewYTDLPSource(config *domain.SourceConfig, logsDir string, eventLogger *logger.MultiLogger) *YTDLPSource {
	return &YTDLPSource{
		config:      config,
		logsDir:     logsDir,
		eventLogger: eventLogger,
	}
}

// Name returns the backend identifier used in config and logs
func (s *YTDLPSource) Name() string {
	return "ytdlp"
}

// Resolve turns a playlist reference into an ordered track list using
// yt-dlp's flat playlist dump. Entries without an id or title are dropped.
func (s *YTDLPSource) Resolve(ctx context.Context, ref domain.PlaylistRef) ([]domain.Track, error) {
	args := []string{"--dump-json"}
	if ref.Kind == domain.KindPlaylist {
		args = append(args, "--flat-playlist")
	} else {
		args = append(args, "--no-playlist")
	}
	if s.config.CookieFile != "" && fileExists(s.config.CookieFile) {
		args = append(args, "--cookies", s.config.CookieFile)
	}
	args = append(args, ref.URL)

	cmd := exec.CommandContext(ctx, s.config.YTDLPBinary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &domain.ResolutionError{
			Ref: ref.URL,
			Err: fmt.Errorf("yt-dlp: %w: %s", err, lastLine(stderr.String())),
		}
	}

	var tracks []domain.Track
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var entry flatEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			// Unparseable entries were never tracks
			continue
		}
		if entry.ID == "" || entry.Title == "" {
			continue
		}

		url := entry.URL
		if url == "" {
			url = domain.WatchURL(entry.ID)
		}
		if ref.Kind == domain.KindSingle {
			url = ref.URL
		}

		tracks = append(tracks, domain.Track{
			ID:    entry.ID,
			Title: entry.Title,
			Index: len(tracks) + 1,
			URL:   url,
		})

		if ref.Kind == domain.KindSingle {
			break
		}
	}

	if len(tracks) == 0 {
		return nil, &domain.ResolutionError{Ref: ref.URL, Err: domain.ErrNoTracks}
	}

	return tracks, nil
}

// Fetch downloads one track and leaves the finished audio file at destPath.
// yt-dlp extracts and converts the audio itself; the produced file lands in
// a per-track temp directory and is moved into place afterwards.
func (s *YTDLPSource) Fetch(ctx context.Context, track domain.Track, destPath string, opts domain.FetchOptions, progress domain.ProgressFunc) error {
	if progress == nil {
		progress = func(stage domain.ProgressStage, percent float64) {}
	}

	// Per-track temp directory next to the destination
	tempDir := filepath.Join(filepath.Dir(destPath), ".fetch_"+track.ID)
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	args := []string{
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", opts.Format,
		"--audio-quality", opts.Quality + "K",
		"--postprocessor-args", fmt.Sprintf("ffmpeg:-ar %d -ac %d", opts.SampleRate, opts.Channels),
		"--retries", "3",
		"--no-playlist",
		"-o", filepath.Join(tempDir, "track.%(ext)s"),
	}
	if s.config.CookieFile != "" && fileExists(s.config.CookieFile) {
		args = append(args, "--cookies", s.config.CookieFile)
	}
	args = append(args, track.URL)

	// Open fetch log for direct redirect (combines stdout and stderr like 2>&1)
	fetchLog, err := openFetchLog(s.logsDir)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer fetchLog.Close()

	cmdLine := ShellEscapeCommand(s.config.YTDLPBinary, args...)
	writeFetchHeader(fetchLog, track.ID, cmdLine)

	progress(domain.StageFetching, -1)

	// Keep the stderr tail in memory for the error message while the full
	// output streams to the fetch log
	var stderrTail bytes.Buffer
	cmd := exec.CommandContext(ctx, s.config.YTDLPBinary, args...)
	cmd.Stdout = fetchLog
	cmd.Stderr = io.MultiWriter(fetchLog, &stderrTail)

	if err := cmd.Run(); err != nil {
		writeFetchFooter(fetchLog, false, fmt.Sprintf("yt-dlp failed: %v", err))
		return fmt.Errorf("yt-dlp failed: %w: %s", err, lastLine(stderrTail.String()))
	}

	produced, err := s.findProducedFile(tempDir, opts.Format)
	if err != nil {
		writeFetchFooter(fetchLog, false, err.Error())
		return err
	}

	if err := moveFile(produced, destPath); err != nil {
		writeFetchFooter(fetchLog, false, fmt.Sprintf("failed to place output: %v", err))
		return err
	}

	if s.eventLogger != nil {
		s.eventLogger.LogRunEvent("track_fetched",
			zap.String("id", track.ID),
			zap.String("file", destPath))
	}

	writeFetchFooter(fetchLog, true, fmt.Sprintf("Downloaded: %s", destPath))
	return nil
}

// findProducedFile locates the converted audio file in the temp directory.
// yt-dlp names it track.<format>; anything else present is an intermediate.
func (s *YTDLPSource) findProducedFile(tempDir, format string) (string, error) {
	exact := filepath.Join(tempDir, "track."+format)
	if fileExists(exact) {
		return exact, nil
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return "", fmt.Errorf("failed to read temp directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), "."+format) {
			return filepath.Join(tempDir, entry.Name()), nil
		}
	}

	return "", fmt.Errorf("no %s file produced", format)
}

// lastLine returns the final non-empty line of command output, which is
// where yt-dlp puts its error summary
func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
