package infrastructure

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/yourusername/tunegrab-go/internal/domain"
)

// FFmpegTranscoder converts downloaded media into the target audio format by
// shelling out to ffmpeg. It is the second stage of the native backend.
type FFmpegTranscoder struct {
	binary  string
	logsDir string
}

// NewFFmpegTranscoder creates a transcoder using the given ffmpeg binary
func NewFFmpegTranscoder(binary, logsDir string) *FFmpegTranscoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegTranscoder{
		binary:  binary,
		logsDir: logsDir,
	}
}

// Transcode converts srcPath into destPath. The output is written to a
// .part file first and renamed into place on success, so a partial file
// never sits at destPath.
func (t *FFmpegTranscoder) Transcode(ctx context.Context, srcPath, destPath string, opts domain.FetchOptions) error {
	partPath := destPath + ".part"

	args := []string{
		"-y",
		"-i", srcPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-ab", opts.Quality + "k",
		"-ar", fmt.Sprintf("%d", opts.SampleRate),
		"-ac", fmt.Sprintf("%d", opts.Channels),
		partPath,
	}

	// Open fetch log for direct redirect (combines stdout and stderr like 2>&1)
	fetchLog, err := openFetchLog(t.logsDir)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer fetchLog.Close()

	cmdLine := ShellEscapeCommand(t.binary, args...)
	writeFetchHeader(fetchLog, "transcode "+srcPath, cmdLine)

	cmd := exec.CommandContext(ctx, t.binary, args...)
	cmd.Stdout = fetchLog
	cmd.Stderr = fetchLog

	if err := cmd.Run(); err != nil {
		os.Remove(partPath)
		writeFetchFooter(fetchLog, false, fmt.Sprintf("ffmpeg failed: %v", err))
		return fmt.Errorf("ffmpeg failed: %w", err)
	}

	if err := moveFile(partPath, destPath); err != nil {
		writeFetchFooter(fetchLog, false, fmt.Sprintf("failed to place output: %v", err))
		return err
	}

	writeFetchFooter(fetchLog, true, fmt.Sprintf("Transcoded: %s", destPath))
	return nil
}
