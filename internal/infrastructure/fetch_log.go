package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yourusername/tunegrab-go/pkg/logger"
)

// openFetchLog opens today's raw fetch log for appending. All toolchain
// output (stdout and stderr from yt-dlp and ffmpeg) goes to this single
// file, one dated file per day.
func openFetchLog(logsDir string) (*os.File, error) {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	dateStr := time.Now().Format("20060102")
	name := fmt.Sprintf("%s-%s.log", logger.CategoryFetch, dateStr)
	return os.OpenFile(filepath.Join(logsDir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

// writeFetchHeader writes the invocation start marker with the command line
func writeFetchHeader(file *os.File, label, cmdLine string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	file.WriteString(fmt.Sprintf("\n=== [%s] Fetch: %s ===\n", timestamp, label))
	file.WriteString(fmt.Sprintf("$ %s\n", cmdLine))
}

// writeFetchFooter writes the invocation end marker
func writeFetchFooter(file *os.File, success bool, message string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	status := "SUCCESS"
	if !success {
		status = "FAILED"
	}
	file.WriteString(fmt.Sprintf("[%s] %s: %s\n", timestamp, status, message))
	file.WriteString("=== END ===\n\n")
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// moveFile renames src to dst, falling back to copy+remove across
// filesystems
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("failed to move file %s: %w", src, err)
		}
		os.Remove(src)
	}
	return nil
}

// copyFile copies a file from src to dst
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
