package infrastructure

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/yourusername/tunegrab-go/internal/domain"
)

// CheckResult is one line of the environment report
type CheckResult struct {
	Name     string `json:"name"`
	OK       bool   `json:"ok"`
	Required bool   `json:"required"`
	Detail   string `json:"detail"`
}

// Doctor probes the external toolchain and the output directory. Which
// binaries are required depends on the configured backend: the native one
// needs ffmpeg, the integrated one needs yt-dlp.
type Doctor struct {
	config *domain.Config
}

// NewDoctor creates an environment doctor for the given configuration
func NewDoctor(config *domain.Config) *Doctor {
	return &Doctor{config: config}
}

// Run executes all checks and returns their results
func (d *Doctor) Run(ctx context.Context) []CheckResult {
	backend := d.config.Source.Backend

	results := []CheckResult{
		d.checkBinary(ctx, "ffmpeg", d.config.Source.FFmpegBinary, "-version", backend == "native"),
		d.checkBinary(ctx, "yt-dlp", d.config.Source.YTDLPBinary, "--version", backend == "ytdlp"),
		d.checkOutputDir(),
	}

	if d.config.Source.CookieFile != "" {
		results = append(results, d.checkCookieFile())
	}

	return results
}

// AllRequiredOK reports whether every required check passed
func AllRequiredOK(results []CheckResult) bool {
	for _, r := range results {
		if r.Required && !r.OK {
			return false
		}
	}
	return true
}

// checkBinary runs the binary's version command and keeps the first output line
func (d *Doctor) checkBinary(ctx context.Context, name, binary, versionArg string, required bool) CheckResult {
	result := CheckResult{Name: name, Required: required}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, binary, versionArg).Output()
	if err != nil {
		result.Detail = fmt.Sprintf("%s not found (%v)", binary, err)
		return result
	}

	result.OK = true
	result.Detail = firstLine(string(out))
	return result
}

// checkOutputDir verifies the output directory can be created and written to
func (d *Doctor) checkOutputDir() CheckResult {
	result := CheckResult{Name: "output dir", Required: true}
	dir := d.config.Output.Directory

	if err := os.MkdirAll(dir, 0755); err != nil {
		result.Detail = fmt.Sprintf("cannot create %s: %v", dir, err)
		return result
	}

	probe := filepath.Join(dir, ".tunegrab-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		result.Detail = fmt.Sprintf("cannot write to %s: %v", dir, err)
		return result
	}
	os.Remove(probe)

	result.OK = true
	result.Detail = dir
	return result
}

// checkCookieFile verifies the configured cookie file exists
func (d *Doctor) checkCookieFile() CheckResult {
	result := CheckResult{Name: "cookie file", Required: false}

	if fileExists(d.config.Source.CookieFile) {
		result.OK = true
		result.Detail = d.config.Source.CookieFile
	} else {
		result.Detail = fmt.Sprintf("%s does not exist", d.config.Source.CookieFile)
	}

	return result
}

// firstLine returns the first line of command output
func firstLine(out string) string {
	if i := strings.IndexByte(out, '\n'); i >= 0 {
		out = out[:i]
	}
	return strings.TrimSpace(out)
}
