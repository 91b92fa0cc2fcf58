package master

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
)

// ErrToolNotFound is returned when an external tool is needed but none of its
// candidate locations holds an executable.
var ErrToolNotFound = errors.New("master: tool not found")

// Tools holds resolved executable paths. An empty field means the tool is
// unavailable.
type Tools struct {
	Sox     string
	FFmpeg  string
	FFprobe string
}

// searchDirs are probed after the configured path and $PATH.
var searchDirs = []string{"/usr/bin", "/usr/local/bin", "/opt/homebrew/bin"}

// FindTool resolves name to an executable. A non-empty configured path is
// tried first, then $PATH, then a few well-known install directories.
func FindTool(name, configured string) (string, error) {
	candidates := make([]string, 0, 2+len(searchDirs))
	if configured != "" {
		candidates = append(candidates, configured)
	}
	candidates = append(candidates, name)
	for _, d := range searchDirs {
		candidates = append(candidates, filepath.Join(d, name))
	}
	for _, c := range candidates {
		if p, err := exec.LookPath(c); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s (tried %v)", ErrToolNotFound, name, candidates)
}

// Discover resolves sox, ffmpeg and ffprobe, leaving missing tools empty.
// configured may override any of the three paths.
func Discover(configured Tools) Tools {
	var t Tools
	t.Sox, _ = FindTool("sox", configured.Sox)
	t.FFmpeg, _ = FindTool("ffmpeg", configured.FFmpeg)
	t.FFprobe, _ = FindTool("ffprobe", configured.FFprobe)
	return t
}

// Runner executes an external command and returns its captured output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

var _ Runner = ExecRunner{}

// Run implements [Runner].
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, nil, fmt.Errorf("master: %s cancelled: %w", filepath.Base(name), ctx.Err())
	}
	if err != nil {
		return stdout.Bytes(), stderr.Bytes(), fmt.Errorf("master: %s: %w%s", filepath.Base(name), err, stderrSuffix(stderr.Bytes()))
	}
	return stdout.Bytes(), stderr.Bytes(), nil
}

// stderrSuffix returns a short excerpt of stderr for error messages.
func stderrSuffix(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return ""
	}
	const max = 200
	if len(b) > max {
		b = b[len(b)-max:]
	}
	return ": " + string(b)
}
