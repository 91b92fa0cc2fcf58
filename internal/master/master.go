package master

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Result describes the file a [Mastering.Master] call produced.
type Result struct {
	// Path is the written file. Its extension may differ from the requested
	// output when MP3 encoding was unavailable.
	Path string

	// Mastered is false when the input was copied unchanged.
	Mastered bool

	Preset string
}

// Option is a functional option for configuring a [Mastering].
type Option func(*Mastering)

// WithTools sets the resolved tool paths. Default: [Discover] with no
// configured overrides.
func WithTools(t Tools) Option {
	return func(m *Mastering) {
		m.tools = &t
	}
}

// WithRunner replaces the command runner. Default: [ExecRunner].
func WithRunner(r Runner) Option {
	return func(m *Mastering) {
		m.runner = r
	}
}

// WithTempDir sets the directory for intermediate WAV files. Default:
// [os.TempDir].
func WithTempDir(dir string) Option {
	return func(m *Mastering) {
		m.tempDir = dir
	}
}

// Mastering runs the SoX chain of one preset. It is safe for concurrent use;
// every call gets its own temporary files.
type Mastering struct {
	preset  Preset
	tools   *Tools
	runner  Runner
	tempDir string
}

// New returns a Mastering for the named preset. An empty name selects
// [DefaultPreset].
func New(preset string, opts ...Option) (*Mastering, error) {
	if preset == "" {
		preset = DefaultPreset
	}
	p, ok := LookupPreset(preset)
	if !ok {
		return nil, fmt.Errorf("master: unknown preset %q (valid: %s)", preset, strings.Join(PresetNames(), ", "))
	}
	m := &Mastering{preset: p, runner: ExecRunner{}}
	for _, o := range opts {
		o(m)
	}
	if m.tools == nil {
		t := Discover(Tools{})
		m.tools = &t
	}
	return m, nil
}

// Preset returns the preset in use.
func (m *Mastering) Preset() Preset { return m.preset }

// Tools returns the resolved tool paths.
func (m *Mastering) Tools() Tools { return *m.tools }

// Master applies the chain to in and writes out. Any failure along the way
// is logged and the unmastered input is copied next to out instead, keeping
// the extension of in; the returned error is non-nil only if that copy fails
// too.
func (m *Mastering) Master(ctx context.Context, in, out string) (Result, error) {
	res, err := m.master(ctx, in, out)
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	dst := strings.TrimSuffix(out, filepath.Ext(out)) + filepath.Ext(in)
	slog.Warn("mastering failed; using unmastered audio", "input", in, "output", dst, "err", err)
	if err := copyFile(in, dst); err != nil {
		return Result{}, fmt.Errorf("master: fallback copy: %w", err)
	}
	return Result{Path: dst, Preset: m.preset.Name}, nil
}

func (m *Mastering) master(ctx context.Context, in, out string) (Result, error) {
	if m.tools.Sox == "" {
		return Result{}, fmt.Errorf("%w: sox", ErrToolNotFound)
	}

	tmp, err := os.MkdirTemp(m.tempDir, "scriptcast-master-*")
	if err != nil {
		return Result{}, fmt.Errorf("master: temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	raw := in
	if !strings.EqualFold(filepath.Ext(in), ".wav") {
		if m.tools.FFmpeg == "" {
			return Result{}, fmt.Errorf("%w: ffmpeg is needed to read %s", ErrToolNotFound, filepath.Ext(in))
		}
		raw = filepath.Join(tmp, "raw.wav")
		if _, _, err := m.runner.Run(ctx, m.tools.FFmpeg, wavArgs(in, raw)...); err != nil {
			return Result{}, err
		}
	}

	mastered := filepath.Join(tmp, "mastered.wav")
	slog.Debug("running sox mastering chain", "preset", m.preset.Name, "input", in)
	if _, _, err := m.runner.Run(ctx, m.tools.Sox, SoxArgs(raw, mastered, m.preset)...); err != nil {
		return Result{}, err
	}

	res := Result{Path: out, Mastered: true, Preset: m.preset.Name}
	if strings.EqualFold(filepath.Ext(out), ".mp3") {
		if m.tools.FFmpeg != "" {
			if _, _, err := m.runner.Run(ctx, m.tools.FFmpeg, mp3Args(mastered, out, m.preset.Bitrate)...); err != nil {
				return Result{}, err
			}
			return res, nil
		}
		res.Path = strings.TrimSuffix(out, filepath.Ext(out)) + ".wav"
		slog.Warn("ffmpeg not available for mp3 encoding; writing wav instead", "output", res.Path)
	}
	if err := copyFile(mastered, res.Path); err != nil {
		return Result{}, err
	}
	return res, nil
}

func copyFile(src, dst string) error {
	if sameFile(src, dst) {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}
