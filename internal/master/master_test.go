package master_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/scriptcast/internal/master"
)

// fakeRunner records invocations and writes the file each tool would
// produce: the second argument for sox, the last argument for ffmpeg.
type fakeRunner struct {
	mu     sync.Mutex
	calls  [][]string
	fail   string // tool base name that fails
	stdout map[string]string
	stderr map[string]string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()

	tool := filepath.Base(name)
	if tool == f.fail {
		return nil, []byte("boom"), errors.New(tool + " failed")
	}
	switch tool {
	case "sox":
		if err := os.WriteFile(args[1], []byte("mastered"), 0o644); err != nil {
			return nil, nil, err
		}
	case "ffmpeg":
		if last := args[len(args)-1]; last != "-" {
			if err := os.WriteFile(last, []byte("encoded"), 0o644); err != nil {
				return nil, nil, err
			}
		}
	}
	return []byte(f.stdout[tool]), []byte(f.stderr[tool]), nil
}

func (f *fakeRunner) tools() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = filepath.Base(c[0])
	}
	return out
}

var allTools = master.Tools{Sox: "/bin/sox", FFmpeg: "/bin/ffmpeg", FFprobe: "/bin/ffprobe"}

func newMastering(t *testing.T, tools master.Tools, r master.Runner) *master.Mastering {
	t.Helper()
	m, err := master.New("podcast", master.WithTools(tools), master.WithRunner(r), master.WithTempDir(t.TempDir()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func writeInput(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func TestPresets(t *testing.T) {
	t.Parallel()

	want := []string{"audiobook", "broadcast", "podcast", "voice_only"}
	if got := master.PresetNames(); !slices.Equal(got, want) {
		t.Errorf("PresetNames() = %v, want %v", got, want)
	}
	p, ok := master.LookupPreset("broadcast")
	if !ok || p.Bitrate != "320k" || p.PeakDB != -1 || p.Compression != master.CompressionLight {
		t.Errorf("broadcast = %+v", p)
	}
	if _, err := master.New("loud"); err == nil {
		t.Error("New with unknown preset should fail")
	}
	m, err := master.New("", master.WithTools(master.Tools{}))
	if err != nil {
		t.Fatalf("New(\"\"): %v", err)
	}
	if m.Preset().Name != master.DefaultPreset {
		t.Errorf("default preset = %q, want %q", m.Preset().Name, master.DefaultPreset)
	}
}

func TestSoxArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		preset      string
		compression []string
		norm        string
	}{
		{"podcast", []string{"compand", "0.05,0.2", "6:-30,-30,-20,-20,-10,-10", "0", "-90", "0.1", "gain", "-6"}, "-3"},
		{"audiobook", []string{"compand", "0.05,0.2", "6:-40,-40,-25,-25,-15,-15", "0", "-90", "0.1", "gain", "-8"}, "-3"},
		{"broadcast", []string{"compand", "0.1,0.3", "6:-25,-25,-15,-15,-5,-5", "0", "-90", "0.2", "gain", "-3"}, "-1"},
		{"voice_only", []string{"compand", "0.05,0.2", "6:-40,-40,-25,-25,-15,-15", "0", "-90", "0.1", "gain", "-8"}, "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.preset, func(t *testing.T) {
			t.Parallel()
			p, _ := master.LookupPreset(tt.preset)
			args := master.SoxArgs("in.wav", "out.wav", p)

			if args[0] != "in.wav" || args[1] != "out.wav" {
				t.Fatalf("args start %v, want in/out", args[:2])
			}
			// noise gate and high-pass come first
			gate := []string{"compand", "0.1,0.2", "-inf,-40.1,-inf,-40,-40", "0", "-90", "0.1", "highpass", "80"}
			if !slices.Equal(args[2:2+len(gate)], gate) {
				t.Errorf("gate stage = %v, want %v", args[2:2+len(gate)], gate)
			}
			start := 2 + len(gate)
			if got := args[start : start+len(tt.compression)]; !slices.Equal(got, tt.compression) {
				t.Errorf("compression stage = %v, want %v", got, tt.compression)
			}
			if got := args[len(args)-2:]; got[0] != "norm" || got[1] != tt.norm {
				t.Errorf("final stage = %v, want [norm %s]", got, tt.norm)
			}
			joined := strings.Join(args, " ")
			for _, stage := range []string{
				"equalizer 200 0.7 2",
				"equalizer 3000 0.5 1.5",
				"equalizer 8000 0.3 -2",
				"compand 0.01,0.05 6:-15,-15,-10,-8,-5,-5 0 -90 0.01 equalizer 6500 0.8 -3",
				"compand 0.01,0.02 6:-20,-20,-10,-10 0 -90 0.01",
				"compand 0.001,0.001 6:-6,-6,-3,-3,0,-3 0 -90 0.001",
			} {
				if !strings.Contains(joined, stage) {
					t.Errorf("chain lacks %q", stage)
				}
			}
		})
	}
}

func TestMaster_WAVToMP3(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := writeInput(t, dir, "episode.wav")
	out := filepath.Join(dir, "episode.mp3")
	r := &fakeRunner{}

	res, err := newMastering(t, allTools, r).Master(context.Background(), in, out)
	if err != nil {
		t.Fatalf("Master: %v", err)
	}
	if !res.Mastered || res.Path != out || res.Preset != "podcast" {
		t.Errorf("result = %+v", res)
	}
	// wav input needs no conversion: sox then ffmpeg encode
	if got := r.tools(); !slices.Equal(got, []string{"sox", "ffmpeg"}) {
		t.Errorf("tool calls = %v, want [sox ffmpeg]", got)
	}
	enc := r.calls[1]
	if !slices.Contains(enc, "libmp3lame") || !slices.Contains(enc, "192k") {
		t.Errorf("encode args = %v, want libmp3lame at 192k", enc)
	}
	if got := readFile(t, out); got != "encoded" {
		t.Errorf("output = %q, want encoded", got)
	}
}

func TestMaster_ConvertsNonWAVInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := writeInput(t, dir, "episode.mp3")
	out := filepath.Join(dir, "mastered.wav")
	r := &fakeRunner{}

	res, err := newMastering(t, allTools, r).Master(context.Background(), in, out)
	if err != nil {
		t.Fatalf("Master: %v", err)
	}
	if got := r.tools(); !slices.Equal(got, []string{"ffmpeg", "sox"}) {
		t.Errorf("tool calls = %v, want [ffmpeg sox]", got)
	}
	if !slices.Contains(r.calls[0], "pcm_s16le") {
		t.Errorf("conversion args = %v, want pcm_s16le", r.calls[0])
	}
	if got := readFile(t, res.Path); got != "mastered" {
		t.Errorf("output = %q, want the sox result", got)
	}
}

func TestMaster_NoFFmpegWritesWAV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := writeInput(t, dir, "episode.wav")
	r := &fakeRunner{}

	res, err := newMastering(t, master.Tools{Sox: "/bin/sox"}, r).Master(context.Background(), in, filepath.Join(dir, "out.mp3"))
	if err != nil {
		t.Fatalf("Master: %v", err)
	}
	want := filepath.Join(dir, "out.wav")
	if res.Path != want || !res.Mastered {
		t.Errorf("result = %+v, want mastered at %s", res, want)
	}
	if got := readFile(t, want); got != "mastered" {
		t.Errorf("output = %q, want mastered", got)
	}
}

func TestMaster_Fallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		tools master.Tools
		fail  string
	}{
		{"no sox", master.Tools{FFmpeg: "/bin/ffmpeg"}, ""},
		{"sox fails", allTools, "sox"},
		{"encode fails", allTools, "ffmpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			in := writeInput(t, dir, "episode.wav")
			out := filepath.Join(dir, "out.mp3")

			res, err := newMastering(t, tt.tools, &fakeRunner{fail: tt.fail}).Master(context.Background(), in, out)
			if err != nil {
				t.Fatalf("Master: %v", err)
			}
			want := filepath.Join(dir, "out.wav")
			if res.Mastered || res.Path != want {
				t.Errorf("result = %+v, want unmastered copy at %s", res, want)
			}
			if got := readFile(t, want); got != "original" {
				t.Errorf("output = %q, want the original input", got)
			}
		})
	}
}

func TestMaster_FallbackCopyFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := newMastering(t, master.Tools{}, &fakeRunner{})
	if _, err := m.Master(context.Background(), filepath.Join(dir, "missing.wav"), filepath.Join(dir, "out.wav")); err == nil {
		t.Error("expected error when the input does not exist")
	}
}

const probeJSON = `{
  "streams": [
    {"codec_type": "video", "codec_name": "mjpeg"},
    {"codec_type": "audio", "codec_name": "mp3", "sample_rate": "44100", "channels": 2, "duration": "12.5"}
  ],
  "format": {"bit_rate": "192000", "duration": "12.6"}
}`

const volumeStderr = `[Parsed_volumedetect_0 @ 0x1] n_samples: 1102500
[Parsed_volumedetect_0 @ 0x1] mean_volume: -16.4 dB
[Parsed_volumedetect_0 @ 0x1] max_volume: -1.2 dB
[Parsed_volumedetect_0 @ 0x1] histogram_1db: 12`

func TestParseProbe(t *testing.T) {
	t.Parallel()

	a, err := master.ParseProbe([]byte(probeJSON))
	if err != nil {
		t.Fatalf("ParseProbe: %v", err)
	}
	if a.Codec != "mp3" || a.SampleRate != 44100 || a.Channels != 2 {
		t.Errorf("stream = %+v", a)
	}
	if a.BitRate != 192000 {
		t.Errorf("BitRate = %d, want container fallback 192000", a.BitRate)
	}
	if a.Duration != 12500*time.Millisecond {
		t.Errorf("Duration = %v, want 12.5s", a.Duration)
	}

	if _, err := master.ParseProbe([]byte(`{"streams": []}`)); err == nil {
		t.Error("expected error for no audio stream")
	}
	if _, err := master.ParseProbe([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid json")
	}
}

func TestParseVolumeDetect(t *testing.T) {
	t.Parallel()

	peak, mean, ok := master.ParseVolumeDetect(volumeStderr)
	if !ok || peak != -1.2 || mean != -16.4 {
		t.Errorf("ParseVolumeDetect = %v, %v, %v; want -1.2, -16.4, true", peak, mean, ok)
	}
	if _, _, ok := master.ParseVolumeDetect("max_volume: -1.0 dB"); ok {
		t.Error("ok should be false without mean_volume")
	}
}

func TestAssess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		peak, mean float64
		want       [2]master.Level
	}{
		{-0.1, -15, [2]master.Level{master.LevelWarn, master.LevelGood}},
		{-1.2, -16.4, [2]master.Level{master.LevelGood, master.LevelGood}},
		{-6, -25, [2]master.Level{master.LevelInfo, master.LevelInfo}},
		{-2, -8, [2]master.Level{master.LevelGood, master.LevelWarn}},
	}
	for _, tt := range tests {
		got := master.Assess(master.Analysis{PeakDB: tt.peak, MeanDB: tt.mean, HasLevels: true})
		if len(got) != 2 || got[0].Level != tt.want[0] || got[1].Level != tt.want[1] {
			t.Errorf("Assess(peak=%v, mean=%v) = %+v, want levels %v", tt.peak, tt.mean, got, tt.want)
		}
	}
	if got := master.Assess(master.Analysis{}); got != nil {
		t.Errorf("Assess without levels = %v, want nil", got)
	}
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{
		stdout: map[string]string{"ffprobe": probeJSON},
		stderr: map[string]string{"ffmpeg": volumeStderr},
	}
	a, err := newMastering(t, allTools, r).Analyze(context.Background(), "episode.mp3")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !a.HasLevels || a.PeakDB != -1.2 || a.Codec != "mp3" {
		t.Errorf("Analyze = %+v", a)
	}

	_, err = newMastering(t, master.Tools{Sox: "/bin/sox"}, r).Analyze(context.Background(), "episode.mp3")
	if !errors.Is(err, master.ErrToolNotFound) {
		t.Errorf("Analyze without ffprobe = %v, want ErrToolNotFound", err)
	}
}

func TestBatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeInput(t, dir, "b.wav")
	writeInput(t, dir, "a.mp3")
	writeInput(t, dir, "notes.txt")
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeInput(t, dir, filepath.Join("sub", "c.FLAC"))

	r := &fakeRunner{stdout: map[string]string{"ffprobe": probeJSON}, stderr: map[string]string{"ffmpeg": volumeStderr}}
	m := newMastering(t, allTools, r)

	items, err := m.Batch(context.Background(), dir, "")
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	wantOut := []string{"a_mastered.mp3", "b_mastered.mp3", "c_mastered.mp3"}
	for i, it := range items {
		if it.Err != nil {
			t.Errorf("item %d: %v", i, it.Err)
		}
		if got := filepath.Base(it.Result.Path); got != wantOut[i] {
			t.Errorf("item %d output = %s, want %s", i, got, wantOut[i])
		}
		if filepath.Dir(it.Result.Path) != filepath.Join(dir, "mastered") {
			t.Errorf("item %d written to %s, want %s/mastered", i, filepath.Dir(it.Result.Path), dir)
		}
		if it.Analysis == nil {
			t.Errorf("item %d has no analysis", i)
		}
	}

	// A second run must not pick up its own outputs.
	items, err = m.Batch(context.Background(), dir, "")
	if err != nil {
		t.Fatalf("second Batch: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("second run got %d items, want 3", len(items))
	}
}

func TestBatch_Errors(t *testing.T) {
	t.Parallel()

	m := newMastering(t, allTools, &fakeRunner{})
	if _, err := m.Batch(context.Background(), filepath.Join(t.TempDir(), "missing"), ""); err == nil {
		t.Error("expected error for missing directory")
	}
	if _, err := m.Batch(context.Background(), t.TempDir(), ""); err == nil {
		t.Error("expected error for directory without audio")
	}
}

func TestFindTool(t *testing.T) {
	t.Parallel()

	if _, err := master.FindTool("scriptcast-no-such-tool", ""); !errors.Is(err, master.ErrToolNotFound) {
		t.Errorf("FindTool = %v, want ErrToolNotFound", err)
	}
}
