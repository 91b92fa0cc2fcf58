package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/orcaman/writerseeker"
	"go.opentelemetry.io/otel"

	"github.com/MrWong99/scriptcast/internal/config"
	"github.com/MrWong99/scriptcast/internal/health"
	"github.com/MrWong99/scriptcast/pkg/audio"
)

// restoreOTel puts back the global providers that telemetry setup replaces.
func restoreOTel(t *testing.T) {
	t.Helper()
	mp, tp := otel.GetMeterProvider(), otel.GetTracerProvider()
	t.Cleanup(func() {
		otel.SetMeterProvider(mp)
		otel.SetTracerProvider(tp)
	})
}

// coquiServer answers GET /api/tts with 100 ms of 16 kHz mono WAV and
// records the texts it was asked to speak.
func coquiServer(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()
	ws := &writerseeker.WriterSeeker{}
	clip := audio.PCM{Format: audio.Format{SampleRate: 16000, Channels: 1}, Data: make([]byte, 3200)}
	for i := 0; i < len(clip.Data); i += 2 {
		clip.Data[i+1] = 0x10
	}
	if err := audio.EncodeWAV(ws, clip); err != nil {
		t.Fatal(err)
	}
	wav, err := io.ReadAll(ws.Reader())
	if err != nil {
		t.Fatal(err)
	}

	var (
		mu    sync.Mutex
		texts []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tts" {
			http.NotFound(w, r)
			return
		}
		mu.Lock()
		texts = append(texts, r.URL.Query().Get("text"))
		mu.Unlock()
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(wav)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), texts...)
	}
}

func TestRun_Generate(t *testing.T) {
	restoreOTel(t)
	srv, texts := coquiServer(t)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfgYAML := `
server:
  log_level: error
providers:
  tts:
    name: coqui
    base_url: ` + srv.URL + `
    options:
      language: nl
voices:
  lucas:
    voice_id: p225
  emma:
    voice_id: p226
aliases:
  host_b: emma
default_voice: lucas
mastering:
  enabled: true
`
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	script := filepath.Join(dir, "ep1.txt")
	body := "# aflevering 1\n[lucas]: [vrolijk] Hallo **allemaal**!\n[PAUZE]\n[host_b]: Tot ziens.\n"
	if err := os.WriteFile(script, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	if code := run([]string{"generate", "-no-master", "-config", cfgPath, script}); code != 0 {
		t.Fatalf("generate exit code %d, want 0", code)
	}

	out := filepath.Join(dir, "ep1.wav")
	pcm, err := audio.DecodeFile(out, 0)
	if err != nil {
		t.Fatalf("episode not written: %v", err)
	}
	// Two 100 ms clips around the 800 ms pause.
	if d := pcm.Duration().Milliseconds(); d < 950 {
		t.Errorf("episode duration = %d ms, want about 1000", d)
	}

	got := texts()
	if len(got) != 2 {
		t.Fatalf("server received %d requests, want 2: %q", len(got), got)
	}
	for _, text := range got {
		if strings.ContainsAny(text, "<>[]*") {
			t.Errorf("text %q still carries markup", text)
		}
	}
}

func TestRun_GenerateProviderDown(t *testing.T) {
	restoreOTel(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfgYAML := "providers:\n  tts:\n    name: coqui\n    base_url: " + srv.URL + "\nvoices:\n  lucas:\n    voice_id: p225\n"
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	script := filepath.Join(dir, "ep1.txt")
	if err := os.WriteFile(script, []byte("[lucas]: Hallo\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if code := run([]string{"generate", "-no-master", "-config", cfgPath, script}); code != 1 {
		t.Errorf("generate exit code %d, want 1", code)
	}
	if _, err := os.Stat(filepath.Join(dir, "ep1.wav")); !os.IsNotExist(err) {
		t.Errorf("episode written although no segment survived: %v", err)
	}
}

func TestStartTelemetry(t *testing.T) {
	restoreOTel(t)

	e := &env{cfg: &config.Config{}}
	stop, err := e.startTelemetry(context.Background(), health.New(nil))
	if err != nil {
		t.Fatalf("startTelemetry: %v", err)
	}
	stop()
}
