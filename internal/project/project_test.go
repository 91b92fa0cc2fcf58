package project_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/scriptcast/internal/config"
	"github.com/MrWong99/scriptcast/internal/project"
)

func TestManager_InitLoadList(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "projects")
	m := project.NewManager(root)

	names, err := m.List()
	if err != nil || len(names) != 0 {
		t.Fatalf("List on missing root = %v, %v", names, err)
	}

	p, err := m.Init("weekly", nil)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	for _, dir := range []string{p.ConfigDir, p.CredentialsDir, p.ScriptsDir, p.OutputDir} {
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			t.Errorf("directory %s was not created", dir)
		}
	}
	if _, err := os.Stat(p.CredentialsPath()); err != nil {
		t.Errorf("credentials file missing: %v", err)
	}

	if _, err := m.Init("weekly", nil); !errors.Is(err, project.ErrExists) {
		t.Errorf("second Init = %v, want ErrExists", err)
	}
	if _, err := m.Init("daily", map[string]string{"lucas": "id-lucas", "emma": "id-emma"}); err != nil {
		t.Fatalf("Init(daily): %v", err)
	}
	// A directory without a config is not a project.
	if err := os.MkdirAll(filepath.Join(root, "scratch"), 0o755); err != nil {
		t.Fatal(err)
	}

	names, err = m.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if strings.Join(names, ",") != "daily,weekly" {
		t.Errorf("List = %v, want [daily weekly]", names)
	}

	lp, cfg, err := m.Load("daily")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if lp.Dir != filepath.Join(root, "daily") {
		t.Errorf("Dir = %s", lp.Dir)
	}
	if cfg.Providers.TTS.APIKey != "your_elevenlabs_api_key_here" {
		t.Errorf("api key from credentials = %q", cfg.Providers.TTS.APIKey)
	}
	if cfg.DefaultVoice != "emma" || cfg.Voices["lucas"].VoiceID != "id-lucas" {
		t.Errorf("voices = %+v, default = %q", cfg.Voices, cfg.DefaultVoice)
	}
	if cfg.Mastering.Preset != "podcast" || !cfg.Mastering.Enabled {
		t.Errorf("mastering = %+v", cfg.Mastering)
	}
	if cfg.Audio.PauseGapMS != config.DefaultPauseGapMS {
		t.Errorf("pause gap = %d", cfg.Audio.PauseGapMS)
	}
}

func TestManager_LoadErrors(t *testing.T) {
	t.Parallel()

	m := project.NewManager(t.TempDir())
	if _, _, err := m.Load("missing"); !errors.Is(err, project.ErrNotFound) {
		t.Errorf("Load(missing) = %v, want ErrNotFound", err)
	}
	for _, name := range []string{"", "..", "a/b", `a\b`} {
		if _, err := m.Init(name, nil); err == nil {
			t.Errorf("Init(%q) should fail", name)
		}
	}
}

func TestSampleConfig_Valid(t *testing.T) {
	t.Parallel()

	data, err := project.SampleConfig(nil)
	if err != nil {
		t.Fatalf("SampleConfig: %v", err)
	}
	text := string(data)
	for _, want := range []string{"# scriptcast project configuration", "host_a:", "your_voice_id_2", "credentials/secrets.yaml", "# Presets:"} {
		if !strings.Contains(text, want) {
			t.Errorf("sample config missing %q:\n%s", want, text)
		}
	}

	// The sample needs only the API key from the credentials file.
	withKey := strings.Replace(text, "name: elevenlabs", "name: elevenlabs\n    api_key: k", 1)
	withKey = strings.Replace(withKey, "credentials_file: credentials/secrets.yaml\n", "", 1)
	cfg, err := config.LoadFromReader(strings.NewReader(withKey))
	if err != nil {
		t.Fatalf("sample config does not validate: %v\n%s", err, withKey)
	}
	if cfg.DefaultVoice != "host_a" {
		t.Errorf("default voice = %q, want host_a", cfg.DefaultVoice)
	}
}

func TestProject_ScriptsAndPaths(t *testing.T) {
	t.Parallel()

	m := project.NewManager(t.TempDir())
	p, err := m.Init("show", nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"ep2.txt", "ep1.TXT", "notes.md"} {
		if err := os.WriteFile(filepath.Join(p.ScriptsDir, name), []byte("[host_a]: Hallo"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	scripts, err := p.Scripts()
	if err != nil {
		t.Fatalf("Scripts: %v", err)
	}
	if len(scripts) != 2 || filepath.Base(scripts[0]) != "ep1.TXT" || filepath.Base(scripts[1]) != "ep2.txt" {
		t.Errorf("Scripts = %v", scripts)
	}

	if got := p.ResolveScript("ep2.txt"); got != filepath.Join(p.ScriptsDir, "ep2.txt") {
		t.Errorf("ResolveScript = %s", got)
	}
	if got := p.OutputPath("scripts/ep2.txt", ".mp3"); got != filepath.Join(p.OutputDir, "ep2.mp3") {
		t.Errorf("OutputPath = %s", got)
	}
}
