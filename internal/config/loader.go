package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/MrWong99/scriptcast/internal/master"
	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists the TTS providers that ship with scriptcast.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = []string{"elevenlabs", "coqui"}

// Credentials is the schema of the credentials file.
type Credentials struct {
	APIKey string `yaml:"api_key"`
}

// Load reads the YAML configuration file at path, merges the credentials
// file it references and returns a validated [Config]. A relative
// credentials_file is resolved against the directory of path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	if err := applyCredentials(cfg, filepath.Dir(path)); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// A relative credentials_file is resolved against the working directory.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg, err := decode(r)
	if err != nil {
		return nil, err
	}
	if err := applyCredentials(cfg, ""); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadCredentials reads a credentials file.
func LoadCredentials(path string) (*Credentials, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open credentials %q: %w", path, err)
	}
	defer f.Close()

	c := &Credentials{}
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode credentials %q: %w", path, err)
	}
	return c, nil
}

func applyCredentials(cfg *Config, baseDir string) error {
	if cfg.CredentialsFile == "" {
		return nil
	}
	path := cfg.CredentialsFile
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	c, err := LoadCredentials(path)
	if err != nil {
		return err
	}
	if cfg.Providers.TTS.APIKey == "" {
		cfg.Providers.TTS.APIKey = c.APIKey
	}
	return nil
}

// Validate checks that cfg contains a coherent set of values. It builds the
// emotion table and voice registry so that unknown emotion keys and dangling
// aliases are caught before any synthesis. It returns a joined error listing
// all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider
	tts := cfg.Providers.TTS
	switch {
	case tts.Name == "":
		errs = append(errs, errors.New("providers.tts.name is required"))
	case !slices.Contains(ValidProviderNames, tts.Name):
		slog.Warn("unknown provider name; may be a typo or third-party provider",
			"kind", "tts",
			"name", tts.Name,
			"known", ValidProviderNames,
		)
	}
	if tts.Name == "elevenlabs" && tts.APIKey == "" {
		errs = append(errs, errors.New("providers.tts.api_key is required for elevenlabs (set it directly or via credentials_file)"))
	}
	if tts.Name == "coqui" && tts.BaseURL == "" {
		errs = append(errs, errors.New("providers.tts.base_url is required for coqui"))
	}

	// Emotions and voices
	table, err := cfg.EmotionTable()
	if err != nil {
		errs = append(errs, fmt.Errorf("emotions: %w", err))
	} else if _, err := cfg.VoiceRegistry(table); err != nil {
		errs = append(errs, fmt.Errorf("voices: %w", err))
	}

	// Generation
	if cfg.Generation.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("generation.concurrency %d must not be negative", cfg.Generation.Concurrency))
	}

	// Audio
	if cfg.Audio.NormalGapMS < 0 {
		errs = append(errs, fmt.Errorf("audio.normal_gap_ms %d must not be negative", cfg.Audio.NormalGapMS))
	}
	if cfg.Audio.PauseGapMS < 0 {
		errs = append(errs, fmt.Errorf("audio.pause_gap_ms %d must not be negative", cfg.Audio.PauseGapMS))
	}
	if cfg.Audio.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d must not be negative", cfg.Audio.SampleRate))
	}

	// Mastering
	if p := cfg.Mastering.Preset; p != "" {
		if _, ok := master.LookupPreset(p); !ok {
			errs = append(errs, fmt.Errorf("mastering.preset %q is invalid; valid values: %s", p, strings.Join(master.PresetNames(), ", ")))
		}
	}

	// Storage
	if cfg.Storage.PostgresDSN == "" {
		slog.Debug("storage.postgres_dsn is empty; episode history is kept in memory only")
	}

	return errors.Join(errs...)
}
