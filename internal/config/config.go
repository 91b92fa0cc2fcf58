// Package config provides the configuration schema, loader, and TTS provider
// registry for scriptcast.
package config

import (
	"maps"
	"slices"
	"time"

	"github.com/MrWong99/scriptcast/internal/emotion"
	"github.com/MrWong99/scriptcast/internal/voice"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Defaults applied by [ApplyDefaults] to zero-valued fields.
const (
	DefaultNormalGapMS            = 150
	DefaultPauseGapMS             = 800
	DefaultSampleRate             = 44100
	DefaultConcurrency            = 1
	DefaultMaxConsecutiveFailures = 5
)

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`

	// CredentialsFile is a YAML file holding secrets, resolved relative to
	// the config file. Its api_key fills providers.tts.api_key when that is
	// empty.
	CredentialsFile string `yaml:"credentials_file"`

	// Voices maps a canonical voice name to its profile.
	Voices map[string]VoiceConfig `yaml:"voices"`

	// Aliases maps script speaker labels to voice names.
	Aliases map[string]string `yaml:"aliases"`

	// DefaultVoice receives lines whose speaker matches no voice or alias.
	// Empty selects the alphabetically first voice.
	DefaultVoice string `yaml:"default_voice"`

	// Emotions adds user-defined tags to the built-in emotion table, keyed
	// by bracketed tag, e.g. "[nostalgisch]".
	Emotions map[string]EmotionConfig `yaml:"emotions"`

	Generation GenerationConfig `yaml:"generation"`
	Audio      AudioConfig      `yaml:"audio"`
	Mastering  MasteringConfig  `yaml:"mastering"`
	Storage    StorageConfig    `yaml:"storage"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// ServerConfig holds process-wide settings.
type ServerConfig struct {
	LogLevel LogLevel `yaml:"log_level"`
}

// ProvidersConfig selects the synthesis provider.
type ProvidersConfig struct {
	TTS ProviderEntry `yaml:"tts"`
}

// ProviderEntry is the configuration block of a provider.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation ("elevenlabs", "coqui").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider.
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above.
	Options map[string]any `yaml:"options"`
}

// VoiceConfig is the profile of one synthesis voice. Unset optional fields
// fall back to the global defaults.
type VoiceConfig struct {
	// VoiceID is the provider-specific voice identifier.
	VoiceID string `yaml:"voice_id"`

	DefaultStability *float64 `yaml:"default_stability"`
	DefaultStyle     *float64 `yaml:"default_style"`
	SimilarityBoost  *float64 `yaml:"similarity_boost"`
	SpeakerBoost     *bool    `yaml:"speaker_boost"`

	// VolumeDB is a gain trim applied to every clip of this voice.
	VolumeDB float64 `yaml:"volume_db"`

	// Emotions overrides the global table for this voice, keyed by
	// simplified emotion key ("vrolijk", "heel_rustig", "excited").
	Emotions map[string]EmotionOverride `yaml:"emotions"`
}

// EmotionOverride replaces stability and/or style for one emotion.
type EmotionOverride struct {
	Stability *float64 `yaml:"stability"`
	Style     *float64 `yaml:"style"`
}

// EmotionConfig is a user-defined emotion table entry.
type EmotionConfig struct {
	Stability float64 `yaml:"stability"`
	Style     float64 `yaml:"style"`

	// Aliases are extra bracketed spellings resolving to this tag.
	Aliases []string `yaml:"aliases"`
}

// GenerationConfig controls segment synthesis.
type GenerationConfig struct {
	// WorkDir holds the per-segment clips. Empty uses a temporary directory.
	WorkDir string `yaml:"work_dir"`

	// KeepTemp keeps segment clips after assembly.
	KeepTemp bool `yaml:"keep_temp"`

	// Concurrency bounds parallel synthesis calls. 1 is sequential.
	Concurrency int `yaml:"concurrency"`

	// MaxConsecutiveFailures opens the circuit breaker around the provider.
	// 0 selects the default; a negative value disables the breaker.
	MaxConsecutiveFailures int `yaml:"max_consecutive_failures"`
}

// AudioConfig controls clip assembly.
type AudioConfig struct {
	NormalGapMS int `yaml:"normal_gap_ms"`
	PauseGapMS  int `yaml:"pause_gap_ms"`
	SampleRate  int `yaml:"sample_rate"`
}

// NormalGap returns the silence between consecutive segments.
func (a AudioConfig) NormalGap() time.Duration {
	return time.Duration(a.NormalGapMS) * time.Millisecond
}

// PauseGap returns the silence inserted at a pause marker.
func (a AudioConfig) PauseGap() time.Duration {
	return time.Duration(a.PauseGapMS) * time.Millisecond
}

// MasteringConfig controls the optional SoX mastering pass.
type MasteringConfig struct {
	Enabled bool   `yaml:"enabled"`
	Preset  string `yaml:"preset"`

	// Tool paths; empty means search $PATH and the usual install locations.
	SoxPath     string `yaml:"sox_path"`
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`
}

// StorageConfig configures the episode history store.
type StorageConfig struct {
	// PostgresDSN is the PostgreSQL connection string. Empty keeps history
	// in memory for the lifetime of the process.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// TelemetryConfig configures metrics export.
type TelemetryConfig struct {
	// MetricsAddr serves Prometheus metrics at /metrics when non-empty.
	MetricsAddr string `yaml:"metrics_addr"`
}

// ApplyDefaults fills zero-valued tuning fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Audio.NormalGapMS == 0 {
		cfg.Audio.NormalGapMS = DefaultNormalGapMS
	}
	if cfg.Audio.PauseGapMS == 0 {
		cfg.Audio.PauseGapMS = DefaultPauseGapMS
	}
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = DefaultSampleRate
	}
	if cfg.Generation.Concurrency == 0 {
		cfg.Generation.Concurrency = DefaultConcurrency
	}
	if cfg.Generation.MaxConsecutiveFailures == 0 {
		cfg.Generation.MaxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}
}

// EmotionTable builds the emotion table: the built-in entries plus those in
// cfg.Emotions.
func (cfg *Config) EmotionTable() (*emotion.Table, error) {
	var entries []emotion.Entry
	aliases := make(map[string]emotion.Tag)
	for _, tag := range slices.Sorted(maps.Keys(cfg.Emotions)) {
		e := cfg.Emotions[tag]
		entries = append(entries, emotion.Entry{
			Tag:      emotion.Tag(tag),
			Settings: emotion.Settings{Stability: e.Stability, Style: e.Style},
		})
		for _, a := range e.Aliases {
			aliases[a] = emotion.Tag(tag)
		}
	}
	return emotion.NewTable(entries, aliases)
}

// VoiceRegistry builds the voice registry from cfg against table.
func (cfg *Config) VoiceRegistry(table *emotion.Table) (*voice.Registry, error) {
	profiles := make([]voice.Profile, 0, len(cfg.Voices))
	for _, name := range slices.Sorted(maps.Keys(cfg.Voices)) {
		v := cfg.Voices[name]
		p := voice.Profile{
			Name:            name,
			VoiceID:         v.VoiceID,
			Stability:       v.DefaultStability,
			Style:           v.DefaultStyle,
			SimilarityBoost: v.SimilarityBoost,
			SpeakerBoost:    v.SpeakerBoost,
			VolumeDB:        v.VolumeDB,
		}
		if len(v.Emotions) > 0 {
			p.Emotions = make(map[string]voice.Override, len(v.Emotions))
			for key, o := range v.Emotions {
				p.Emotions[key] = voice.Override{Stability: o.Stability, Style: o.Style}
			}
		}
		profiles = append(profiles, p)
	}

	var opts []voice.Option
	if cfg.DefaultVoice != "" {
		opts = append(opts, voice.WithDefaultVoice(cfg.DefaultVoice))
	}
	return voice.NewRegistry(table, profiles, cfg.Aliases, opts...)
}
