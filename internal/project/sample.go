package project

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/MrWong99/scriptcast/internal/config"
	"github.com/MrWong99/scriptcast/internal/master"
	"gopkg.in/yaml.v3"
)

const sampleCredentials = `# Keep this file out of version control.
api_key: your_elevenlabs_api_key_here
`

type sampleConfig struct {
	Providers struct {
		TTS sampleProvider `yaml:"tts"`
	} `yaml:"providers"`
	CredentialsFile string                 `yaml:"credentials_file"`
	Voices          map[string]sampleVoice `yaml:"voices"`
	DefaultVoice    string                 `yaml:"default_voice"`
	Generation      struct {
		Concurrency int `yaml:"concurrency"`
	} `yaml:"generation"`
	Audio struct {
		NormalGapMS int `yaml:"normal_gap_ms"`
		PauseGapMS  int `yaml:"pause_gap_ms"`
	} `yaml:"audio"`
	Mastering struct {
		Enabled bool   `yaml:"enabled"`
		Preset  string `yaml:"preset"`
	} `yaml:"mastering"`
}

type sampleProvider struct {
	Name  string `yaml:"name"`
	Model string `yaml:"model"`
}

type sampleVoice struct {
	VoiceID          string  `yaml:"voice_id"`
	DefaultStability float64 `yaml:"default_stability"`
	DefaultStyle     float64 `yaml:"default_style"`
	VolumeDB         float64 `yaml:"volume_db"`
}

var sampleComments = map[string]string{
	"providers":        "Synthesis provider. Use name: coqui with base_url for a local server.",
	"credentials_file": "The API key is read from here, relative to this file.",
	"voices": "Voice names are matched against the speaker labels in the script.\n" +
		"Per-voice emotion overrides go below a voice, for example:\n" +
		"  emotions:\n" +
		"    vrolijk: {stability: 0.4, style: 0.7}",
	"default_voice": "Receives lines whose speaker matches no voice.\n" +
		"Map other labels with an aliases block, e.g. aliases: {expert: host_a}",
	"audio":     "Silence between segments and at [PAUZE] markers.",
	"mastering": "Presets: " + strings.Join(master.PresetNames(), ", ") + ". Needs sox; ffmpeg for mp3.",
}

// SampleConfig renders the config written by [Manager.Init]. voices maps
// voice names to provider voice IDs; nil uses two placeholder hosts.
func SampleConfig(voices map[string]string) ([]byte, error) {
	if len(voices) == 0 {
		voices = map[string]string{
			"host_a": "your_voice_id_1",
			"host_b": "your_voice_id_2",
		}
	}

	var sc sampleConfig
	sc.Providers.TTS = sampleProvider{Name: "elevenlabs", Model: "eleven_multilingual_v2"}
	sc.CredentialsFile = "credentials/" + CredentialsFile
	sc.Voices = make(map[string]sampleVoice, len(voices))
	for name, id := range voices {
		if sc.DefaultVoice == "" || name < sc.DefaultVoice {
			sc.DefaultVoice = name
		}
		sc.Voices[name] = sampleVoice{
			VoiceID:          id,
			DefaultStability: 0.7,
			DefaultStyle:     0.4,
		}
	}
	sc.Generation.Concurrency = config.DefaultConcurrency
	sc.Audio.NormalGapMS = config.DefaultNormalGapMS
	sc.Audio.PauseGapMS = config.DefaultPauseGapMS
	sc.Mastering.Enabled = true
	sc.Mastering.Preset = master.DefaultPreset

	var doc yaml.Node
	if err := doc.Encode(&sc); err != nil {
		return nil, fmt.Errorf("project: encode sample config: %w", err)
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i]
		if c, ok := sampleComments[key.Value]; ok {
			key.HeadComment = c
		}
	}

	var buf bytes.Buffer
	buf.WriteString("# scriptcast project configuration\n\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("project: encode sample config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("project: encode sample config: %w", err)
	}
	return buf.Bytes(), nil
}
