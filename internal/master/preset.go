// Package master applies a fixed SoX mastering chain to assembled episodes,
// encodes them with ffmpeg and analyses the result with ffprobe.
//
// The external tools are optional. When SoX is missing the input is copied to
// the output unchanged; when ffmpeg is missing an MP3 target falls back to WAV.
package master

import (
	"slices"
	"strconv"
)

// Compression selects the strength of the dynamic range stage.
type Compression string

const (
	CompressionLight  Compression = "light"
	CompressionMedium Compression = "medium"
	CompressionHeavy  Compression = "heavy"
)

// DefaultPreset is used when no preset is configured.
const DefaultPreset = "podcast"

// Preset is a named mastering recipe.
type Preset struct {
	Name        string
	Title       string
	Description string

	// Bitrate is the MP3 bitrate handed to ffmpeg, e.g. "192k".
	Bitrate string

	// PeakDB is the target peak level of the final "norm" stage.
	PeakDB float64

	Compression Compression
}

var presets = map[string]Preset{
	"podcast": {
		Name:        "podcast",
		Title:       "Podcast Standard",
		Description: "Optimized for speech, broadcast-ready",
		Bitrate:     "192k",
		PeakDB:      -3,
		Compression: CompressionMedium,
	},
	"audiobook": {
		Name:        "audiobook",
		Title:       "Audiobook Quality",
		Description: "High quality for long listening with balanced dynamics",
		Bitrate:     "128k",
		PeakDB:      -3,
		Compression: CompressionHeavy,
	},
	"broadcast": {
		Name:        "broadcast",
		Title:       "Broadcast Standard",
		Description: "Radio/TV broadcast ready with higher loudness",
		Bitrate:     "320k",
		PeakDB:      -1,
		Compression: CompressionLight,
	},
	"voice_only": {
		Name:        "voice_only",
		Title:       "Voice Only",
		Description: "Maximum intelligibility with strong compression",
		Bitrate:     "128k",
		PeakDB:      -1,
		Compression: CompressionHeavy,
	},
}

// LookupPreset returns the preset registered under name.
func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

// PresetNames returns the names of all presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Presets returns all presets sorted by name.
func Presets() []Preset {
	names := PresetNames()
	out := make([]Preset, len(names))
	for i, n := range names {
		out[i] = presets[n]
	}
	return out
}

// compressionStage returns the compand transfer and make-up gain for c.
// Unknown values use the medium stage.
func compressionStage(c Compression) []string {
	switch c {
	case CompressionHeavy:
		return []string{"compand", "0.05,0.2", "6:-40,-40,-25,-25,-15,-15", "0", "-90", "0.1", "gain", "-8"}
	case CompressionLight:
		return []string{"compand", "0.1,0.3", "6:-25,-25,-15,-15,-5,-5", "0", "-90", "0.2", "gain", "-3"}
	default:
		return []string{"compand", "0.05,0.2", "6:-30,-30,-20,-20,-10,-10", "0", "-90", "0.1", "gain", "-6"}
	}
}

// SoxArgs returns the sox argument list that masters in into out with p.
//
// The chain is: noise gate, 80 Hz high-pass, compression, three-band EQ,
// de-esser, limiter, safety limiter, peak normalisation.
func SoxArgs(in, out string, p Preset) []string {
	args := []string{in, out}

	// noise gate
	args = append(args, "compand", "0.1,0.2", "-inf,-40.1,-inf,-40,-40", "0", "-90", "0.1")
	args = append(args, "highpass", "80")
	args = append(args, compressionStage(p.Compression)...)

	// warmth, presence, harshness
	args = append(args,
		"equalizer", "200", "0.7", "2",
		"equalizer", "3000", "0.5", "1.5",
		"equalizer", "8000", "0.3", "-2",
	)

	// de-esser
	args = append(args,
		"compand", "0.01,0.05", "6:-15,-15,-10,-8,-5,-5", "0", "-90", "0.01",
		"equalizer", "6500", "0.8", "-3",
	)

	args = append(args, "compand", "0.01,0.02", "6:-20,-20,-10,-10", "0", "-90", "0.01")
	args = append(args, "compand", "0.001,0.001", "6:-6,-6,-3,-3,0,-3", "0", "-90", "0.001")
	args = append(args, "norm", strconv.FormatFloat(p.PeakDB, 'f', -1, 64))
	return args
}

// wavArgs converts any input ffmpeg understands to 16-bit 44.1 kHz WAV.
func wavArgs(in, out string) []string {
	return []string{"-i", in, "-y", "-acodec", "pcm_s16le", "-ar", "44100", out}
}

// mp3Args encodes in to MP3 at bitrate.
func mp3Args(in, out, bitrate string) []string {
	return []string{"-i", in, "-y", "-codec:a", "libmp3lame", "-b:a", bitrate, "-ar", "44100", out}
}
