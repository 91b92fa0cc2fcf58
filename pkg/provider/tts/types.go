package tts

import "fmt"

// VoiceSettings are the numeric synthesis parameters sent with every request.
// Stability, SimilarityBoost and Style are in [0, 1].
type VoiceSettings struct {
	// Stability trades expressiveness (low) for consistency (high).
	Stability float64

	// SimilarityBoost controls how closely the output tracks the original voice.
	SimilarityBoost float64

	// Style exaggerates the speaker's style. 0 disables it.
	Style float64

	// UseSpeakerBoost enhances similarity to the original speaker.
	UseSpeakerBoost bool
}

// String renders settings compactly for logs.
func (s VoiceSettings) String() string {
	return fmt.Sprintf("stability=%.2f style=%.2f similarity=%.2f boost=%t",
		s.Stability, s.Style, s.SimilarityBoost, s.UseSpeakerBoost)
}

// Request is a single synthesis call.
type Request struct {
	// Text is the SSML-annotated text to speak.
	Text string

	// VoiceID is the provider-specific voice identifier.
	VoiceID string

	// ModelID selects the provider model. Empty uses the provider default.
	ModelID string

	// Settings are the synthesis parameters for this segment.
	Settings VoiceSettings
}

// Encoding identifies the container format of an [Audio] clip.
type Encoding string

const (
	EncodingMP3 Encoding = "mp3"
	EncodingWAV Encoding = "wav"

	// EncodingPCM is raw signed 16-bit little-endian mono PCM at Audio.SampleRate.
	EncodingPCM Encoding = "pcm"
)

// Ext returns the file extension used for clips of this encoding, without
// the leading dot.
func (e Encoding) Ext() string {
	if e == "" {
		return "bin"
	}
	return string(e)
}

// Audio is one synthesised clip.
type Audio struct {
	// Data holds the encoded clip.
	Data []byte

	// Encoding is the format of Data.
	Encoding Encoding

	// SampleRate is the sample rate in Hz. Required for EncodingPCM; informative
	// for the container formats.
	SampleRate int
}

// Voice describes a voice offered by a provider.
type Voice struct {
	// ID is the provider-specific voice identifier.
	ID string

	// Name is the human-readable voice name.
	Name string

	// Provider identifies which TTS provider this voice belongs to.
	Provider string

	// Metadata holds provider-specific voice attributes (gender, age, accent, etc.).
	Metadata map[string]string
}
