package voice

import "github.com/MrWong99/scriptcast/pkg/provider/tts"

// Fallback values used by [Registry.ResolveDefaults] when a profile leaves a
// field unset.
const (
	DefaultStability       = 0.7
	DefaultStyle           = 0.4
	DefaultSimilarityBoost = 0.8
	DefaultSpeakerBoost    = true
)

// Settings is a partial set of synthesis parameters. A nil field is unset;
// [Settings.Merge] layers one partial record over another and
// [Settings.Complete] fills the gaps.
type Settings struct {
	Stability       *float64
	Style           *float64
	SimilarityBoost *float64
	SpeakerBoost    *bool
}

// Float returns a pointer to v. Convenience for building [Settings] literals.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// IsEmpty reports whether no field is set.
func (s Settings) IsEmpty() bool {
	return s.Stability == nil && s.Style == nil && s.SimilarityBoost == nil && s.SpeakerBoost == nil
}

// Merge returns s with every field that is set in over replaced by over's
// value.
func (s Settings) Merge(over Settings) Settings {
	if over.Stability != nil {
		s.Stability = over.Stability
	}
	if over.Style != nil {
		s.Style = over.Style
	}
	if over.SimilarityBoost != nil {
		s.SimilarityBoost = over.SimilarityBoost
	}
	if over.SpeakerBoost != nil {
		s.SpeakerBoost = over.SpeakerBoost
	}
	return s
}

// Complete converts s to provider settings, using the package fallback
// constants for unset fields.
func (s Settings) Complete() tts.VoiceSettings {
	out := tts.VoiceSettings{
		Stability:       DefaultStability,
		Style:           DefaultStyle,
		SimilarityBoost: DefaultSimilarityBoost,
		UseSpeakerBoost: DefaultSpeakerBoost,
	}
	if s.Stability != nil {
		out.Stability = *s.Stability
	}
	if s.Style != nil {
		out.Style = *s.Style
	}
	if s.SimilarityBoost != nil {
		out.SimilarityBoost = *s.SimilarityBoost
	}
	if s.SpeakerBoost != nil {
		out.UseSpeakerBoost = *s.SpeakerBoost
	}
	return out
}
