// Package voice resolves script speaker labels to configured voices and
// (speaker, emotion) pairs to synthesis settings.
//
// Settings are resolved through a fixed hierarchy, first match wins:
//
//  1. the voice's override for the emotion, field by field falling back to
//     the voice's own defaults;
//  2. the voice's defaults;
//  3. the global emotion table, when the voice is unknown;
//  4. nothing, leaving the provider defaults in charge.
//
// A [Registry] is immutable after construction and safe for concurrent use.
package voice

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/scriptcast/internal/emotion"
)

// ErrNoVoices is returned by [NewRegistry] when no profile is configured.
var ErrNoVoices = errors.New("voice: no voices configured")

const defaultSuggestThreshold = 0.80

// Override holds per-emotion settings for one voice. Nil fields fall back to
// the voice defaults.
type Override struct {
	Stability *float64
	Style     *float64
}

// Profile is the configuration of one voice.
type Profile struct {
	// Name is the canonical voice name scripts and aliases refer to.
	Name string

	// VoiceID is the provider-specific voice identifier.
	VoiceID string

	// Stability and Style are the voice defaults. Nil means the package
	// fallback constant.
	Stability *float64
	Style     *float64

	SimilarityBoost *float64
	SpeakerBoost    *bool

	// VolumeDB is the gain applied to this voice's clips during assembly.
	VolumeDB float64

	// Emotions maps simplified emotion keys (see [emotion.Key]) to overrides.
	// Legacy keys such as "excited" are accepted and stored under their
	// canonical key.
	Emotions map[string]Override
}

// Via describes how a speaker label was matched to a voice.
type Via int

const (
	ViaAlias Via = iota
	ViaDirect
	ViaFallback
)

func (v Via) String() string {
	switch v {
	case ViaAlias:
		return "alias"
	case ViaDirect:
		return "direct"
	case ViaFallback:
		return "fallback"
	default:
		return fmt.Sprintf("Via(%d)", int(v))
	}
}

// Resolution is the outcome of [Registry.Lookup].
type Resolution struct {
	// Label is the normalised speaker label from the script.
	Label string

	// Name is the voice the label resolved to.
	Name string

	// Profile is the voice configuration. Never nil.
	Profile *Profile

	Via Via

	// Suggestion is the closest configured voice or alias name when Via is
	// ViaFallback and a reasonably similar name exists.
	Suggestion string
}

// Option is a functional option for configuring a [Registry].
type Option func(*Registry)

// WithDefaultVoice sets the voice unknown speaker labels fall back to. When
// unset, the alphabetically first voice is used.
func WithDefaultVoice(name string) Option {
	return func(r *Registry) {
		r.defaultVoice = NormalizeLabel(name)
	}
}

// WithSuggestThreshold sets the minimum Jaro-Winkler similarity for a "did
// you mean" suggestion. Default: 0.80.
func WithSuggestThreshold(threshold float64) Option {
	return func(r *Registry) {
		r.suggestThreshold = threshold
	}
}

// Registry holds the configured voices and aliases.
type Registry struct {
	table            *emotion.Table
	profiles         map[string]*Profile
	aliases          map[string]string
	names            []string
	defaultVoice     string
	suggestThreshold float64
}

// NewRegistry validates profiles and aliases and builds a registry. Every
// emotion key must be known to table; every alias must target a configured
// voice. All problems are reported together.
func NewRegistry(table *emotion.Table, profiles []Profile, aliases map[string]string, opts ...Option) (*Registry, error) {
	if table == nil {
		return nil, errors.New("voice: emotion table must not be nil")
	}
	if len(profiles) == 0 {
		return nil, ErrNoVoices
	}

	r := &Registry{
		table:            table,
		profiles:         make(map[string]*Profile, len(profiles)),
		aliases:          make(map[string]string, len(aliases)),
		suggestThreshold: defaultSuggestThreshold,
	}
	for _, o := range opts {
		o(r)
	}

	var errs []error
	for i := range profiles {
		p, err := r.normalizeProfile(profiles[i])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := r.profiles[p.Name]; dup {
			errs = append(errs, fmt.Errorf("voice: %q defined twice", p.Name))
			continue
		}
		r.profiles[p.Name] = p
		r.names = append(r.names, p.Name)
	}
	sort.Strings(r.names)

	for label, target := range aliases {
		l, t := NormalizeLabel(label), NormalizeLabel(target)
		if l == "" {
			errs = append(errs, errors.New("voice: alias with empty label"))
			continue
		}
		if _, ok := r.profiles[t]; !ok {
			errs = append(errs, fmt.Errorf("voice: alias %q targets unknown voice %q", label, target))
			continue
		}
		if prev, dup := r.aliases[l]; dup && prev != t {
			errs = append(errs, fmt.Errorf("voice: alias %q maps to both %q and %q", l, prev, t))
			continue
		}
		r.aliases[l] = t
	}

	if r.defaultVoice != "" {
		if _, ok := r.profiles[r.defaultVoice]; !ok {
			errs = append(errs, fmt.Errorf("voice: default voice %q is not configured", r.defaultVoice))
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if r.defaultVoice == "" {
		r.defaultVoice = r.names[0]
	}
	return r, nil
}

func (r *Registry) normalizeProfile(in Profile) (*Profile, error) {
	name := NormalizeLabel(in.Name)
	if name == "" {
		return nil, errors.New("voice: profile with empty name")
	}
	if strings.TrimSpace(in.VoiceID) == "" {
		return nil, fmt.Errorf("voice: %s: voice_id must not be empty", name)
	}

	var errs []error
	checkUnit := func(field string, v *float64) {
		if v != nil && (*v < 0 || *v > 1) {
			errs = append(errs, fmt.Errorf("voice: %s: %s %.2f is out of range [0, 1]", name, field, *v))
		}
	}
	checkUnit("default_stability", in.Stability)
	checkUnit("default_style", in.Style)
	checkUnit("similarity_boost", in.SimilarityBoost)

	p := in
	p.Name = name
	p.Emotions = make(map[string]Override, len(in.Emotions))

	keys := make([]string, 0, len(in.Emotions))
	for k := range in.Emotions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		tag, ok := r.table.TagForKey(k)
		if !ok {
			errs = append(errs, fmt.Errorf("voice: %s: unknown emotion %q", name, k))
			continue
		}
		canonical := emotion.Key(tag)
		if _, dup := p.Emotions[canonical]; dup {
			errs = append(errs, fmt.Errorf("voice: %s: emotion %q configured twice (as %q)", name, canonical, k))
			continue
		}
		ov := in.Emotions[k]
		checkUnit(k+"_stability", ov.Stability)
		checkUnit(k+"_style", ov.Style)
		p.Emotions[canonical] = ov
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &p, nil
}

// NormalizeLabel lower-cases a speaker label and joins inner whitespace with
// underscores, so "Host A" and "host_a" name the same speaker.
func NormalizeLabel(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), "_")
}

// Names returns the configured voice names in alphabetical order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Profile returns the configuration of voice name.
func (r *Registry) Profile(name string) (*Profile, bool) {
	p, ok := r.profiles[NormalizeLabel(name)]
	return p, ok
}

// DefaultVoice returns the voice unknown labels fall back to.
func (r *Registry) DefaultVoice() string { return r.defaultVoice }

// Table returns the emotion table the registry validates against.
func (r *Registry) Table() *emotion.Table { return r.table }

// Lookup resolves a script speaker label: alias table first, then a direct
// voice name match, then the default voice. It never fails; callers should
// warn when the result is [ViaFallback].
func (r *Registry) Lookup(label string) Resolution {
	l := NormalizeLabel(label)
	if name, ok := r.aliases[l]; ok {
		return Resolution{Label: l, Name: name, Profile: r.profiles[name], Via: ViaAlias}
	}
	if p, ok := r.profiles[l]; ok {
		return Resolution{Label: l, Name: l, Profile: p, Via: ViaDirect}
	}
	return Resolution{
		Label:      l,
		Name:       r.defaultVoice,
		Profile:    r.profiles[r.defaultVoice],
		Via:        ViaFallback,
		Suggestion: r.suggest(l),
	}
}

// suggest returns the configured voice or alias closest to label.
func (r *Registry) suggest(label string) string {
	if label == "" {
		return ""
	}
	best, bestScore := "", r.suggestThreshold
	consider := func(candidate string) {
		if s := matchr.JaroWinkler(label, candidate, false); s >= bestScore {
			if s > bestScore || best == "" || candidate < best {
				best, bestScore = candidate, s
			}
		}
	}
	for _, n := range r.names {
		consider(n)
	}
	for a := range r.aliases {
		consider(a)
	}
	return best
}

// Resolve returns the settings for tag spoken by voice name. An empty tag
// means the line carries no emotion. The result only sets stability and
// style; it is empty when neither the voice nor the tag is known.
func (r *Registry) Resolve(tag emotion.Tag, name string) Settings {
	p, known := r.profiles[NormalizeLabel(name)]
	if known {
		stability, style := p.defaults()
		if tag != "" {
			if canonical, ok := r.table.Canonical(string(tag)); ok {
				if ov, ok := p.Emotions[emotion.Key(canonical)]; ok {
					if ov.Stability != nil {
						stability = *ov.Stability
					}
					if ov.Style != nil {
						style = *ov.Style
					}
				}
			}
		}
		return Settings{Stability: Float(stability), Style: Float(style)}
	}

	if tag != "" {
		if s, ok := r.table.Lookup(tag); ok {
			return Settings{Stability: Float(s.Stability), Style: Float(s.Style)}
		}
	}
	return Settings{}
}

// ResolveDefaults returns all four settings for voice name, using the package
// fallback constants for anything the profile leaves unset or when the voice
// is unknown.
func (r *Registry) ResolveDefaults(name string) Settings {
	out := Settings{
		Stability:       Float(DefaultStability),
		Style:           Float(DefaultStyle),
		SimilarityBoost: Float(DefaultSimilarityBoost),
		SpeakerBoost:    Bool(DefaultSpeakerBoost),
	}
	p, ok := r.profiles[NormalizeLabel(name)]
	if !ok {
		return out
	}
	return out.Merge(Settings{
		Stability:       p.Stability,
		Style:           p.Style,
		SimilarityBoost: p.SimilarityBoost,
		SpeakerBoost:    p.SpeakerBoost,
	})
}

// ResolveVolumeTrim returns the configured gain of voice name in dB, or 0.
func (r *Registry) ResolveVolumeTrim(name string) float64 {
	if p, ok := r.profiles[NormalizeLabel(name)]; ok {
		return p.VolumeDB
	}
	return 0
}

// SettingsForLine resolves the first emotion tag in line for voice name. A
// line without tags yields the voice defaults, or empty settings when the
// voice is unknown.
func (r *Registry) SettingsForLine(line, name string) Settings {
	if tag, ok := r.table.Primary(line); ok {
		return r.Resolve(tag, name)
	}
	if _, ok := r.profiles[NormalizeLabel(name)]; ok {
		return r.ResolveDefaults(name)
	}
	return Settings{}
}

func (p *Profile) defaults() (stability, style float64) {
	stability, style = DefaultStability, DefaultStyle
	if p.Stability != nil {
		stability = *p.Stability
	}
	if p.Style != nil {
		style = *p.Style
	}
	return stability, style
}
