package podcast

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/MrWong99/scriptcast/internal/emotion"
	"github.com/MrWong99/scriptcast/internal/markup"
	"github.com/MrWong99/scriptcast/internal/script"
	"github.com/MrWong99/scriptcast/internal/voice"
	"github.com/MrWong99/scriptcast/pkg/provider/tts"
)

// ErrInvalidScript is returned by [Generator.Plan] for input that is not
// UTF-8 text.
var ErrInvalidScript = errors.New("podcast: script is not valid UTF-8")

// Warning kinds.
const (
	WarnUnparseable      = "unparseable_line"
	WarnUnknownSpeaker   = "unknown_speaker"
	WarnMultipleEmotions = "multiple_emotions"
	WarnUnbalanced       = "unbalanced_markup"
	WarnEmptyText        = "empty_text"
)

// Warning is a recoverable script problem found while planning.
type Warning struct {
	Line    int
	Kind    string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Message)
}

// Segment is one planned synthesis call.
type Segment struct {
	// Index is the playback position. Indices are strictly increasing from 0.
	Index int

	// Line is the 1-based source line number.
	Line int

	// Speaker is the normalised label written in the script.
	Speaker string

	// Voice is the configured voice the speaker resolved to.
	Voice string

	VoiceID string

	// Text is the rewritten, SSML-annotated text sent to the provider.
	Text string

	// Emotions are the canonical tags found on the line in order of
	// appearance. The first one drives Settings.
	Emotions []emotion.Tag

	Settings tts.VoiceSettings

	// GainDB is the volume trim of Voice.
	GainDB float64
}

// Plan is the result of turning a script into segments.
type Plan struct {
	Segments []Segment

	// PauseAfter lists, per pause marker, the index of the segment the pause
	// follows. -1 means the pause precedes the first segment.
	PauseAfter []int

	Warnings []Warning
}

// Speakers returns the distinct voices used by the plan in order of first
// use.
func (p *Plan) Speakers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range p.Segments {
		if !seen[s.Voice] {
			seen[s.Voice] = true
			out = append(out, s.Voice)
		}
	}
	return out
}

// Plan classifies every line of text and builds the segments and pause
// positions. It calls no provider and touches no files.
func (g *Generator) Plan(text string) (*Plan, error) {
	if !utf8.ValidString(text) {
		return nil, ErrInvalidScript
	}

	p := &Plan{}
	warn := func(line int, kind, format string, args ...any) {
		p.Warnings = append(p.Warnings, Warning{Line: line, Kind: kind, Message: fmt.Sprintf(format, args...)})
	}

	for _, l := range script.Parse(text) {
		switch l.Kind {
		case script.Blank, script.Comment:
			continue
		case script.Unparseable:
			warn(l.Number, WarnUnparseable, "unparseable line skipped: %q", truncate(strings.TrimSpace(l.Raw), 60))
			continue
		case script.Pause:
			p.PauseAfter = append(p.PauseAfter, len(p.Segments)-1)
			continue
		}

		res := g.voices.Lookup(l.Speaker)
		if res.Via == voice.ViaFallback {
			msg := fmt.Sprintf("unknown speaker %q; using voice %q", l.Speaker, res.Name)
			if res.Suggestion != "" {
				msg += fmt.Sprintf(" (did you mean %q?)", res.Suggestion)
			}
			warn(l.Number, WarnUnknownSpeaker, "%s", msg)
		}

		// Tags are searched on the whole raw line, speaker prefix included.
		tags := g.table.ExtractAll(l.Raw)
		if len(tags) > 1 {
			warn(l.Number, WarnMultipleEmotions, "%d emotions %v on one line; using %s", len(tags), tags, tags[0])
		}

		body := l.Text
		if err := markup.Validate(body); err != nil {
			warn(l.Number, WarnUnbalanced, "%v; unmatched markers removed", err)
			body = markup.Balance(body)
		}
		processed := g.rewriter.Rewrite(body)
		if processed == "" {
			warn(l.Number, WarnEmptyText, "no speakable text for %q", l.Speaker)
			continue
		}

		p.Segments = append(p.Segments, Segment{
			Index:    len(p.Segments),
			Line:     l.Number,
			Speaker:  l.Speaker,
			Voice:    res.Name,
			VoiceID:  res.Profile.VoiceID,
			Text:     processed,
			Emotions: tags,
			Settings: g.settings(res, tags),
			GainDB:   g.voices.ResolveVolumeTrim(res.Name),
		})
	}
	return p, nil
}

// settings merges the emotion settings over the defaults of the resolved
// voice. A speaker that fell back to the default voice has no profile of its
// own, so its emotion comes from the global table.
func (g *Generator) settings(res voice.Resolution, tags []emotion.Tag) tts.VoiceSettings {
	var tag emotion.Tag
	if len(tags) > 0 {
		tag = tags[0]
	}
	name := res.Name
	if res.Via == voice.ViaFallback {
		name = res.Label
	}
	return g.voices.ResolveDefaults(res.Name).Merge(g.voices.Resolve(tag, name)).Complete()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
