// Package script classifies the lines of a dialogue script.
//
// A script is UTF-8 text with one unit per line:
//
//	# comment, // comment, === section, --- divider
//	[lucas]: [vrolijk] Hoi!
//	[PAUZE]
//
// Blank, comment and unparseable lines are skippable. A line containing the
// pause sentinel is always a pause, even if it also looks like an utterance.
package script

import (
	"regexp"
	"strings"
)

// Kind discriminates the variants of [Line].
type Kind int

const (
	Blank Kind = iota
	Comment
	Pause
	Utterance
	Unparseable
)

func (k Kind) String() string {
	switch k {
	case Blank:
		return "blank"
	case Comment:
		return "comment"
	case Pause:
		return "pause"
	case Utterance:
		return "utterance"
	case Unparseable:
		return "unparseable"
	default:
		return "unknown"
	}
}

// PauseSentinel marks an extended silence between segments.
const PauseSentinel = "[PAUZE]"

// longSilence anywhere in a line also marks a pause.
const longSilence = "(lange stilte)"

var commentPrefixes = []string{"#", "//", "===", "---"}

// utteranceRe matches "[label]: text". Labels are letters, digits and
// underscores, with inner spaces or hyphens allowed.
var utteranceRe = regexp.MustCompile(`^\[([\p{L}\p{N}_](?:[\p{L}\p{N}_ -]*[\p{L}\p{N}_])?)\]:\s*(.*)$`)

// Line is one classified script line.
type Line struct {
	// Number is the 1-based line number in the script.
	Number int

	// Raw is the line as written, without the line terminator.
	Raw string

	Kind Kind

	// Speaker is the normalised speaker label of an utterance: lower-cased,
	// inner whitespace replaced with underscores.
	Speaker string

	// Text is the trimmed utterance body following the colon.
	Text string
}

// Skippable reports whether the line produces neither a segment nor a pause.
func (l Line) Skippable() bool {
	return l.Kind == Blank || l.Kind == Comment || l.Kind == Unparseable
}

// Classify classifies a single raw line. Rules apply in order: blank,
// comment, pause, utterance, otherwise unparseable.
func Classify(raw string) Line {
	l := Line{Raw: raw}
	trimmed := strings.TrimSpace(raw)

	if trimmed == "" {
		l.Kind = Blank
		return l
	}
	for _, p := range commentPrefixes {
		if strings.HasPrefix(trimmed, p) {
			l.Kind = Comment
			return l
		}
	}
	if strings.Contains(trimmed, PauseSentinel) || strings.Contains(trimmed, longSilence) {
		l.Kind = Pause
		return l
	}
	if m := utteranceRe.FindStringSubmatch(trimmed); m != nil {
		l.Kind = Utterance
		l.Speaker = strings.Join(strings.Fields(strings.ToLower(m[1])), "_")
		l.Text = strings.TrimSpace(m[2])
		return l
	}
	l.Kind = Unparseable
	return l
}

// Parse splits text into lines and classifies each one. "\r\n" line endings
// are accepted.
func Parse(text string) []Line {
	if text == "" {
		return nil
	}
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if raw[len(raw)-1] == "" {
		raw = raw[:len(raw)-1]
	}
	lines := make([]Line, len(raw))
	for i, r := range raw {
		lines[i] = Classify(r)
		lines[i].Number = i + 1
	}
	return lines
}
