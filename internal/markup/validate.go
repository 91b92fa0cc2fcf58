package markup

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrUnbalanced is the sentinel wrapped by every [*StructureError].
var ErrUnbalanced = errors.New("markup: unbalanced prosody markers")

var (
	markerRe = regexp.MustCompile(markerPattern())
	ssmlRe   = regexp.MustCompile(`<[^>]+>`)
)

func markerPattern() string {
	names := make([]string, len(prosody))
	for i, k := range prosody {
		names[i] = regexp.QuoteMeta(k.name)
	}
	return `\((/?)(` + strings.Join(names, "|") + `)\)`
}

// Issue is one unmatched prosody marker.
type Issue struct {
	// Offset is the byte offset of the marker in the validated text.
	Offset int

	// Marker is the marker as written, e.g. "(snel)".
	Marker string

	// Unclosed is true for an opener without closer, false for a closer
	// without opener.
	Unclosed bool
}

func (i Issue) String() string {
	if i.Unclosed {
		return fmt.Sprintf("%s at offset %d is never closed", i.Marker, i.Offset)
	}
	return fmt.Sprintf("%s at offset %d has no opening marker", i.Marker, i.Offset)
}

// StructureError reports unbalanced paired prosody markers.
type StructureError struct {
	Issues []Issue
}

func (e *StructureError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = is.String()
	}
	return "markup: " + strings.Join(parts, "; ")
}

func (e *StructureError) Unwrap() error { return ErrUnbalanced }

// Validate checks that every paired prosody marker in script text, such as
// "(snel)", has a matching closer of the same kind and vice versa. It returns
// nil or a [*StructureError].
func Validate(text string) error {
	issues := scan(text)
	if len(issues) == 0 {
		return nil
	}
	return &StructureError{Issues: issues}
}

// Balance removes exactly the markers [Validate] would report, leaving every
// matched pair in place.
func Balance(text string) string {
	issues := scan(text)
	if len(issues) == 0 {
		return text
	}
	var b strings.Builder
	last := 0
	for _, is := range issues {
		b.WriteString(text[last:is.Offset])
		last = is.Offset + len(is.Marker)
	}
	b.WriteString(text[last:])
	return b.String()
}

// scan returns the unmatched markers in offset order.
func scan(text string) []Issue {
	locs := markerRe.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	open := make(map[string][]int) // kind -> offsets of pending openers
	var issues []Issue
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		closing := loc[3] > loc[2]
		kind := text[loc[4]:loc[5]]
		if !closing {
			open[kind] = append(open[kind], start)
			continue
		}
		if n := len(open[kind]); n > 0 {
			open[kind] = open[kind][:n-1]
			continue
		}
		issues = append(issues, Issue{Offset: start, Marker: text[start:end]})
	}
	for kind, offsets := range open {
		for _, off := range offsets {
			issues = append(issues, Issue{Offset: off, Marker: "(" + kind + ")", Unclosed: true})
		}
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].Offset < issues[j].Offset })
	return issues
}

// StripSSML removes SSML elements and collapses the whitespace left behind,
// for providers that read markup aloud instead of interpreting it.
func StripSSML(text string) string {
	text = ssmlRe.ReplaceAllString(text, "")
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}
