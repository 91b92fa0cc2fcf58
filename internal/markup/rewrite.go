// Package markup rewrites the inline shorthand of dialogue scripts into SSML.
//
// Rewrite runs a fixed sequence of steps:
//
//  1. strip every known emotion tag (canonical and legacy spellings);
//  2. strip any remaining "[letters and spaces]" token;
//  3. collapse whitespace;
//  4. emphasis: **x** strong, *x* moderate, _x_ reduced, ~x~ soft volume,
//     bare ALLCAPS words strong;
//  5. pause phrases such as "(pauze)" become <break/> elements;
//  6. paired prosody markers such as "(snel)…(/snel)" become <prosody>.
//
// Step 6 does not check that markers are balanced; run [Validate] first, or
// [Balance] to drop the unmatched ones.
package markup

import (
	"regexp"
	"strings"

	"github.com/MrWong99/scriptcast/internal/emotion"
)

var (
	residualTagRe = regexp.MustCompile(`\[[\p{L} ]+\]`)
	spaceRe       = regexp.MustCompile(`\s+`)

	strongRe   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	moderateRe = regexp.MustCompile(`\*([^*]+)\*`)
	reducedRe  = regexp.MustCompile(`_([^_]+)_`)
	softRe     = regexp.MustCompile(`~([^~]+)~`)

	// capsRe matches a bare ALLCAPS word, or one already wrapped in a strong
	// emphasis element so that it can be left alone.
	capsRe = regexp.MustCompile(`<emphasis level="strong">[A-Z]{2,}</emphasis>|\b[A-Z]{2,}\b`)
)

type phrase struct {
	marker string
	ssml   string
}

// pauses maps unpaired pause phrases to break elements.
var pauses = []phrase{
	{"(pauze)", `<break time="0.5s"/>`},
	{"(lange pauze)", `<break time="1.0s"/>`},
	{"(kort pauze)", `<break time="0.3s"/>`},
	{"(korte pauze)", `<break time="0.3s"/>`},
	{"(lange stilte)", `<break time="2.0s"/>`},
	{"(stilte)", `<break time="1.5s"/>`},
}

// prosodyKind is one paired prosody marker.
type prosodyKind struct {
	name string // "snel" for (snel)…(/snel)
	open string
}

var prosody = []prosodyKind{
	{"fluister", `<prosody volume="x-soft">`},
	{"snel", `<prosody rate="fast">`},
	{"langzaam", `<prosody rate="slow">`},
	{"supersnel", `<prosody rate="x-fast">`},
	{"hoog", `<prosody pitch="high">`},
	{"laag", `<prosody pitch="low">`},
	{"superhoog", `<prosody pitch="x-high">`},
	{"superlaag", `<prosody pitch="x-low">`},
}

const closeProsody = `</prosody>`

func (k prosodyKind) opener() string { return "(" + k.name + ")" }
func (k prosodyKind) closer() string { return "(/" + k.name + ")" }

// Rewriter converts script shorthand to SSML. It is immutable and safe for
// concurrent use.
type Rewriter struct {
	table *emotion.Table
}

// New returns a Rewriter that strips the tags known to table.
func New(table *emotion.Table) *Rewriter {
	return &Rewriter{table: table}
}

// Rewrite converts text to SSML. It never fails; text without shorthand is
// returned unchanged apart from whitespace normalisation.
func (r *Rewriter) Rewrite(text string) string {
	text = r.table.Strip(text)
	text = residualTagRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))

	text = strongRe.ReplaceAllString(text, `<emphasis level="strong">$1</emphasis>`)
	text = moderateRe.ReplaceAllString(text, `<emphasis level="moderate">$1</emphasis>`)
	text = reducedRe.ReplaceAllString(text, `<emphasis level="reduced">$1</emphasis>`)
	text = softRe.ReplaceAllString(text, `<prosody volume="soft">$1</prosody>`)
	text = capsRe.ReplaceAllStringFunc(text, func(m string) string {
		if strings.HasPrefix(m, "<") {
			return m
		}
		return `<emphasis level="strong">` + m + `</emphasis>`
	})

	for _, p := range pauses {
		text = strings.ReplaceAll(text, p.marker, p.ssml)
	}

	for _, k := range prosody {
		text = strings.ReplaceAll(text, k.opener(), k.open)
		text = strings.ReplaceAll(text, k.closer(), closeProsody)
	}
	return text
}
