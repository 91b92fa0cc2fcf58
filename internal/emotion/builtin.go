package emotion

import (
	"sort"
	"strings"
)

// builtinEntries is the default emotion table. Lower stability gives a more
// expressive delivery; higher style exaggerates the speaker's style.
var builtinEntries = []Entry{
	// Positive
	{Tag: "[vrolijk]", Settings: Settings{Stability: 0.3, Style: 0.7}},
	{Tag: "[blij]", Settings: Settings{Stability: 0.3, Style: 0.6}},
	{Tag: "[opgewonden]", Settings: Settings{Stability: 0.2, Style: 0.8}},
	{Tag: "[enthousiast]", Settings: Settings{Stability: 0.4, Style: 0.7}},
	{Tag: "[speels]", Settings: Settings{Stability: 0.3, Style: 0.8}},
	{Tag: "[trots]", Settings: Settings{Stability: 0.6, Style: 0.5}},
	{Tag: "[zelfverzekerd]", Settings: Settings{Stability: 0.7, Style: 0.4}},
	{Tag: "[tevreden]", Settings: Settings{Stability: 0.8, Style: 0.3}},
	{Tag: "[lachend]", Settings: Settings{Stability: 0.2, Style: 0.9}},

	// Curiosity
	{Tag: "[nieuwsgierig]", Settings: Settings{Stability: 0.4, Style: 0.6}},
	{Tag: "[geïnteresseerd]", Settings: Settings{Stability: 0.5, Style: 0.5}},
	{Tag: "[oprecht geïnteresseerd]", Settings: Settings{Stability: 0.6, Style: 0.5}},
	{Tag: "[fascinerend]", Settings: Settings{Stability: 0.4, Style: 0.7}},
	{Tag: "[verwonderd]", Settings: Settings{Stability: 0.3, Style: 0.6}},

	// Surprise
	{Tag: "[verrast]", Settings: Settings{Stability: 0.3, Style: 0.7}},
	{Tag: "[verbaasd]", Settings: Settings{Stability: 0.4, Style: 0.6}},
	{Tag: "[geschokt]", Settings: Settings{Stability: 0.2, Style: 0.8}},
	{Tag: "[onder de indruk]", Settings: Settings{Stability: 0.5, Style: 0.6}},

	// Calm
	{Tag: "[rustig]", Settings: Settings{Stability: 0.9, Style: 0.1}},
	{Tag: "[kalm]", Settings: Settings{Stability: 0.9, Style: 0.2}},
	{Tag: "[bedachtzaam]", Settings: Settings{Stability: 0.8, Style: 0.2}},
	{Tag: "[peinzend]", Settings: Settings{Stability: 0.8, Style: 0.3}},
	{Tag: "[wijsheid]", Settings: Settings{Stability: 0.9, Style: 0.2}},
	{Tag: "[serieus]", Settings: Settings{Stability: 0.8, Style: 0.3}},

	// Doubt
	{Tag: "[aarzelend]", Settings: Settings{Stability: 0.6, Style: 0.4}},
	{Tag: "[onzeker]", Settings: Settings{Stability: 0.5, Style: 0.4}},
	{Tag: "[twijfelend]", Settings: Settings{Stability: 0.6, Style: 0.3}},
	{Tag: "[voorzichtig]", Settings: Settings{Stability: 0.7, Style: 0.3}},

	// Negative
	{Tag: "[bezorgd]", Settings: Settings{Stability: 0.5, Style: 0.5}},
	{Tag: "[teleurgesteld]", Settings: Settings{Stability: 0.6, Style: 0.4}},
	{Tag: "[verdrietig]", Settings: Settings{Stability: 0.7, Style: 0.3}},
	{Tag: "[melancholisch]", Settings: Settings{Stability: 0.8, Style: 0.3}},

	// Tone
	{Tag: "[ironisch]", Settings: Settings{Stability: 0.4, Style: 0.6}},
	{Tag: "[sarcastisch]", Settings: Settings{Stability: 0.5, Style: 0.7}},
	{Tag: "[dromerig]", Settings: Settings{Stability: 0.7, Style: 0.4}},
	{Tag: "[mysterieus]", Settings: Settings{Stability: 0.6, Style: 0.5}},
	{Tag: "[fluisterend]", Settings: Settings{Stability: 0.8, Style: 0.2}},

	// Intensity
	{Tag: "[heel rustig]", Settings: Settings{Stability: 0.95, Style: 0.1}},
	{Tag: "[super enthousiast]", Settings: Settings{Stability: 0.1, Style: 0.9}},
	{Tag: "[licht geamuseerd]", Settings: Settings{Stability: 0.6, Style: 0.4}},
	{Tag: "[diep geraakt]", Settings: Settings{Stability: 0.7, Style: 0.5}},
}

type alias struct {
	spelling string
	target   Tag
}

// builtinAliases maps English markers onto canonical tags. The upper-case
// forms are the original legacy markers; lower-case forms are accepted too.
var builtinAliases = legacyAliases(map[string]Tag{
	"excited":      "[opgewonden]",
	"thoughtful":   "[bedachtzaam]",
	"surprised":    "[verrast]",
	"calm":         "[kalm]",
	"enthusiastic": "[enthousiast]",
	"happy":        "[blij]",
	"cheerful":     "[vrolijk]",
	"playful":      "[speels]",
	"proud":        "[trots]",
	"confident":    "[zelfverzekerd]",
	"content":      "[tevreden]",
	"laughing":     "[lachend]",
	"curious":      "[nieuwsgierig]",
	"interested":   "[geïnteresseerd]",
	"amazed":       "[verwonderd]",
	"astonished":   "[verbaasd]",
	"shocked":      "[geschokt]",
	"impressed":    "[onder de indruk]",
	"quiet":        "[rustig]",
	"pensive":      "[peinzend]",
	"wise":         "[wijsheid]",
	"serious":      "[serieus]",
	"hesitant":     "[aarzelend]",
	"unsure":       "[onzeker]",
	"doubtful":     "[twijfelend]",
	"careful":      "[voorzichtig]",
	"worried":      "[bezorgd]",
	"disappointed": "[teleurgesteld]",
	"sad":          "[verdrietig]",
	"melancholic":  "[melancholisch]",
	"ironic":       "[ironisch]",
	"sarcastic":    "[sarcastisch]",
	"dreamy":       "[dromerig]",
	"mysterious":   "[mysterieus]",
	"whispering":   "[fluisterend]",
})

func legacyAliases(words map[string]Tag) []alias {
	names := make([]string, 0, len(words))
	for w := range words {
		names = append(names, w)
	}
	sort.Strings(names)

	out := make([]alias, 0, 2*len(names))
	for _, w := range names {
		out = append(out,
			alias{spelling: "[" + strings.ToUpper(w) + "]", target: words[w]},
			alias{spelling: "[" + w + "]", target: words[w]},
		)
	}
	return out
}
