// Package emotion holds the table of emotion tags a script line may carry and
// the legacy spellings that map onto them.
//
// A tag is the bracketed marker as written in a script, e.g. "[vrolijk]".
// Canonical tags are the Dutch spellings; legacy aliases (older English
// markers such as "[EXCITED]" or "[curious]") resolve to exactly one
// canonical tag. Lookups are two-stage: spelling → canonical tag → settings.
//
// A [Table] is immutable after construction and safe for concurrent use.
package emotion

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Tag is a canonical bracketed emotion marker such as "[vrolijk]".
type Tag string

// Settings are the synthesis parameters the global table assigns to a tag.
type Settings struct {
	Stability float64
	Style     float64
}

// Entry is a single row of the emotion table.
type Entry struct {
	Tag      Tag
	Settings Settings
}

// Table maps emotion spellings to canonical tags and canonical tags to
// settings. Build one with [NewTable] or [Builtin].
type Table struct {
	entries []Entry
	byTag   map[Tag]Settings

	// canonical maps every accepted spelling (canonical and legacy) to its
	// canonical tag.
	canonical map[string]Tag

	// byKey maps simplified keys (see [Key]) of every spelling to the
	// canonical tag.
	byKey map[string]Tag

	// spellings holds every accepted spelling, longest first.
	spellings []string
}

// NewTable builds a table from the built-in entries plus extra user-defined
// entries and aliases. Extra entries may not redefine a built-in tag.
//
// It returns an error when a tag is not bracketed, defined twice, when two
// spellings share a key (see [Key]), when an alias points at an unknown tag,
// or when one spelling occurs inside another.
func NewTable(extra []Entry, extraAliases map[string]Tag) (*Table, error) {
	t := &Table{
		byTag:     make(map[Tag]Settings, len(builtinEntries)+len(extra)),
		canonical: make(map[string]Tag),
		byKey:     make(map[string]Tag),
	}

	var errs []error
	add := func(e Entry) {
		if !isBracketed(string(e.Tag)) {
			errs = append(errs, fmt.Errorf("emotion: tag %q must be written as [name]", e.Tag))
			return
		}
		if _, dup := t.byTag[e.Tag]; dup {
			errs = append(errs, fmt.Errorf("emotion: tag %q defined twice", e.Tag))
			return
		}
		if err := checkRange(e); err != nil {
			errs = append(errs, err)
			return
		}
		key := Key(e.Tag)
		if prev, ok := t.byKey[key]; ok {
			errs = append(errs, fmt.Errorf("emotion: key %q of tag %q collides with %q", key, e.Tag, prev))
			return
		}
		t.entries = append(t.entries, e)
		t.byTag[e.Tag] = e.Settings
		t.canonical[string(e.Tag)] = e.Tag
		t.byKey[key] = e.Tag
	}
	for _, e := range builtinEntries {
		add(e)
	}
	for _, e := range extra {
		add(e)
	}

	addAlias := func(spelling string, target Tag) {
		if !isBracketed(spelling) {
			errs = append(errs, fmt.Errorf("emotion: alias %q must be written as [name]", spelling))
			return
		}
		if _, ok := t.byTag[target]; !ok {
			errs = append(errs, fmt.Errorf("emotion: alias %q points at unknown tag %q", spelling, target))
			return
		}
		if prev, dup := t.canonical[spelling]; dup && prev != target {
			errs = append(errs, fmt.Errorf("emotion: alias %q already maps to %q", spelling, prev))
			return
		}
		t.canonical[spelling] = target
		key := Key(Tag(spelling))
		if prev, ok := t.byKey[key]; ok && prev != target {
			errs = append(errs, fmt.Errorf("emotion: key %q of alias %q collides with %q", key, spelling, prev))
			return
		}
		t.byKey[key] = target
	}
	for _, a := range builtinAliases {
		addAlias(a.spelling, a.target)
	}
	aliasNames := make([]string, 0, len(extraAliases))
	for s := range extraAliases {
		aliasNames = append(aliasNames, s)
	}
	sort.Strings(aliasNames)
	for _, s := range aliasNames {
		addAlias(s, extraAliases[s])
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	t.spellings = make([]string, 0, len(t.canonical))
	for s := range t.canonical {
		t.spellings = append(t.spellings, s)
	}
	sort.Slice(t.spellings, func(i, j int) bool {
		a, b := t.spellings[i], t.spellings[j]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})

	if err := checkOverlap(t.spellings); err != nil {
		return nil, err
	}
	return t, nil
}

// Builtin returns a table containing only the built-in tags and aliases.
func Builtin() *Table {
	t, err := NewTable(nil, nil)
	if err != nil {
		panic("emotion: built-in table is invalid: " + err.Error())
	}
	return t
}

// Key returns the simplified key for a tag: brackets removed, lower-cased,
// inner whitespace replaced by underscores. "[Oprecht Geïnteresseerd]"
// becomes "oprecht_geïnteresseerd". Keys are what voice configuration uses to
// name per-emotion overrides.
func Key(tag Tag) string {
	s := strings.TrimSpace(string(tag))
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	return strings.Join(strings.Fields(strings.ToLower(s)), "_")
}

// Canonical returns the canonical tag for a canonical or legacy spelling.
func (t *Table) Canonical(spelling string) (Tag, bool) {
	tag, ok := t.canonical[spelling]
	return tag, ok
}

// TagForKey resolves a simplified key (canonical or legacy, e.g. "vrolijk" or
// "excited") to its canonical tag. The key is normalised with [Key] first, so
// bracketed input is accepted too.
func (t *Table) TagForKey(key string) (Tag, bool) {
	tag, ok := t.byKey[Key(Tag(key))]
	return tag, ok
}

// Lookup returns the settings of a canonical tag. Legacy spellings are
// resolved first.
func (t *Table) Lookup(tag Tag) (Settings, bool) {
	c, ok := t.canonical[string(tag)]
	if !ok {
		return Settings{}, false
	}
	s, ok := t.byTag[c]
	return s, ok
}

// Entries returns the table rows in definition order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Spellings returns every accepted spelling, canonical and legacy, longest
// first.
func (t *Table) Spellings() []string {
	out := make([]string, len(t.spellings))
	copy(out, t.spellings)
	return out
}

// Len reports the number of canonical tags.
func (t *Table) Len() int { return len(t.entries) }

func isBracketed(s string) bool {
	return len(s) > 2 && strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") &&
		!strings.ContainsAny(s[1:len(s)-1], "[]")
}

func checkRange(e Entry) error {
	if e.Settings.Stability < 0 || e.Settings.Stability > 1 {
		return fmt.Errorf("emotion: %s stability %.2f is out of range [0, 1]", e.Tag, e.Settings.Stability)
	}
	if e.Settings.Style < 0 || e.Settings.Style > 1 {
		return fmt.Errorf("emotion: %s style %.2f is out of range [0, 1]", e.Tag, e.Settings.Style)
	}
	return nil
}

// checkOverlap rejects spellings that occur inside other spellings. Input is
// sorted longest first.
func checkOverlap(spellings []string) error {
	var errs []error
	for i, long := range spellings {
		for _, short := range spellings[i+1:] {
			if strings.Contains(long, short) {
				errs = append(errs, fmt.Errorf("emotion: tag %q occurs inside %q", short, long))
			}
		}
	}
	return errors.Join(errs...)
}
