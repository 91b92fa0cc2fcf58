package emotion

import (
	"sort"
	"strings"
)

// ExtractAll returns the canonical tags found in line, deduplicated, in the
// order their first spelling appears in the text. Matching is a
// case-sensitive substring search over every canonical and legacy spelling,
// so the tag may sit anywhere in the line.
func (t *Table) ExtractAll(line string) []Tag {
	type hit struct {
		pos int
		tag Tag
	}
	first := make(map[Tag]int)
	for _, s := range t.spellings {
		pos := strings.Index(line, s)
		if pos < 0 {
			continue
		}
		tag := t.canonical[s]
		if prev, ok := first[tag]; !ok || pos < prev {
			first[tag] = pos
		}
	}
	if len(first) == 0 {
		return nil
	}

	hits := make([]hit, 0, len(first))
	for tag, pos := range first {
		hits = append(hits, hit{pos: pos, tag: tag})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].pos != hits[j].pos {
			return hits[i].pos < hits[j].pos
		}
		return hits[i].tag < hits[j].tag
	})

	out := make([]Tag, len(hits))
	for i, h := range hits {
		out[i] = h.tag
	}
	return out
}

// Primary returns the first tag [Table.ExtractAll] finds in line.
func (t *Table) Primary(line string) (Tag, bool) {
	tags := t.ExtractAll(line)
	if len(tags) == 0 {
		return "", false
	}
	return tags[0], true
}

// Strip removes every known spelling from text. Longer spellings are removed
// first. Whitespace is left as-is.
func (t *Table) Strip(text string) string {
	if !strings.Contains(text, "[") {
		return text
	}
	for _, s := range t.spellings {
		text = strings.ReplaceAll(text, s, "")
	}
	return text
}
