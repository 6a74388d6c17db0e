package cardid

import (
	"regexp"
	"sort"
	"strings"
)

// markerPattern matches a marker produced by Marker. Fragments never contain
// letters, so text with letters between the braces is not a marker.
var markerPattern = regexp.MustCompile(`\{\{[^a-zA-Z]*?\}\[[^\]]*\]\}`)

// Marker wraps fragment with label: {{fragment}[label]}.
func Marker(fragment, label string) string {
	return "{{" + fragment + "}[" + label + "]}"
}

// MarkFragment replaces every literal occurrence of fragment in text with its
// marker. An empty fragment leaves text unchanged.
func MarkFragment(text, fragment, label string) string {
	if fragment == "" {
		return text
	}
	return strings.ReplaceAll(text, fragment, Marker(fragment, label))
}

// Mark is a labelled span of the original text.
type Mark struct {
	Start int
	End   int
	Label string
}

// Annotate inserts a marker for each mark in a single pass over text.
// Offsets refer to text as given. Marks overlapping an earlier mark are
// dropped.
func Annotate(text string, marks []Mark) string {
	if len(marks) == 0 {
		return text
	}
	sorted := make([]Mark, len(marks))
	copy(sorted, marks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var b strings.Builder
	b.Grow(len(text) + len(sorted)*16)
	pos := 0
	for _, m := range sorted {
		if m.Start < pos || m.End > len(text) || m.Start >= m.End {
			continue
		}
		b.WriteString(text[pos:m.Start])
		b.WriteString(Marker(text[m.Start:m.End], m.Label))
		pos = m.End
	}
	b.WriteString(text[pos:])
	return b.String()
}

// segment is a stretch of text that contains no marker.
type segment struct {
	offset int
	text   string
}

// unmarkedSegments splits text around existing markers so they are never
// scanned again.
func unmarkedSegments(text string) []segment {
	locs := markerPattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []segment{{offset: 0, text: text}}
	}
	segs := make([]segment, 0, len(locs)+1)
	pos := 0
	for _, loc := range locs {
		if loc[0] > pos {
			segs = append(segs, segment{offset: pos, text: text[pos:loc[0]]})
		}
		pos = loc[1]
	}
	if pos < len(text) {
		segs = append(segs, segment{offset: pos, text: text[pos:]})
	}
	return segs
}
