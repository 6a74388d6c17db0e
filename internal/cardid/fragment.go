package cardid

import "regexp"

// Level selects how aggressively text is broken into fragments.
type Level int

const (
	// LevelStrict takes every maximal run of ASCII digits.
	LevelStrict Level = 1
	// LevelLoose takes digit runs interrupted only by non-letter characters,
	// which catches numbers broken up by spaces, dashes or dots while
	// rejecting alphanumeric identifiers.
	LevelLoose Level = 2
)

var (
	strictPattern = regexp.MustCompile(`[0-9]+`)
	loosePattern  = regexp.MustCompile(`[0-9]+[^a-zA-Z]+[0-9]`)
	nonDigit      = regexp.MustCompile(`[^0-9]`)
)

// Fragment is a span of text suspected to encode a number.
// Start and End are byte offsets, End exclusive.
type Fragment struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

func (l Level) pattern() *regexp.Regexp {
	if l == LevelLoose {
		return loosePattern
	}
	return strictPattern
}

// Spans returns every fragment occurrence in text, in text order.
// Levels other than LevelLoose behave as LevelStrict.
func Spans(text string, level Level) []Fragment {
	locs := level.pattern().FindAllStringIndex(text, -1)
	frags := make([]Fragment, 0, len(locs))
	for _, loc := range locs {
		frags = append(frags, Fragment{Text: text[loc[0]:loc[1]], Start: loc[0], End: loc[1]})
	}
	return frags
}

// Fragments returns the distinct fragment strings of text in order of first
// occurrence. It never returns nil.
func Fragments(text string, level Level) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, f := range level.pattern().FindAllString(text, -1) {
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// ExtractNumber strips every non-digit from fragment. It returns false when
// no digits remain.
func ExtractNumber(fragment string) (string, bool) {
	number := nonDigit.ReplaceAllString(fragment, "")
	if number == "" {
		return "", false
	}
	return number, true
}
