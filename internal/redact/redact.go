package redact

import (
	"path/filepath"
	"sort"
	"strings"
)

const maskChar = '*'

// DefaultKeep is the number of trailing digits left visible.
const DefaultKeep = 4

// Span is a byte range [Start, End) of a text.
type Span struct {
	Start int
	End   int
}

// Digits masks all digits of s except the last keep, leaving every other
// character in place. A negative keep masks everything.
func Digits(s string, keep int) string {
	total := 0
	for i := 0; i < len(s); i++ {
		if isDigit(s[i]) {
			total++
		}
	}
	b := []byte(s)
	seen := 0
	for i := range b {
		if !isDigit(b[i]) {
			continue
		}
		seen++
		if seen <= total-keep {
			b[i] = maskChar
		}
	}
	return string(b)
}

// Text masks the digits inside each span of text. Overlapping or out of
// range spans are ignored.
func Text(text string, spans []Span, keep int) string {
	if len(spans) == 0 {
		return text
	}
	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var b strings.Builder
	b.Grow(len(text))
	pos := 0
	for _, s := range sorted {
		if s.Start < pos || s.End > len(text) || s.Start >= s.End {
			continue
		}
		b.WriteString(text[pos:s.Start])
		b.WriteString(Digits(text[s.Start:s.End], keep))
		pos = s.End
	}
	b.WriteString(text[pos:])
	return b.String()
}

// ShouldSkipPath checks if a file path matches any of the exclusion patterns.
func ShouldSkipPath(path string, patterns []string) bool {
	for _, pattern := range patterns {
		matched, err := filepath.Match(pattern, path)
		if err == nil && matched {
			return true
		}
		// Also try matching just the filename for patterns like "**/*.lock"
		cleanPattern := strings.TrimPrefix(pattern, "**/")
		if cleanPattern != pattern {
			base := filepath.Base(path)
			matched, err = filepath.Match(cleanPattern, base)
			if err == nil && matched {
				return true
			}
		}
	}
	return false
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
