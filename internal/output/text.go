package output

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dshills/cardmark/internal/cardid"
	"github.com/dshills/cardmark/internal/scan"
)

// TextWriter outputs a human-readable text report.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, report *scan.Report) error {
	ew := &errWriter{w: w}

	total := report.Summary.Alerts + report.Summary.Notices
	ew.printf("cardmark scan (%s) %s\n", report.Source, report.ID)
	ew.println(strings.Repeat("─", 60))
	ew.printf("Inputs: %d", report.Summary.Inputs)
	if report.Summary.Skipped > 0 {
		ew.printf(" (%d skipped)", report.Summary.Skipped)
	}
	ew.printf(" | Findings: %d total", total)
	if total > 0 {
		ew.printf(" (%d alert, %d notice)", report.Summary.Alerts, report.Summary.Notices)
	}
	ew.println("")
	ew.println(strings.Repeat("─", 60))

	if total == 0 {
		ew.println("\nNo card numbers found.")
		return ew.err
	}

	grouped := groupByTier(report.Findings)
	for _, tier := range []cardid.Tier{cardid.TierAlert, cardid.TierNotice} {
		findings := grouped[tier]
		if len(findings) == 0 {
			continue
		}

		ew.printf("\n%s %s\n", tierIcon(tier), strings.ToUpper(string(tier)))
		ew.println(strings.Repeat("─", 40))

		sortFindings(findings)
		for _, f := range findings {
			ew.printf("  %s:%d:%d  %s  score %s%s\n",
				f.Path, f.Line, f.Column, f.Masked, formatScore(f.Score), describe(f))
		}
	}

	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func groupByTier(findings []scan.Finding) map[cardid.Tier][]scan.Finding {
	m := make(map[cardid.Tier][]scan.Finding)
	for _, f := range findings {
		m[f.Tier] = append(m[f.Tier], f)
	}
	return m
}

func sortFindings(findings []scan.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Path != findings[j].Path {
			return findings[i].Path < findings[j].Path
		}
		if findings[i].Line != findings[j].Line {
			return findings[i].Line < findings[j].Line
		}
		return findings[i].Column < findings[j].Column
	})
}

func tierIcon(t cardid.Tier) string {
	switch t {
	case cardid.TierAlert:
		return "[!!]"
	case cardid.TierNotice:
		return "[!]"
	default:
		return "[?]"
	}
}

// describe lists the signals behind a finding, e.g. " (visa, luhn)".
func describe(f scan.Finding) string {
	var parts []string
	if f.Provider != "" {
		parts = append(parts, f.Provider)
	}
	if f.Luhn {
		parts = append(parts, "luhn")
	}
	if f.KnownTestNumber {
		parts = append(parts, "test number")
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}
