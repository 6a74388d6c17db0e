package output

import (
	"io"
	"strings"

	"github.com/dshills/cardmark/internal/cardid"
	"github.com/dshills/cardmark/internal/scan"
)

// MarkdownWriter outputs a PR-comment-friendly markdown report.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *scan.Report) error {
	ew := &errWriter{w: w}
	total := report.Summary.Alerts + report.Summary.Notices

	ew.printf("## cardmark scan\n\n")

	ew.printf("| Tier | Count |\n")
	ew.printf("|------|-------|\n")
	ew.printf("| Alert | %d |\n", report.Summary.Alerts)
	ew.printf("| Notice | %d |\n", report.Summary.Notices)
	ew.printf("| **Total** | **%d** |\n\n", total)

	if total == 0 {
		ew.println("No card numbers found. :white_check_mark:")
		return ew.err
	}

	grouped := groupByTier(report.Findings)
	for _, tier := range []cardid.Tier{cardid.TierAlert, cardid.TierNotice} {
		findings := grouped[tier]
		if len(findings) == 0 {
			continue
		}

		ew.printf("<details>\n<summary>%s %s (%d)</summary>\n\n",
			mdTierIcon(tier), strings.ToUpper(string(tier)), len(findings))
		ew.printf("| Location | Number | Score | Signals |\n")
		ew.printf("|----------|--------|-------|---------|\n")

		sortFindings(findings)
		for _, f := range findings {
			ew.printf("| `%s:%d:%d` | `%s` | %s | %s |\n",
				f.Path, f.Line, f.Column, f.Masked, formatScore(f.Score),
				strings.Trim(describe(f), " ()"))
		}
		ew.printf("\n</details>\n\n")
	}

	ew.printf("---\n*Report %s*\n", report.ID)
	return ew.err
}

func mdTierIcon(t cardid.Tier) string {
	switch t {
	case cardid.TierAlert:
		return ":red_circle:"
	case cardid.TierNotice:
		return ":yellow_circle:"
	default:
		return ":white_circle:"
	}
}
