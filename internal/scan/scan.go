package scan

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/cardmark/internal/cardid"
	"github.com/dshills/cardmark/internal/gitctx"
	"github.com/dshills/cardmark/internal/metrics"
	"github.com/dshills/cardmark/internal/redact"
)

// StdinPath is the path reported for text read from standard input.
const StdinPath = "-"

// Options configure a Scanner.
type Options struct {
	Identifier *cardid.Identifier

	// Notices selects the two-tier alert/notice workflow.
	Notices  bool
	Workers  int
	Exclude  []string
	MaskKeep int
	Logger   *zap.Logger
	Metrics  *metrics.ScanMetrics
}

// Finding is a marked fragment located in an input.
type Finding struct {
	Path            string      `json:"path"`
	Line            int         `json:"line"`
	Column          int         `json:"column"`
	Tier            cardid.Tier `json:"tier"`
	Label           string      `json:"label"`
	Masked          string      `json:"masked"`
	Provider        string      `json:"provider,omitempty"`
	Score           float64     `json:"score"`
	Luhn            bool        `json:"luhn"`
	KnownTestNumber bool        `json:"knownTestNumber"`
}

// Result is the outcome of scanning a single input.
type Result struct {
	Path      string
	Findings  []Finding
	Annotated string
	Masked    string
	Skipped   bool
}

// Summary counts what a scan saw.
type Summary struct {
	Inputs  int `json:"inputs"`
	Skipped int `json:"skipped"`
	Alerts  int `json:"alerts"`
	Notices int `json:"notices"`
}

// Report is the aggregate result of a scan run.
type Report struct {
	ID        string    `json:"id"`
	Version   string    `json:"version,omitempty"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
	Findings  []Finding `json:"findings"`
	Summary   Summary   `json:"summary"`
	Results   []Result  `json:"-"`
}

// Scanner scans inputs with a shared Identifier.
type Scanner struct {
	opts Options
	log  *zap.Logger
}

// New builds a Scanner. A nil Identifier gets the detector defaults.
func New(opts Options) *Scanner {
	if opts.Identifier == nil {
		opts.Identifier = cardid.New(cardid.Options{})
	}
	if opts.Workers < 1 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.MaskKeep < 0 {
		opts.MaskKeep = 0
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{opts: opts, log: log.Named("scan")}
}

// ScanText scans a single in-memory input.
func (s *Scanner) ScanText(path, text string) Result {
	found := s.opts.Identifier.Findings(text, s.opts.Notices)
	lines := lineStarts(text)

	res := Result{Path: path, Findings: make([]Finding, 0, len(found))}
	marks := make([]cardid.Mark, 0, len(found))
	spans := make([]redact.Span, 0, len(found))
	for _, f := range found {
		line, col := position(lines, f.Fragment.Start)
		res.Findings = append(res.Findings, s.finding(path, line, col, f))
		marks = append(marks, cardid.Mark{Start: f.Fragment.Start, End: f.Fragment.End, Label: f.Label})
		spans = append(spans, redact.Span{Start: f.Fragment.Start, End: f.Fragment.End})
	}
	res.Annotated = cardid.Annotate(text, marks)
	res.Masked = redact.Text(text, spans, s.opts.MaskKeep)
	s.opts.Metrics.ObserveInput("scanned")
	return res
}

// ScanStdin scans text read from standard input.
func (s *Scanner) ScanStdin(text string) *Report {
	report := newReport("stdin")
	report.add(s.ScanText(StdinPath, text))
	return report
}

// ScanFiles scans the named files concurrently. Paths matching an exclude
// pattern are reported as skipped. Results keep the order of paths.
func (s *Scanner) ScanFiles(ctx context.Context, paths []string) (*Report, error) {
	results := make([]Result, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, path := range paths {
		i, path := i, path
		if redact.ShouldSkipPath(path, s.opts.Exclude) {
			s.log.Debug("skipping excluded path", zap.String("path", path))
			s.opts.Metrics.ObserveInput("excluded")
			results[i] = Result{Path: path, Skipped: true}
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				s.opts.Metrics.ObserveInput("error")
				return fmt.Errorf("reading %s: %w", path, err)
			}
			results[i] = s.ScanText(path, string(data))
			s.log.Debug("scanned file",
				zap.String("path", path),
				zap.Int("findings", len(results[i].Findings)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := newReport("files")
	for _, res := range results {
		report.add(res)
	}
	return report, nil
}

// ScanDiff scans the lines added by a git diff. Each line is inspected on its
// own, so findings are located by the line numbers of the new file version.
func (s *Scanner) ScanDiff(ctx context.Context, source string, lines []gitctx.Line) (*Report, error) {
	byPath := make(map[string]*Result)
	var order []string
	for _, l := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, ok := byPath[l.Path]
		if !ok {
			if redact.ShouldSkipPath(l.Path, s.opts.Exclude) {
				s.opts.Metrics.ObserveInput("excluded")
				res = &Result{Path: l.Path, Skipped: true}
			} else {
				s.opts.Metrics.ObserveInput("scanned")
				res = &Result{Path: l.Path}
			}
			byPath[l.Path] = res
			order = append(order, l.Path)
		}
		if res.Skipped {
			continue
		}
		for _, f := range s.opts.Identifier.Findings(l.Text, s.opts.Notices) {
			res.Findings = append(res.Findings, s.finding(l.Path, l.Number, f.Fragment.Start+1, f))
		}
	}

	report := newReport(source)
	for _, path := range order {
		report.add(*byPath[path])
	}
	return report, nil
}

func (s *Scanner) finding(path string, line, col int, f cardid.Finding) Finding {
	number, _ := cardid.ExtractNumber(f.Fragment.Text)
	return Finding{
		Path:            path,
		Line:            line,
		Column:          col,
		Tier:            f.Tier,
		Label:           f.Label,
		Masked:          redact.Digits(number, s.opts.MaskKeep),
		Provider:        f.Evaluation.Provider,
		Score:           f.Evaluation.Score,
		Luhn:            f.Evaluation.Luhn,
		KnownTestNumber: f.Evaluation.KnownTestNumber,
	}
}

func newReport(source string) *Report {
	return &Report{
		ID:        uuid.NewString(),
		Source:    source,
		CreatedAt: time.Now().UTC(),
		Findings:  []Finding{},
	}
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	r.Summary.Inputs++
	if res.Skipped {
		r.Summary.Skipped++
		return
	}
	for _, f := range res.Findings {
		switch f.Tier {
		case cardid.TierAlert:
			r.Summary.Alerts++
		case cardid.TierNotice:
			r.Summary.Notices++
		}
	}
	r.Findings = append(r.Findings, res.Findings...)
}

// Count returns the number of findings at or above tier.
func (r *Report) Count(tier cardid.Tier) int {
	if tier == cardid.TierNotice {
		return r.Summary.Alerts + r.Summary.Notices
	}
	return r.Summary.Alerts
}

// lineStarts returns the byte offset at which each line of text begins.
func lineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// position converts a byte offset to a 1-based line and column.
func position(starts []int, offset int) (int, int) {
	i := sort.Search(len(starts), func(i int) bool { return starts[i] > offset }) - 1
	if i < 0 {
		i = 0
	}
	return i + 1, offset - starts[i] + 1
}
