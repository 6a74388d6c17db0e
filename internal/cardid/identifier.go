package cardid

import (
	"go.uber.org/zap"

	"github.com/dshills/cardmark/internal/metrics"
	"github.com/dshills/cardmark/internal/redact"
)

// Tier is the confidence tier of a marked fragment.
type Tier string

const (
	TierAlert  Tier = "alert"
	TierNotice Tier = "notice"
)

// Defaults applied by New for zero-valued options.
const (
	DefaultAlertLabel        = "ALERT"
	DefaultNoticeLabel       = "NOTICE"
	DefaultLevel             = LevelLoose
	DefaultMaxFragmentLength = 20
	DefaultMinFragmentLength = 7
)

// Options configure an Identifier. Every field is optional.
type Options struct {
	AlertLabel  string
	NoticeLabel string
	Level       Level
	// ThresholdAlert and ThresholdNotice are unset by default. An unset
	// threshold counts as always exceeded, except that Inspect falls back
	// to DefaultThreshold for the alert tier.
	ThresholdAlert  Threshold
	ThresholdNotice Threshold
	// Fragments whose digit count falls outside these bounds are skipped
	// before scoring.
	MaxFragmentLength int
	MinFragmentLength int
	Weights           *Weights
	Constants         *Constants
	Logger            *zap.Logger
	Metrics           *metrics.ScanMetrics
}

// Finding is a fragment that was marked, with the evaluation behind it.
type Finding struct {
	Fragment   Fragment   `json:"fragment"`
	Tier       Tier       `json:"tier"`
	Label      string     `json:"label"`
	Evaluation Evaluation `json:"evaluation"`
}

// Identifier finds and marks suspected card numbers in text.
type Identifier struct {
	opts      Options
	validator *Validator
	log       *zap.Logger
	metrics   *metrics.ScanMetrics
}

// New builds an Identifier, filling unset options with their defaults.
func New(opts Options) *Identifier {
	if opts.AlertLabel == "" {
		opts.AlertLabel = DefaultAlertLabel
	}
	if opts.NoticeLabel == "" {
		opts.NoticeLabel = DefaultNoticeLabel
	}
	if opts.Level == 0 {
		opts.Level = DefaultLevel
	}
	if opts.MaxFragmentLength == 0 {
		opts.MaxFragmentLength = DefaultMaxFragmentLength
	}
	if opts.MinFragmentLength == 0 {
		opts.MinFragmentLength = DefaultMinFragmentLength
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Identifier{
		opts:      opts,
		validator: NewValidator(opts.Weights, opts.Constants),
		log:       log.Named("cardid"),
		metrics:   opts.Metrics,
	}
}

// Options returns the effective options.
func (id *Identifier) Options() Options {
	return id.opts
}

// Validator returns the underlying validator.
func (id *Identifier) Validator() *Validator {
	return id.validator
}

// Inspect marks fragments that surely encode a card number with the alert
// label. The alert threshold defaults to DefaultThreshold when unset.
func (id *Identifier) Inspect(text string) string {
	return Annotate(text, id.marks(id.Findings(text, false)))
}

// InspectWithNotices marks fragments with the alert label when they exceed
// the alert threshold and with the notice label when they only exceed the
// notice threshold. Unset thresholds are always exceeded, so with both unset
// every possible number is an alert.
func (id *Identifier) InspectWithNotices(text string) string {
	return Annotate(text, id.marks(id.Findings(text, true)))
}

// Findings returns the fragments of text that would be marked, in text
// order. withNotices selects the two-tier workflow of InspectWithNotices.
func (id *Identifier) Findings(text string, withNotices bool) []Finding {
	workflow := string(TierAlert)
	if withNotices {
		workflow = "alert_notice"
	}
	id.metrics.ObserveInspection(workflow)

	// Identical fragment text always gets the same decision.
	decided := make(map[string]*Finding)
	var findings []Finding
	for _, seg := range unmarkedSegments(text) {
		for _, frag := range Spans(seg.text, id.opts.Level) {
			frag.Start += seg.offset
			frag.End += seg.offset

			f, ok := decided[frag.Text]
			if !ok {
				f = id.decide(frag.Text, withNotices)
				decided[frag.Text] = f
			}
			if f == nil {
				continue
			}
			found := *f
			found.Fragment = frag
			findings = append(findings, found)
			id.metrics.ObserveMark(string(found.Tier))
		}
	}
	return findings
}

// decide evaluates a single fragment and returns nil when it is not marked.
func (id *Identifier) decide(fragment string, withNotices bool) *Finding {
	number, ok := ExtractNumber(fragment)
	if !ok {
		id.metrics.ObserveFragment("empty")
		return nil
	}
	if len(number) < id.opts.MinFragmentLength || len(number) > id.opts.MaxFragmentLength {
		id.metrics.ObserveFragment("skipped")
		return nil
	}
	if !id.validator.IsPossible(number) {
		id.metrics.ObserveFragment("impossible")
		return nil
	}

	eval := id.validator.Evaluate(number)
	id.metrics.ObserveFragment("scored")
	id.metrics.ObserveScore(eval.Score)

	var tier Tier
	switch {
	case !withNotices:
		if id.opts.ThresholdAlert.Or(DefaultThreshold).Exceeded(eval.Score) {
			tier = TierAlert
		}
	case id.opts.ThresholdAlert.Exceeded(eval.Score):
		tier = TierAlert
	case id.opts.ThresholdNotice.Exceeded(eval.Score):
		tier = TierNotice
	}

	id.log.Debug("scored fragment",
		zap.String("number", redact.Digits(number, redact.DefaultKeep)),
		zap.Float64("score", eval.Score),
		zap.String("provider", eval.Provider),
		zap.String("tier", string(tier)))

	if tier == "" {
		return nil
	}
	label := id.opts.AlertLabel
	if tier == TierNotice {
		label = id.opts.NoticeLabel
	}
	return &Finding{Tier: tier, Label: label, Evaluation: eval}
}

func (id *Identifier) marks(findings []Finding) []Mark {
	marks := make([]Mark, 0, len(findings))
	for _, f := range findings {
		marks = append(marks, Mark{Start: f.Fragment.Start, End: f.Fragment.End, Label: f.Label})
	}
	return marks
}

// IsPossible reports whether number could be a card number.
func (id *Identifier) IsPossible(number string) bool {
	return id.validator.IsPossible(number)
}

// IsSurely reports whether number scores strictly above DefaultThreshold.
func (id *Identifier) IsSurely(number string) bool {
	return id.validator.IsSurely(number)
}

// IsSurelyAbove reports whether number scores strictly above threshold.
func (id *Identifier) IsSurelyAbove(number string, threshold float64) bool {
	return id.validator.IsSurelyAbove(number, threshold)
}

// ScoreOf returns the aggregate score of number.
func (id *Identifier) ScoreOf(number string) float64 {
	return id.validator.Score(number)
}

// SetWeights applies weight overrides atomically; it returns false and
// changes nothing if any key is unknown.
func (id *Identifier) SetWeights(updates map[string]float64) bool {
	ok := id.validator.SetWeights(updates)
	if !ok {
		id.log.Warn("rejected weight update", zap.Int("keys", len(updates)))
	}
	return ok
}
