package cardid

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dshills/cardmark/internal/metrics"
)

func TestNew_Defaults(t *testing.T) {
	opts := New(Options{}).Options()
	assert.Equal(t, "ALERT", opts.AlertLabel)
	assert.Equal(t, "NOTICE", opts.NoticeLabel)
	assert.Equal(t, LevelLoose, opts.Level)
	assert.Equal(t, 20, opts.MaxFragmentLength)
	assert.Equal(t, 7, opts.MinFragmentLength)
	assert.False(t, opts.ThresholdAlert.IsSet())
	assert.False(t, opts.ThresholdNotice.IsSet())
}

func TestInspect(t *testing.T) {
	id := New(Options{})
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			"spaced test number",
			"my card is 4111 1111 1111 1111 thanks",
			"my card is {{4111 1111 1111 1111}[ALERT]} thanks",
		},
		{
			"dashed mastercard",
			"cc: 5555-5555-5555-4444.",
			"cc: {{5555-5555-5555-4444}[ALERT]}.",
		},
		{
			"just above default threshold",
			"ref 3711111111111117 end",
			"ref {{3711111111111117}[ALERT]} end",
		},
		{
			"below default threshold",
			"ref 4111111111111129 end",
			"ref 4111111111111129 end",
		},
		{
			"phone number left alone",
			"call 555-1234 now",
			"call 555-1234 now",
		},
		{
			"letters split a number",
			"id 4111ab1111ab1111ab1111",
			"id 4111ab1111ab1111ab1111",
		},
		{
			"every occurrence marked",
			"4111111111111111 and again 4111111111111111",
			"{{4111111111111111}[ALERT]} and again {{4111111111111111}[ALERT]}",
		},
		{
			"braces around prose are not a marker",
			"Hi {{user}}, card 4111111111111111 on file (see ref}[a]})",
			"Hi {{user}}, card {{4111111111111111}[ALERT]} on file (see ref}[a]})",
		},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, id.Inspect(tt.input))
		})
	}
}

func TestInspect_AlertThreshold(t *testing.T) {
	id := New(Options{ThresholdAlert: At(80)})
	assert.Equal(t, "x {{4111111111111129}[ALERT]} y", id.Inspect("x 4111111111111129 y"))

	id = New(Options{ThresholdAlert: At(190)})
	assert.Equal(t, "5555555555554444", id.Inspect("5555555555554444"), "threshold is strict")
}

func TestInspect_StrictLevel(t *testing.T) {
	id := New(Options{Level: LevelStrict})
	assert.Equal(t, "4111 1111 1111 1111", id.Inspect("4111 1111 1111 1111"))
	assert.Equal(t, "a {{4111111111111111}[ALERT]}", id.Inspect("a 4111111111111111"))
}

func TestInspect_Idempotent(t *testing.T) {
	id := New(Options{})
	input := "first 4111 1111 1111 1111, second 5555555555554444, third 378282246310005"
	once := id.Inspect(input)
	twice := id.Inspect(once)
	assert.Equal(t, once, twice)

	withNotices := New(Options{ThresholdAlert: At(100), ThresholdNotice: At(20)})
	once = withNotices.InspectWithNotices("a 4111111111111129 b 4111111111111111")
	assert.Equal(t, "a {{4111111111111129}[NOTICE]} b {{4111111111111111}[ALERT]}", once)
	assert.Equal(t, once, withNotices.InspectWithNotices(once))
}

func TestInspect_ExistingMarkerUntouched(t *testing.T) {
	id := New(Options{})
	input := "{{4111 1111 1111 1111}[ALERT]} and 5555555555554444"
	want := "{{4111 1111 1111 1111}[ALERT]} and {{5555555555554444}[ALERT]}"
	assert.Equal(t, want, id.Inspect(input))
}

func TestInspect_CustomLabels(t *testing.T) {
	id := New(Options{AlertLabel: "PAN"})
	assert.Equal(t, "{{4111111111111111}[PAN]}", id.Inspect("4111111111111111"))
}

func TestInspectWithNotices(t *testing.T) {
	id := New(Options{ThresholdAlert: At(100), ThresholdNotice: At(50)})
	input := "a 5555555555554444 b 4111111111111129 c 4111111111111128 d"
	want := "a {{5555555555554444}[ALERT]} b {{4111111111111129}[NOTICE]} c 4111111111111128 d"
	assert.Equal(t, want, id.InspectWithNotices(input))
}

func TestInspectWithNotices_NoticeUnset(t *testing.T) {
	id := New(Options{ThresholdAlert: At(100)})
	input := "a 5555555555554444 b 4111111111111128 c 123"
	want := "a {{5555555555554444}[ALERT]} b {{4111111111111128}[NOTICE]} c 123"
	assert.Equal(t, want, id.InspectWithNotices(input))
}

func TestInspectWithNotices_BothUnset(t *testing.T) {
	id := New(Options{})
	input := "a 4111111111111128 b 1234567"
	want := "a {{4111111111111128}[ALERT]} b {{1234567}[ALERT]}"
	assert.Equal(t, want, id.InspectWithNotices(input))
}

func TestFindings(t *testing.T) {
	id := New(Options{ThresholdAlert: At(100), ThresholdNotice: At(50)})
	text := "x 4111-1111-1111-1129 y 378282246310005"
	findings := id.Findings(text, true)
	require.Len(t, findings, 2)

	assert.Equal(t, TierNotice, findings[0].Tier)
	assert.Equal(t, "NOTICE", findings[0].Label)
	assert.Equal(t, "4111-1111-1111-1129", findings[0].Fragment.Text)
	assert.Equal(t, text[findings[0].Fragment.Start:findings[0].Fragment.End], findings[0].Fragment.Text)
	assert.Equal(t, "4111111111111129", findings[0].Evaluation.Number)
	assert.Equal(t, 82.5, findings[0].Evaluation.Score)

	assert.Equal(t, TierAlert, findings[1].Tier)
	assert.Equal(t, "amex", findings[1].Evaluation.Provider)
	assert.True(t, findings[1].Evaluation.KnownTestNumber)
}

func TestFindings_FragmentLengthBounds(t *testing.T) {
	id := New(Options{MinFragmentLength: 16, MaxFragmentLength: 16})
	findings := id.Findings("378282246310005 and 5555555555554444", false)
	require.Len(t, findings, 1)
	assert.Equal(t, "5555555555554444", findings[0].Fragment.Text)
}

func TestFindings_CustomConstants(t *testing.T) {
	c := DefaultConstants()
	c.KnownTestNumbers = map[string]struct{}{"1111111111": {}}
	id := New(Options{Constants: c})
	assert.Equal(t, "{{1111111111}[ALERT]}", id.Inspect("1111111111"))
}

func TestIdentifier_PublicOperations(t *testing.T) {
	id := New(Options{})
	assert.True(t, id.IsPossible("1234567"))
	assert.False(t, id.IsPossible("123456"))
	assert.Equal(t, 190.0, id.ScoreOf("5555555555554444"))
	assert.True(t, id.IsSurely("5555555555554444"))
	assert.False(t, id.IsSurelyAbove("5555555555554444", 190))
	assert.True(t, id.IsSurelyAbove("5555555555554444", 189.99))

	assert.False(t, id.SetWeights(map[string]float64{"foo": 1}))
	assert.Equal(t, 190.0, id.ScoreOf("5555555555554444"))

	assert.True(t, id.SetWeights(map[string]float64{WeightTestNumbers: 0}))
	assert.Equal(t, 90.0, id.ScoreOf("5555555555554444"))
	assert.Same(t, id.Validator(), id.Validator())
}

func TestIdentifier_LoggerAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewScanMetrics(reg)
	id := New(Options{Logger: zaptest.NewLogger(t), Metrics: m})

	out := id.Inspect("a 4111111111111111 b 4111111111111111 c 12-34-56")
	assert.Equal(t, "a {{4111111111111111}[ALERT]} b {{4111111111111111}[ALERT]} c 12-34-56", out)

	count, err := testutil.GatherAndCount(reg, "cardmark_detector_marks_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	expected := `
# HELP cardmark_detector_marks_total Total fragments marked by tier
# TYPE cardmark_detector_marks_total counter
cardmark_detector_marks_total{tier="alert"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "cardmark_detector_marks_total"))

	// Repeated fragment text is decided once.
	fragments := `
# HELP cardmark_detector_fragments_total Total suspected fragments by outcome
# TYPE cardmark_detector_fragments_total counter
cardmark_detector_fragments_total{outcome="scored"} 1
cardmark_detector_fragments_total{outcome="skipped"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(fragments), "cardmark_detector_fragments_total"))
}
