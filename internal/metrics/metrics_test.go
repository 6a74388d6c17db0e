package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewScanMetrics(reg)

	m.ObserveInspection("alert")
	m.ObserveInspection("alert")
	m.ObserveFragment("scored")
	m.ObserveMark("alert")
	m.ObserveMark("notice")
	m.ObserveMark("alert")
	m.ObserveScore(190)
	m.ObserveInput("scanned")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.inspectionsTotal.WithLabelValues("alert")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.marksTotal.WithLabelValues("alert")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.marksTotal.WithLabelValues("notice")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fragmentsTotal.WithLabelValues("scored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inputsTotal.WithLabelValues("scanned")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.candidateScore))
}

func TestScanMetricsFragmentOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewScanMetrics(reg)

	outcomes := []string{"empty", "skipped", "impossible", "scored"}
	for _, o := range outcomes {
		m.ObserveFragment(o)
	}

	assert.Equal(t, len(outcomes), testutil.CollectAndCount(m.fragmentsTotal))
	for _, o := range outcomes {
		assert.Equal(t, 1.0, testutil.ToFloat64(m.fragmentsTotal.WithLabelValues(o)), o)
	}
}

func TestScanMetricsNilSafe(t *testing.T) {
	var m *ScanMetrics
	m.ObserveInspection("alert")
	m.ObserveFragment("scored")
	m.ObserveMark("alert")
	m.ObserveScore(10)
	m.ObserveInput("error")
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewScanMetrics(reg)
	m.ObserveMark("alert")

	path := filepath.Join(t.TempDir(), "cardmark.prom")
	require.NoError(t, WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `cardmark_detector_marks_total{tier="alert"} 1`))
}
