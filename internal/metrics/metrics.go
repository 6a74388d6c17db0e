package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ScanMetrics exposes counters/histograms for card number detection.
type ScanMetrics struct {
	inspectionsTotal *prometheus.CounterVec
	fragmentsTotal   *prometheus.CounterVec
	marksTotal       *prometheus.CounterVec
	candidateScore   prometheus.Histogram
	inputsTotal      *prometheus.CounterVec
}

// NewScanMetrics creates the collectors and registers them with reg, or with
// the default registerer when reg is nil. It panics on duplicate registration.
func NewScanMetrics(reg prometheus.Registerer) *ScanMetrics {
	m := &ScanMetrics{
		inspectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cardmark",
			Subsystem: "detector",
			Name:      "inspections_total",
			Help:      "Total texts inspected",
		}, []string{"workflow"}),
		fragmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cardmark",
			Subsystem: "detector",
			Name:      "fragments_total",
			Help:      "Total suspected fragments by outcome",
		}, []string{"outcome"}),
		marksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cardmark",
			Subsystem: "detector",
			Name:      "marks_total",
			Help:      "Total fragments marked by tier",
		}, []string{"tier"}),
		candidateScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cardmark",
			Subsystem: "detector",
			Name:      "candidate_score",
			Help:      "Scores of possible card numbers",
			Buckets:   []float64{15, 30, 60, 85, 100, 150, 190},
		}),
		inputsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cardmark",
			Subsystem: "scanner",
			Name:      "inputs_total",
			Help:      "Total scanned inputs by status",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inspectionsTotal, m.fragmentsTotal, m.marksTotal, m.candidateScore, m.inputsTotal)
	return m
}

// ObserveInspection counts one inspected text by workflow: "alert" or
// "alert_notice".
func (m *ScanMetrics) ObserveInspection(workflow string) {
	if m == nil {
		return
	}
	m.inspectionsTotal.WithLabelValues(workflow).Inc()
}

// ObserveFragment counts a fragment by outcome: "empty", "skipped",
// "impossible" or "scored".
func (m *ScanMetrics) ObserveFragment(outcome string) {
	if m == nil {
		return
	}
	m.fragmentsTotal.WithLabelValues(outcome).Inc()
}

// ObserveScore records the score of a possible card number.
func (m *ScanMetrics) ObserveScore(score float64) {
	if m == nil {
		return
	}
	m.candidateScore.Observe(score)
}

// ObserveMark counts a fragment marked at the given tier.
func (m *ScanMetrics) ObserveMark(tier string) {
	if m == nil {
		return
	}
	m.marksTotal.WithLabelValues(tier).Inc()
}

// ObserveInput counts a scanned input by status: "scanned", "excluded" or
// "error".
func (m *ScanMetrics) ObserveInput(status string) {
	if m == nil {
		return
	}
	m.inputsTotal.WithLabelValues(status).Inc()
}

// WriteTextfile writes the gathered metrics in the text exposition format,
// for pickup by a node exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
