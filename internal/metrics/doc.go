// Package metrics holds the Prometheus collectors for detection and scanning.
//
// All Observe methods are safe on a nil *ScanMetrics, so callers that do not
// collect metrics can pass nil.
package metrics
