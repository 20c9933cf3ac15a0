// Package metric provides Prometheus metrics for pqcall.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Prometheus registry and HTTP handler
//   - collector.go: Custom collector for live service gauges
//
// Metrics include:
//
//   - Request latency histograms
//   - Call session and signaling channel gauges
//   - Token lifecycle counters
//   - Replay and integrity rejection counters
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
