// Package prometheus renders kidauth engine metrics in the Prometheus text
// exposition format.
//
// The exporter pulls a [kidauth.MetricsSnapshot] on every render, so it can
// sit behind a /metrics handler without touching engine internals.
package prometheus
