// Package otel provides OpenTelemetry metric exporter bindings for kidauth
// counters and histograms.
//
// [NewExporter] registers Int64ObservableCounter instruments for each engine
// counter and Int64ObservableGauge per histogram bucket. A single callback
// reads [kidauth.Engine.MetricsSnapshot] on each collection cycle. Callers
// own the MeterProvider and supply the Meter.
package otel
