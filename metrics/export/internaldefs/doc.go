// Package internaldefs holds the metric name and bucket definitions shared by
// the exporter implementations.
//
// Both the Prometheus and OTel exporters read from this package so a metric
// keeps the same name and bucket boundaries regardless of which backend
// scrapes it.
package internaldefs
