// Package metrics exports the outcome of a placement run as Prometheus gauges
// written to a node_exporter textfile.
package metrics
