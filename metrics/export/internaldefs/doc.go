// Package internaldefs holds the metric names, help strings and bucket
// bounds shared by the exporters, so that Prometheus and OpenTelemetry
// output agree. It performs no I/O.
package internaldefs
