// Package otel binds aegis engine metrics to an OpenTelemetry meter.
//
// [NewExporter] creates an Int64ObservableCounter per engine counter and an
// Int64ObservableGauge per histogram bucket. One callback reads
// [aegis.Engine.MetricsSnapshot] on every collection. The caller owns the
// MeterProvider.
package otel
