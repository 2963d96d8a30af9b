// Package otel publishes gatekeeper engine metrics through OpenTelemetry.
//
// [NewExporter] registers an Int64ObservableCounter per engine counter and a set
// of Int64ObservableGauge instruments per histogram bucket. One callback reads
// [gatekeeper.Engine.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
