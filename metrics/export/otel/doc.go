// Package otel binds goAuthClient counters and the refresh latency histogram
// to OpenTelemetry observable instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per client counter
// and one Int64ObservableGauge per histogram bucket. A single callback reads
// [goAuthClient.Client.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate client state.
package otel
