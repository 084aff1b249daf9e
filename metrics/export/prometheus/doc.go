// Package prometheus exposes goAuthClient metrics as a prometheus.Collector.
//
// [NewPrometheusExporter] accepts a [goAuthClient.Client]. The exporter can be
// registered on a caller's registry with Register, or served standalone
// through Handler. Counter names are prefixed goauthclient_*_total; the single
// histogram is goauthclient_refresh_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate client state.
package prometheus
