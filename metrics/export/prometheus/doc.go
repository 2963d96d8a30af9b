// Package prometheus exposes gatekeeper engine metrics to Prometheus.
//
// [NewCollector] wraps an engine in a prometheus.Collector. Counter names are
// prefixed gatekeeper_ and suffixed _total; the single histogram is
// gatekeeper_authenticate_latency_seconds. [Handler] mounts the collector on a
// private registry behind promhttp.
//
// # What this package must NOT do
//
//   - Register on the global default registry.
//   - Mutate engine state.
package prometheus
