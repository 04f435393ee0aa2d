// Package prometheus provides Prometheus collectors for recovery metrics.
//
// [NewPrometheusExporter] accepts a [recovery.Engine] and exposes an [http.Handler]
// that renders all recovery counters and histograms in Prometheus text exposition
// format. Counter names are prefixed recovery_*_total; the single histogram is
// recovery_verify_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
