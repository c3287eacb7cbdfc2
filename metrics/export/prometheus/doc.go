// Package prometheus exposes engine counters and histograms to a
// Prometheus scrape endpoint.
//
// [Collector] implements the client_golang Collector interface over
// [passgate.Engine.MetricsSnapshot]: every scrape reads one snapshot and
// emits const metrics. [Collector.Handler] wires the collector into a
// private registry served by promhttp, keeping engine metrics out of the
// process-global default registry.
//
// # What this package must NOT do
//
//   - Mutate engine state.
//   - Register into the client_golang default registry.
package prometheus
