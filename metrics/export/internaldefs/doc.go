// Package internaldefs holds the metric name and bucket definitions shared
// by exporter implementations.
//
// Counter and histogram definitions live here so the Prometheus and OTel
// exporters agree on wire names and bucket boundaries. Changing a definition
// here changes every exporter at once.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O.
package internaldefs
