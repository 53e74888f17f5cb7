// Package metrics defines the Prometheus instrumentation exposed on the
// daemon's /metrics endpoint. Collectors register on the default registry;
// increments happen at the workflow and download layers.
package metrics
