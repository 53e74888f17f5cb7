// Package api defines wire-format types and converters for the daemon HTTP
// API. It translates internal queue models into transport-friendly DTOs so
// the CLI and other consumers never couple to internal types.
//
// # Key Types
//
// QueueItem: transport representation of an episode with progress, language
// findings, and file locations.
//
// WorkflowStatus: daemon running state, lane layout, queue stats, stage
// health, and last processed item.
//
// DaemonStatus: aggregated runtime information including external dependency
// availability and the active batch record.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Internal enums (queue.Status,
// queue.ProcessingLane) are exposed as lowercase strings. Timestamps use
// RFC3339 with milliseconds.
package api
