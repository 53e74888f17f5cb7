// Package workflow advances queue items through the two-lane processing
// pipeline: the extract lane resolves download candidates for pending
// episodes, and the transfer lane downloads them and organizes the results
// into the library.
//
// Each lane runs a configurable number of workers against the shared SQLite
// queue. Workers claim items with a compare-and-swap status transition, so
// lanes scale without handing the same episode to two goroutines. While a
// stage executes, a heartbeat goroutine stamps the item so crashed or hung
// workers can be detected and their items reclaimed.
//
// Stage handlers implement stage.Handler. The manager owns everything around
// them: status transitions, failure classification, throttle-group gating for
// large batches, batch completion notifications, and cooperative cancellation
// via the status coordinator.
//
// Add new lifecycle stages by extending StageSet, updating the queue status
// enums, and teaching the manager how to transition items; this package is the
// authoritative home for that coordination logic.
package workflow
