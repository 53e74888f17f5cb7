// Package daemon coordinates the long-running Spool process.
//
// It wires configuration, queue storage, the workflow manager, and the batch
// status coordinator into a single lifecycle with flock-based locking to
// prevent multiple instances. The daemon exposes queue maintenance helpers,
// runs periodic staging and log retention sweeps, and serves the HTTP API the
// CLI talks to.
//
// Keep orchestration logic here: individual workflow stages live in their own
// packages while the daemon focuses on startup, shutdown, and high level
// coordination.
package daemon
