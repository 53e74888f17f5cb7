// Package preflight provides readiness checks for external services
// and filesystem paths that Spool depends on.
//
// These checks run once at daemon startup and on demand from the CLI
// status command. Failures surface in status output and disable the
// affected feature rather than erroring on every download attempt.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight
