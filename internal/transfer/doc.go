// Package transfer implements the download workflow stage: walking an
// episode's ranked plan through the mirror orchestrator until one source
// yields a verified file in staging.
//
// The stage owns the per-episode wiring: premium gating for the unrestrict
// service, the language verifier, progress reporting back to the queue and
// the batch coordinator, and review routing for kept mismatches.
package transfer
