// Package verify decides whether a downloaded media file actually carries
// the desired spoken language.
//
// The check runs in escalating cost order: container language tags first,
// then a subtitles-only gate, then sampled speech identification, and
// finally a best-effort remux repair with one re-check. Every decision is
// reported as an Outcome with a stable reason string; a language mismatch
// is a policy rejection, never an error.
//
// The verifier creates repaired copies but never deletes its inputs.
// Callers own cleanup of rejected files, including any repaired copy the
// Outcome points at.
package verify
