// Package speechid identifies the spoken language of a media file by
// transcribing short audio samples.
//
// Samples are pulled from the first audio stream as mono 16 kHz WAV files
// and run through Whisper-family models via uvx: a fast model first, then a
// slower fallback when the fast one fails or stays silent. The first model
// that returns a language code wins.
//
// Detection is best effort. Callers treat an empty result as "unknown" and
// decide for themselves how strict to be.
package speechid
