// Package language provides language code normalization and heuristic
// language detection for stream labels.
//
// The code table handles ISO 639-1/639-2 conversion, display names, and tag
// extraction from probe metadata. The classifier side infers audio, dub, and
// subtitle languages from free-text hoster labels and HLS playlist metadata
// using per-language pattern families. Classification is best effort: unknown
// stays unknown, it is never guessed from thin air.
package language
