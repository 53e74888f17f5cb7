// Package selection ranks classified stream variants against an ordered
// language priority list and picks the candidate to download first.
//
// A priority entry pairs an original-audio language with an optional dub
// language. Matching runs in two passes: an exact pass over the whole list
// (absent dub means the variant must not be dubbed), then a wildcard pass
// where entries without a dub component accept any dub state. Callers choose
// what happens when nothing matches via the Fallback option.
package selection
