// Package variant models one downloadable rendition of an episode.
//
// A Variant pairs a stream URL with everything the pipeline knows about it:
// provider, episode coordinates, quality tier, and the language evidence the
// selector ranks on. Variants are created per extraction attempt, enriched
// once by the language classifier, and discarded when the attempt concludes.
//
// Quality tiers form a fixed ladder from 2160p down to 360p. Provider labels
// ("4K", "FullHD", "HD") normalize onto the ladder; anything unrecognized
// ranks below every real tier.
package variant
