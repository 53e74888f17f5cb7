package variant

import (
	"regexp"
	"strings"
)

// qualityLadder orders the recognized tiers best-first. Ranks index into
// this slice; unrecognized tiers rank below the last entry.
var qualityLadder = []string{"2160p", "1440p", "1080p", "720p", "480p", "360p"}

var qualityAliases = map[string]string{
	"4k":     "2160p",
	"uhd":    "2160p",
	"2160":   "2160p",
	"1440":   "1440p",
	"qhd":    "1440p",
	"fullhd": "1080p",
	"fhd":    "1080p",
	"1080":   "1080p",
	"hd":     "720p",
	"720":    "720p",
	"sd":     "480p",
	"480":    "480p",
	"360":    "360p",
}

var qualityToken = regexp.MustCompile(`(?i)\b(2160p|1440p|1080p|720p|480p|360p|4k|uhd|qhd|fullhd|fhd)\b`)

// NormalizeQuality maps a provider quality label onto the ladder.
// Returns "" when the label names no recognized tier.
func NormalizeQuality(label string) string {
	q := strings.ToLower(strings.TrimSpace(label))
	if q == "" {
		return ""
	}
	if mapped, ok := qualityAliases[q]; ok {
		return mapped
	}
	for _, tier := range qualityLadder {
		if q == tier {
			return tier
		}
	}
	return ""
}

// DetectQuality scans free text for a quality token and returns the
// normalized tier, "" when none appears.
func DetectQuality(text string) string {
	if m := qualityToken.FindString(text); m != "" {
		return NormalizeQuality(m)
	}
	return ""
}

// QualityRank returns the ladder index of a tier; lower is better.
// Unknown tiers rank below every real one.
func QualityRank(quality string) int {
	q := NormalizeQuality(quality)
	for i, tier := range qualityLadder {
		if q == tier {
			return i
		}
	}
	return len(qualityLadder)
}

// BetterQuality reports whether tier a outranks tier b.
func BetterQuality(a, b string) bool {
	return QualityRank(a) < QualityRank(b)
}
