package selection

import (
	"fmt"
	"sort"
	"strings"

	"spool/internal/language"
	"spool/internal/variant"
)

// Preference is one entry of a language priority list: the original audio
// language plus the language the dialogue was dubbed into. An empty Dub
// requires an undubbed variant on the exact pass and acts as a wildcard on
// the second pass.
type Preference struct {
	Audio string
	Dub   string
}

func (p Preference) String() string {
	if p.Dub == "" {
		return p.Audio
	}
	return p.Audio + "/" + p.Dub
}

// ParsePreference parses a priority entry of the form "audio" or "audio/dub".
// A dub component of "-" is equivalent to no dub.
func ParsePreference(entry string) (Preference, error) {
	trimmed := strings.ToLower(strings.TrimSpace(entry))
	if trimmed == "" {
		return Preference{}, fmt.Errorf("priority entry is empty")
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) > 2 {
		return Preference{}, fmt.Errorf("priority entry %q: expected \"audio\" or \"audio/dub\"", entry)
	}
	audio := normalizeCode(parts[0])
	if audio == "" {
		return Preference{}, fmt.Errorf("priority entry %q: unrecognized audio language", entry)
	}
	pref := Preference{Audio: audio}
	if len(parts) == 2 && parts[1] != "-" && parts[1] != "" {
		dub := normalizeCode(parts[1])
		if dub == "" {
			return Preference{}, fmt.Errorf("priority entry %q: unrecognized dub language", entry)
		}
		pref.Dub = dub
	}
	return pref, nil
}

// ParsePreferences parses a whole priority list, best-first.
func ParsePreferences(entries []string) ([]Preference, error) {
	prefs := make([]Preference, 0, len(entries))
	for _, entry := range entries {
		pref, err := ParsePreference(entry)
		if err != nil {
			return nil, err
		}
		prefs = append(prefs, pref)
	}
	return prefs, nil
}

func normalizeCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if mapped := language.ToISO2(code); mapped != "" {
		return mapped
	}
	return ""
}

// Fallback controls what PickBest returns when no variant matches any
// priority entry.
type Fallback int

const (
	// FallbackNone reports no match.
	FallbackNone Fallback = iota
	// FallbackFirst returns the first variant in input order.
	FallbackFirst
)

// Options tunes a selection call.
type Options struct {
	Fallback Fallback
}

const (
	wildcardOffset = 100
	rankUnmatched  = 1 << 20
)

// PickBest returns the first variant matching the priority list. The exact
// pass walks the whole list before the wildcard pass starts, so a low-priority
// exact match beats a high-priority wildcard match.
func PickBest(variants []variant.Variant, priority []Preference, opts Options) (variant.Variant, bool) {
	for _, pref := range priority {
		for _, v := range variants {
			if matchesExact(v, pref) {
				return v, true
			}
		}
	}
	for _, pref := range priority {
		if pref.Dub != "" {
			continue
		}
		for _, v := range variants {
			if matchesWildcard(v, pref) {
				return v, true
			}
		}
	}
	if opts.Fallback == FallbackFirst && len(variants) > 0 {
		return variants[0], true
	}
	return variant.Variant{}, false
}

// Rank computes the priority rank of a single variant: the index of its first
// exact match, else wildcardOffset plus the index of its first wildcard match,
// else a sentinel beyond any real rank. Lower is better.
func Rank(v variant.Variant, priority []Preference) int {
	for i, pref := range priority {
		if matchesExact(v, pref) {
			return i
		}
	}
	for i, pref := range priority {
		if pref.Dub != "" {
			continue
		}
		if matchesWildcard(v, pref) {
			return wildcardOffset + i
		}
	}
	return rankUnmatched
}

// SortByPreference returns the variants ordered best-first by priority rank.
// The sort is stable, so input order breaks ties.
func SortByPreference(variants []variant.Variant, priority []Preference) []variant.Variant {
	sorted := make([]variant.Variant, len(variants))
	copy(sorted, variants)
	ranks := make(map[int]int, len(sorted))
	for i := range sorted {
		ranks[i] = Rank(sorted[i], priority)
	}
	order := make([]int, len(sorted))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return ranks[order[a]] < ranks[order[b]]
	})
	out := make([]variant.Variant, len(sorted))
	for i, idx := range order {
		out[i] = sorted[idx]
	}
	return out
}

// PickBestWithQuality selects within the best-ranked language group the
// variant with the highest quality tier.
func PickBestWithQuality(variants []variant.Variant, priority []Preference, opts Options) (variant.Variant, bool) {
	sorted := SortByPreference(variants, priority)
	if len(sorted) == 0 {
		return variant.Variant{}, false
	}
	if Rank(sorted[0], priority) == rankUnmatched {
		if opts.Fallback == FallbackFirst {
			return variants[0], true
		}
		return variant.Variant{}, false
	}
	key := sorted[0].LanguageKey()
	best := sorted[0]
	for _, v := range sorted[1:] {
		if v.LanguageKey() != key {
			continue
		}
		if variant.QualityRank(v.Quality) < variant.QualityRank(best.Quality) {
			best = v
		}
	}
	return best, true
}

func matchesExact(v variant.Variant, pref Preference) bool {
	return langEqual(v.AudioLang, pref.Audio) && langEqual(v.DubLang, pref.Dub)
}

// matchesWildcard ignores the variant's dub state entirely; only valid for
// preferences without a dub component.
func matchesWildcard(v variant.Variant, pref Preference) bool {
	return v.AudioLang != "" && langEqual(v.AudioLang, pref.Audio)
}

// langEqual compares language codes, treating a regional variant as equal to
// its base ("de-at" matches "de"). Absent codes only match absent codes.
func langEqual(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return true
	}
	if a == "" || b == "" {
		return false
	}
	return language.Base(a) == language.Base(b)
}
