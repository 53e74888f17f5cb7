package variant

import (
	"strings"

	"spool/internal/language"
)

// Variant is one downloadable rendition of an episode on one provider.
// Language fields hold lowercase ISO 639-1 codes, regional refinements
// written as "de-at"; an empty field means the evidence never named one.
type Variant struct {
	URL           string
	Provider      string
	Season        int // 1-based, 0 when unknown
	Episode       int // 1-based, 0 when unknown
	Title         string
	Quality       string // normalized tier ("1080p"), empty when unknown
	AudioLang     string
	DubLang       string
	SubtitleLangs []string
	Extra         map[string]string
}

// HasAudio reports whether the audio language is known.
func (v Variant) HasAudio() bool {
	return v.AudioLang != ""
}

// HasDub reports whether a dub language is known.
func (v Variant) HasDub() bool {
	return v.DubLang != ""
}

// LanguageKey groups variants that are interchangeable language-wise.
func (v Variant) LanguageKey() string {
	return v.AudioLang + "/" + v.DubLang
}

// HasSubtitle reports whether the variant carries subtitles in lang,
// comparing at the language-family level so "de-at" counts as "de".
func (v Variant) HasSubtitle(lang string) bool {
	for _, sub := range v.SubtitleLangs {
		if language.Base(sub) == language.Base(lang) {
			return true
		}
	}
	return false
}

// Label returns the most descriptive free-text evidence available, falling
// back through the extra map to the title.
func (v Variant) Label() string {
	for _, key := range []string{"label", "audio_label", "track_name"} {
		if value := strings.TrimSpace(v.Extra[key]); value != "" {
			return value
		}
	}
	return strings.TrimSpace(v.Title)
}

// Clone returns a deep copy so enrichment never aliases shared state.
func (v Variant) Clone() Variant {
	out := v
	if v.SubtitleLangs != nil {
		out.SubtitleLangs = append([]string(nil), v.SubtitleLangs...)
	}
	if v.Extra != nil {
		out.Extra = make(map[string]string, len(v.Extra))
		for k, val := range v.Extra {
			out.Extra[k] = val
		}
	}
	return out
}

