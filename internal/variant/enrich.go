package variant

import (
	"spool/internal/language"
)

// evidenceKeys are the extra-map entries scanned for language markers, in
// the order providers tend to put the most specific label first.
var evidenceKeys = []string{"label", "audio_label", "track_name", "format_note"}

// Enrich fills the variant's empty language and quality fields from its
// textual evidence. Fields the caller already populated are never
// overwritten, so enriching twice is a no-op.
func Enrich(v *Variant, opts language.Options) {
	if v == nil {
		return
	}
	v.Quality = NormalizeQuality(v.Quality)

	for _, text := range evidence(v) {
		det := language.Classify(text, opts)
		if v.AudioLang == "" {
			v.AudioLang = det.Audio
		}
		if v.DubLang == "" {
			v.DubLang = det.Dub
		}
		for _, sub := range det.Subs {
			if !v.HasSubtitle(sub) {
				v.SubtitleLangs = append(v.SubtitleLangs, sub)
			}
		}
		if v.Quality == "" {
			v.Quality = DetectQuality(text)
		}
	}
	v.SubtitleLangs = language.NormalizeList(v.SubtitleLangs)
}

func evidence(v *Variant) []string {
	texts := make([]string, 0, len(evidenceKeys)+1)
	for _, key := range evidenceKeys {
		if value := v.Extra[key]; value != "" {
			texts = append(texts, value)
		}
	}
	if v.Title != "" {
		texts = append(texts, v.Title)
	}
	return texts
}
