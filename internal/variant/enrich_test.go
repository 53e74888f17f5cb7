package variant

import (
	"reflect"
	"testing"

	"spool/internal/language"
)

func TestEnrichFillsFromTitle(t *testing.T) {
	v := Variant{Title: "Episode 1 Japanese German Dub 1080p"}
	Enrich(&v, language.DefaultOptions())
	if v.AudioLang != "ja" {
		t.Errorf("AudioLang = %q, want %q", v.AudioLang, "ja")
	}
	if v.DubLang != "de" {
		t.Errorf("DubLang = %q, want %q", v.DubLang, "de")
	}
	if v.Quality != "1080p" {
		t.Errorf("Quality = %q, want %q", v.Quality, "1080p")
	}
}

func TestEnrichNeverOverwrites(t *testing.T) {
	v := Variant{AudioLang: "en", Quality: "720p", Title: "Japanese German Dub 1080p"}
	Enrich(&v, language.DefaultOptions())
	if v.AudioLang != "en" {
		t.Errorf("AudioLang = %q, want caller value %q", v.AudioLang, "en")
	}
	if v.Quality != "720p" {
		t.Errorf("Quality = %q, want caller value %q", v.Quality, "720p")
	}
	if v.DubLang != "de" {
		t.Errorf("DubLang = %q, want filled %q", v.DubLang, "de")
	}
}

func TestEnrichEvidenceOrder(t *testing.T) {
	// The extra label is more specific than the page title and wins.
	v := Variant{
		Title: "Anime Episode German Dub",
		Extra: map[string]string{"label": "Deutsch"},
	}
	Enrich(&v, language.DefaultOptions())
	if v.AudioLang != "de" {
		t.Errorf("AudioLang = %q, want %q from the label", v.AudioLang, "de")
	}
	if v.DubLang != "de" {
		t.Errorf("DubLang = %q, want %q from the title", v.DubLang, "de")
	}
}

func TestEnrichNormalizesSubtitles(t *testing.T) {
	v := Variant{Title: "OmU", SubtitleLangs: []string{"ger"}}
	Enrich(&v, language.DefaultOptions())
	if !reflect.DeepEqual(v.SubtitleLangs, []string{"de"}) {
		t.Errorf("SubtitleLangs = %v, want [de]", v.SubtitleLangs)
	}
}

func TestEnrichIdempotent(t *testing.T) {
	v := Variant{Title: "Japanese German Dub 1080p", Extra: map[string]string{"label": "OmU"}}
	Enrich(&v, language.DefaultOptions())
	first := v.Clone()
	Enrich(&v, language.DefaultOptions())
	if !reflect.DeepEqual(v, first) {
		t.Errorf("second Enrich changed the variant: %+v != %+v", v, first)
	}
}

func TestEnrichNil(t *testing.T) {
	Enrich(nil, language.DefaultOptions())
}
