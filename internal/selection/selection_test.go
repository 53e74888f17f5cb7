package selection_test

import (
	"testing"

	"spool/internal/selection"
	"spool/internal/variant"
)

func mustParse(t *testing.T, entries ...string) []selection.Preference {
	t.Helper()
	prefs, err := selection.ParsePreferences(entries)
	if err != nil {
		t.Fatalf("ParsePreferences(%v): %v", entries, err)
	}
	return prefs
}

func defaultPriority(t *testing.T) []selection.Preference {
	t.Helper()
	return mustParse(t, "de", "en/de", "en", "ja/de", "ja/en", "ja")
}

func TestParsePreference(t *testing.T) {
	tests := []struct {
		input   string
		want    selection.Preference
		wantErr bool
	}{
		{input: "de", want: selection.Preference{Audio: "de"}},
		{input: "de/-", want: selection.Preference{Audio: "de"}},
		{input: "en/de", want: selection.Preference{Audio: "en", Dub: "de"}},
		{input: "JA/DE", want: selection.Preference{Audio: "ja", Dub: "de"}},
		{input: "ger/eng", want: selection.Preference{Audio: "de", Dub: "en"}},
		{input: "", wantErr: true},
		{input: "a/b/c", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := selection.ParsePreference(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePreference(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("ParsePreference(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestPickBestExactBeatsWildcard(t *testing.T) {
	priority := defaultPriority(t)
	variants := []variant.Variant{
		{URL: "u1", AudioLang: "en", DubLang: "fr"}, // only wildcard-matchable via "en"
		{URL: "u2", AudioLang: "ja", DubLang: "en"}, // exact match for ja/en
	}

	got, ok := selection.PickBest(variants, priority, selection.Options{})
	if !ok {
		t.Fatal("expected a match")
	}
	if got.URL != "u2" {
		t.Fatalf("expected exact ja/en match to win over en wildcard, got %s", got.URL)
	}
}

func TestPickBestExactOrder(t *testing.T) {
	priority := defaultPriority(t)
	variants := []variant.Variant{
		{URL: "dub", AudioLang: "ja", DubLang: "de"},
		{URL: "native", AudioLang: "de"},
	}

	got, ok := selection.PickBest(variants, priority, selection.Options{})
	if !ok {
		t.Fatal("expected a match")
	}
	if got.URL != "native" {
		t.Fatalf("expected native German first, got %s", got.URL)
	}
}

func TestPickBestWildcardIgnoresDub(t *testing.T) {
	priority := mustParse(t, "en/de", "en")
	variants := []variant.Variant{
		{URL: "odd", AudioLang: "en", DubLang: "fr"},
	}

	got, ok := selection.PickBest(variants, priority, selection.Options{})
	if !ok {
		t.Fatal("expected wildcard match")
	}
	if got.URL != "odd" {
		t.Fatalf("unexpected pick %s", got.URL)
	}
}

func TestPickBestRegionalMatchesBase(t *testing.T) {
	priority := mustParse(t, "de")
	variants := []variant.Variant{
		{URL: "at", AudioLang: "de-at"},
	}

	got, ok := selection.PickBest(variants, priority, selection.Options{})
	if !ok {
		t.Fatal("expected regional variant to match base priority")
	}
	if got.URL != "at" {
		t.Fatalf("unexpected pick %s", got.URL)
	}
}

func TestPickBestFallback(t *testing.T) {
	priority := mustParse(t, "de")
	variants := []variant.Variant{
		{URL: "first", AudioLang: "ko"},
		{URL: "second", AudioLang: "ru"},
	}

	if _, ok := selection.PickBest(variants, priority, selection.Options{Fallback: selection.FallbackNone}); ok {
		t.Fatal("expected no match with FallbackNone")
	}

	got, ok := selection.PickBest(variants, priority, selection.Options{Fallback: selection.FallbackFirst})
	if !ok || got.URL != "first" {
		t.Fatalf("expected first input variant, got %+v ok=%v", got, ok)
	}
}

func TestPickBestEmptyInput(t *testing.T) {
	priority := defaultPriority(t)
	if _, ok := selection.PickBest(nil, priority, selection.Options{Fallback: selection.FallbackFirst}); ok {
		t.Fatal("expected no match for empty input")
	}
}

func TestSortByPreferenceRanks(t *testing.T) {
	priority := defaultPriority(t)
	variants := []variant.Variant{
		{URL: "unmatched", AudioLang: "ko"},
		{URL: "wild", AudioLang: "en", DubLang: "fr"},
		{URL: "jadub", AudioLang: "ja", DubLang: "de"},
		{URL: "native", AudioLang: "de"},
	}

	sorted := selection.SortByPreference(variants, priority)
	want := []string{"native", "jadub", "wild", "unmatched"}
	for i, url := range want {
		if sorted[i].URL != url {
			t.Fatalf("position %d: got %s, want %s (order %v)", i, sorted[i].URL, url, urls(sorted))
		}
	}
}

func TestSortByPreferenceStable(t *testing.T) {
	priority := mustParse(t, "de")
	variants := []variant.Variant{
		{URL: "a", AudioLang: "de"},
		{URL: "b", AudioLang: "de"},
		{URL: "c", AudioLang: "de"},
	}

	sorted := selection.SortByPreference(variants, priority)
	for i, url := range []string{"a", "b", "c"} {
		if sorted[i].URL != url {
			t.Fatalf("stability violated: %v", urls(sorted))
		}
	}
}

func TestSortByPreferenceAgreesWithPickBest(t *testing.T) {
	priority := defaultPriority(t)
	variants := []variant.Variant{
		{URL: "wild", AudioLang: "en", DubLang: "fr"},
		{URL: "exact", AudioLang: "ja", DubLang: "en"},
	}

	picked, ok := selection.PickBest(variants, priority, selection.Options{})
	if !ok {
		t.Fatal("expected a match")
	}
	sorted := selection.SortByPreference(variants, priority)
	if sorted[0].URL != picked.URL {
		t.Fatalf("PickBest chose %s but SortByPreference leads with %s", picked.URL, sorted[0].URL)
	}
}

func TestPickBestWithQuality(t *testing.T) {
	priority := defaultPriority(t)
	variants := []variant.Variant{
		{URL: "de720", AudioLang: "de", Quality: "720p"},
		{URL: "en2160", AudioLang: "en", DubLang: "de", Quality: "2160p"},
		{URL: "de1080", AudioLang: "de", Quality: "1080p"},
	}

	got, ok := selection.PickBestWithQuality(variants, priority, selection.Options{})
	if !ok {
		t.Fatal("expected a match")
	}
	if got.URL != "de1080" {
		t.Fatalf("expected best quality within best language group, got %s", got.URL)
	}
}

func TestPickBestWithQualityUnknownQualityLast(t *testing.T) {
	priority := mustParse(t, "de")
	variants := []variant.Variant{
		{URL: "unknown", AudioLang: "de"},
		{URL: "sd", AudioLang: "de", Quality: "480p"},
	}

	got, ok := selection.PickBestWithQuality(variants, priority, selection.Options{})
	if !ok {
		t.Fatal("expected a match")
	}
	if got.URL != "sd" {
		t.Fatalf("expected recognized quality to beat unknown, got %s", got.URL)
	}
}

func TestPickBestWithQualityFallback(t *testing.T) {
	priority := mustParse(t, "de")
	variants := []variant.Variant{
		{URL: "first", AudioLang: "ko", Quality: "480p"},
		{URL: "second", AudioLang: "ru", Quality: "1080p"},
	}

	if _, ok := selection.PickBestWithQuality(variants, priority, selection.Options{}); ok {
		t.Fatal("expected no match with FallbackNone")
	}
	got, ok := selection.PickBestWithQuality(variants, priority, selection.Options{Fallback: selection.FallbackFirst})
	if !ok || got.URL != "first" {
		t.Fatalf("expected first input variant, got %+v ok=%v", got, ok)
	}
}

func urls(variants []variant.Variant) []string {
	out := make([]string, len(variants))
	for i, v := range variants {
		out[i] = v.URL
	}
	return out
}
