package fetchplan

import (
	"testing"
)

func TestParseEncodeRoundTrip(t *testing.T) {
	env := Envelope{
		Series:  "Show",
		Season:  1,
		Episode: 4,
		Title:   "The One With The Plan",
		Candidates: []Candidate{
			{URL: "https://host-a.example/v/1", Provider: "host-a", Quality: "1080p", AudioLang: "de", DubLang: "de"},
			{URL: "https://host-b.example/v/2", Provider: "host-b", Quality: "720p", SubtitleLangs: []string{"de"}},
		},
		Attributes: Attributes{
			FormatsInspected: 7,
			ResolvedAt:       "2025-06-01T10:00:00Z",
		},
	}
	encoded, err := env.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := Parse(encoded)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if decoded.Series != env.Series || decoded.Season != 1 || decoded.Episode != 4 {
		t.Fatalf("unexpected decoded envelope: %+v", decoded)
	}
	if len(decoded.Candidates) != 2 {
		t.Fatalf("unexpected candidate count: %d", len(decoded.Candidates))
	}
	if decoded.Candidates[0].AudioLang != "de" || decoded.Candidates[1].SubtitleLangs[0] != "de" {
		t.Fatalf("candidate fields lost: %+v", decoded.Candidates)
	}
	if decoded.Attributes.FormatsInspected != 7 {
		t.Fatalf("attributes lost: %+v", decoded.Attributes)
	}
}

func TestParseBlankReturnsEmptyEnvelope(t *testing.T) {
	env, err := Parse("   ")
	if err != nil {
		t.Fatalf("unexpected error for blank input: %v", err)
	}
	if len(env.Candidates) != 0 || env.Series != "" {
		t.Fatalf("expected empty envelope, got %+v", env)
	}
}

func TestParseRejectsInvalidJSON(t *testing.T) {
	if _, err := Parse("{not json"); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestMirrorURLsPreserveRankOrder(t *testing.T) {
	env := Envelope{Candidates: []Candidate{
		{URL: "https://best.example/v"},
		{URL: "   "},
		{URL: "https://second.example/v"},
	}}
	urls := env.MirrorURLs()
	if len(urls) != 2 {
		t.Fatalf("expected blank URL skipped, got %v", urls)
	}
	if urls[0] != "https://best.example/v" || urls[1] != "https://second.example/v" {
		t.Fatalf("unexpected order: %v", urls)
	}
}

func TestCandidateForMatchesCaseInsensitive(t *testing.T) {
	env := Envelope{Candidates: []Candidate{
		{URL: "https://Host.example/V/1", DubLang: "de"},
	}}
	got, ok := env.CandidateFor("https://host.example/v/1")
	if !ok || got.DubLang != "de" {
		t.Fatalf("expected case-insensitive match, got %+v ok=%v", got, ok)
	}
	if _, ok := env.CandidateFor("https://other.example"); ok {
		t.Fatal("expected no match for unknown URL")
	}
}

func TestEpisodeCode(t *testing.T) {
	if code := (Envelope{}).EpisodeCode(); code != "" {
		t.Fatalf("expected empty code for zero values, got %q", code)
	}
	if code := (Envelope{Episode: 3}).EpisodeCode(); code != "S01E03" {
		t.Fatalf("unexpected code: %s", code)
	}
	if code := (Envelope{Season: 2, Episode: 11}).EpisodeCode(); code != "S02E11" {
		t.Fatalf("unexpected code: %s", code)
	}
}

func TestRecordUnsupportedDeduplicates(t *testing.T) {
	var env Envelope
	env.RecordUnsupported("Voe.sx")
	env.RecordUnsupported("voe.sx")
	env.RecordUnsupported("")
	if len(env.Attributes.UnsupportedHosts) != 1 || env.Attributes.UnsupportedHosts[0] != "voe.sx" {
		t.Fatalf("unexpected unsupported hosts: %v", env.Attributes.UnsupportedHosts)
	}
}
