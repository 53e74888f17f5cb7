package extract_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"spool/internal/download"
	"spool/internal/extract"
	"spool/internal/fetchplan"
	"spool/internal/queue"
	"spool/internal/services"
	"spool/internal/testsupport"
)

// stubInspector answers Inspect from a URL-keyed script.
type stubInspector struct {
	infos map[string]*download.MediaInfo
	errs  map[string]error
	calls []string
}

func (s *stubInspector) Inspect(ctx context.Context, rawURL string) (*download.MediaInfo, error) {
	s.calls = append(s.calls, rawURL)
	if err, ok := s.errs[rawURL]; ok {
		return nil, err
	}
	if info, ok := s.infos[rawURL]; ok {
		return info, nil
	}
	return nil, fmt.Errorf("unexpected inspect of %s", rawURL)
}

func seedEpisode(t *testing.T, store *queue.Store, mirrors ...string) *queue.Item {
	t.Helper()
	return testsupport.NewEpisode(t, store, "", queue.EpisodeSeed{
		Series:  "Demo Show",
		Season:  1,
		Episode: 5,
		Title:   "Pilot",
		Mirrors: mirrors,
	})
}

func TestExecuteRanksMirrorsByLanguagePriority(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithLanguagePriority("ja/de", "en"))
	store := testsupport.MustOpenStore(t, cfg)
	item := seedEpisode(t, store, "https://host-a.example/v/1", "https://host-b.example/v/2")

	inspector := &stubInspector{infos: map[string]*download.MediaInfo{
		"https://host-a.example/v/1": {
			Title:     "Demo Show S01E05 English 720p",
			Extractor: "HostA",
			Formats:   []download.MediaFormat{{Height: 720}},
		},
		"https://host-b.example/v/2": {
			Title:     "Demo Show S01E05 Japanese German Dub 1080p",
			Extractor: "HostB",
			Formats:   []download.MediaFormat{{Height: 1080}},
		},
	}}
	ex := extract.New(cfg, store, nil, extract.WithInspector(inspector), extract.WithPlaylistFetcher(nil))

	if err := ex.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := ex.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	env, err := fetchplan.Parse(item.PlanJSON)
	if err != nil {
		t.Fatalf("parse plan: %v", err)
	}
	if len(env.Candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(env.Candidates))
	}
	best := env.Candidates[0]
	if best.URL != "https://host-b.example/v/2" {
		t.Fatalf("best candidate = %s, want the German dub mirror", best.URL)
	}
	if best.DubLang != "de" || best.Quality != "1080p" || best.Provider != "hostb" {
		t.Fatalf("unexpected best candidate: %+v", best)
	}
	if env.Attributes.FormatsInspected != 2 {
		t.Fatalf("formats inspected = %d, want 2", env.Attributes.FormatsInspected)
	}
	if env.Attributes.ResolvedAt == "" {
		t.Fatal("ResolvedAt not recorded")
	}
	if item.DubLang != "de" {
		t.Fatalf("item dub = %q, want de", item.DubLang)
	}
}

func TestExecuteDemotesUnsupportedHosts(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithLanguagePriority("de"))
	store := testsupport.MustOpenStore(t, cfg)
	item := seedEpisode(t, store, "https://weird.example/watch/9", "https://host-a.example/v/1")

	inspector := &stubInspector{
		infos: map[string]*download.MediaInfo{
			"https://host-a.example/v/1": {
				Title:     "Demo Show S01E05 Deutsch",
				Extractor: "HostA",
				Formats:   []download.MediaFormat{{Height: 720}},
			},
		},
		errs: map[string]error{
			"https://weird.example/watch/9": fmt.Errorf("%w: no extractor", download.ErrUnsupportedURL),
		},
	}
	ex := extract.New(cfg, store, nil, extract.WithInspector(inspector), extract.WithPlaylistFetcher(nil))

	if err := ex.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	env, err := fetchplan.Parse(item.PlanJSON)
	if err != nil {
		t.Fatalf("parse plan: %v", err)
	}
	if len(env.Candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(env.Candidates))
	}
	if env.Candidates[0].Direct || !env.Candidates[1].Direct {
		t.Fatalf("direct candidate should rank last: %+v", env.Candidates)
	}
	if len(env.Attributes.UnsupportedHosts) != 1 || env.Attributes.UnsupportedHosts[0] != "weird.example" {
		t.Fatalf("unsupported hosts = %v", env.Attributes.UnsupportedHosts)
	}
}

func TestExecuteInfersOriginalFromContext(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithLanguagePriority("ja/de", "de"))
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewEpisode(t, store, "", queue.EpisodeSeed{
		Series:  "Some Show",
		Season:  2,
		Episode: 3,
		Title:   "Returns",
		Context: "anime simulcast",
		Mirrors: []string{"https://host-a.example/v/1"},
	})

	inspector := &stubInspector{infos: map[string]*download.MediaInfo{
		"https://host-a.example/v/1": {
			Title:     "Some Show S02E03 German Dub",
			Extractor: "HostA",
		},
	}}
	ex := extract.New(cfg, store, nil, extract.WithInspector(inspector), extract.WithPlaylistFetcher(nil))

	if err := ex.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	env, _ := fetchplan.Parse(item.PlanJSON)
	best := env.Best()
	if best == nil {
		t.Fatal("no candidates")
	}
	if best.AudioLang != "ja" || best.DubLang != "de" {
		t.Fatalf("candidate = audio %q dub %q, want ja/de", best.AudioLang, best.DubLang)
	}
}

func TestExecuteRefinesLanguageFromHLSRenditions(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithLanguagePriority("de", "en"))
	store := testsupport.MustOpenStore(t, cfg)
	item := seedEpisode(t, store, "https://host-a.example/v/1")

	playlist := strings.Join([]string{
		"#EXTM3U",
		`#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="aud",NAME="English",LANGUAGE="eng",URI="en.m3u8"`,
		`#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="aud",NAME="Deutsch",LANGUAGE="deu",URI="de.m3u8"`,
	}, "\n")

	inspector := &stubInspector{infos: map[string]*download.MediaInfo{
		"https://host-a.example/v/1": {
			Title:     "S01E05",
			Extractor: "HostA",
			Formats: []download.MediaFormat{{
				Height:   1080,
				Protocol: "m3u8_native",
				URL:      "https://host-a.example/master.m3u8",
			}},
		},
	}}
	var fetched []string
	ex := extract.New(cfg, store, nil,
		extract.WithInspector(inspector),
		extract.WithPlaylistFetcher(func(ctx context.Context, rawURL string) (string, error) {
			fetched = append(fetched, rawURL)
			return playlist, nil
		}))

	if err := ex.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(fetched) != 1 || fetched[0] != "https://host-a.example/master.m3u8" {
		t.Fatalf("playlist fetches = %v", fetched)
	}
	env, _ := fetchplan.Parse(item.PlanJSON)
	best := env.Best()
	if best == nil || best.AudioLang != "de" {
		t.Fatalf("best candidate = %+v, want German audio from renditions", best)
	}
}

func TestExecuteWithoutSourcesRoutesToReview(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := seedEpisode(t, store, "https://host-a.example/v/1")
	item.SetMirrors(nil)
	item.SourceURL = ""

	ex := extract.New(cfg, store, nil, extract.WithInspector(&stubInspector{}), extract.WithPlaylistFetcher(nil))
	err := ex.Execute(context.Background(), item)
	if err == nil {
		t.Fatal("expected error for empty mirror list")
	}
	if got := services.FailureStatus(err); got != queue.StatusReview {
		t.Fatalf("failure status = %s, want review", got)
	}
}

func TestPrepareRejectsBadPriorityConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithLanguagePriority("klingon"))
	store := testsupport.MustOpenStore(t, cfg)
	item := seedEpisode(t, store, "https://host-a.example/v/1")

	ex := extract.New(cfg, store, nil, extract.WithInspector(&stubInspector{}), extract.WithPlaylistFetcher(nil))
	if err := ex.Prepare(context.Background(), item); err == nil {
		t.Fatal("expected configuration error")
	}
}
