package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Batch is one submission unit: a series and the episodes to fetch.
type Batch struct {
	// Series is the display title the organizer files episodes under.
	Series string `json:"series"`
	// Context carries topical keywords ("anime", "cartoon") the classifier
	// may use to infer the original audio language of dubbed releases.
	Context string `json:"context,omitempty"`
	// Season applies to episodes that do not name their own.
	Season   int           `json:"season,omitempty"`
	Episodes []EpisodeSeed `json:"episodes"`
}

// EpisodeSeed is one episode's worth of catalog knowledge.
type EpisodeSeed struct {
	Season  int    `json:"season,omitempty"`
	Episode int    `json:"episode,omitempty"`
	Title   string `json:"title,omitempty"`
	// URL is the primary episode page; Mirrors are alternates tried after
	// it, in listed order, until extraction ranks them properly.
	URL     string   `json:"url"`
	Mirrors []string `json:"mirrors,omitempty"`
	// AirDate accepts most common date layouts.
	AirDate string `json:"air_date,omitempty"`
	// DubLangs and SubLangs are the catalog's coarse availability flags.
	// They seed classification but never override extracted evidence.
	DubLangs []string `json:"dub_langs,omitempty"`
	SubLangs []string `json:"sub_langs,omitempty"`
}

// MirrorURLs returns the primary URL plus mirrors, de-duplicated, in order.
func (e EpisodeSeed) MirrorURLs() []string {
	urls := make([]string, 0, len(e.Mirrors)+1)
	seen := make(map[string]struct{}, len(e.Mirrors)+1)
	for _, raw := range append([]string{e.URL}, e.Mirrors...) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		key := strings.ToLower(raw)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		urls = append(urls, raw)
	}
	return urls
}

// AiredAt parses the seed's air date, handling the layouts catalog sites
// actually emit. Returns the zero time when absent or unparseable.
func (e EpisodeSeed) AiredAt() time.Time {
	raw := strings.TrimSpace(e.AirDate)
	if raw == "" {
		return time.Time{}
	}
	parsed, err := dateparse.ParseAny(raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

// Load reads and validates a batch seed file.
func Load(path string) (Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Batch{}, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a batch seed payload and normalizes its episodes.
func Parse(data []byte) (Batch, error) {
	var batch Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return Batch{}, fmt.Errorf("parse seed file: %w", err)
	}
	batch.Series = strings.TrimSpace(batch.Series)
	if len(batch.Episodes) == 0 {
		return Batch{}, errors.New("seed file lists no episodes")
	}
	for i := range batch.Episodes {
		ep := &batch.Episodes[i]
		if ep.Season <= 0 {
			ep.Season = batch.Season
		}
		if ep.Season <= 0 {
			ep.Season = 1
		}
		if ep.Episode <= 0 {
			ep.Episode = i + 1
		}
		if len(ep.MirrorURLs()) == 0 {
			return Batch{}, fmt.Errorf("episode %d has no URL", i+1)
		}
	}
	return batch, nil
}

// FromURLs builds an ad-hoc batch from raw episode URLs, one episode per
// URL, numbered in input order.
func FromURLs(series string, season int, urls []string) (Batch, error) {
	if season <= 0 {
		season = 1
	}
	batch := Batch{Series: strings.TrimSpace(series), Season: season}
	for _, raw := range urls {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		season, episode := refFromURL(raw)
		if season <= 0 {
			season = batch.Season
		}
		batch.Episodes = append(batch.Episodes, EpisodeSeed{
			Season:  season,
			Episode: episode,
			URL:     raw,
		})
	}
	if len(batch.Episodes) == 0 {
		return Batch{}, errors.New("no usable URLs")
	}
	for i := range batch.Episodes {
		if batch.Episodes[i].Episode <= 0 {
			batch.Episodes[i].Episode = i + 1
		}
	}
	return batch, nil
}

var (
	refPattern     = regexp.MustCompile(`(?i)s(\d{1,2})[ ._-]?e(\d{1,3})`)
	urlRefPattern  = regexp.MustCompile(`(?i)(?:staffel|season)[/-](\d{1,2})[/-](?:episode|folge)[/-](\d{1,3})`)
	bareEpxPattern = regexp.MustCompile(`(?i)\b(\d{1,2})x(\d{1,3})\b`)
)

// ParseEpisodeRef extracts season/episode numbers from an SxxEyy-style
// reference embedded in free text.
func ParseEpisodeRef(text string) (season, episode int, ok bool) {
	for _, pattern := range []*regexp.Regexp{refPattern, bareEpxPattern} {
		if m := pattern.FindStringSubmatch(text); m != nil {
			season, _ = strconv.Atoi(m[1])
			episode, _ = strconv.Atoi(m[2])
			return season, episode, true
		}
	}
	return 0, 0, false
}

// refFromURL extracts season/episode numbers from catalog URL path layouts
// ("/staffel-2/episode-5") or embedded SxxEyy markers.
func refFromURL(rawURL string) (season, episode int) {
	if m := urlRefPattern.FindStringSubmatch(rawURL); m != nil {
		season, _ = strconv.Atoi(m[1])
		episode, _ = strconv.Atoi(m[2])
		return season, episode
	}
	if s, e, ok := ParseEpisodeRef(rawURL); ok {
		return s, e
	}
	return 0, 0
}
