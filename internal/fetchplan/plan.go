package fetchplan

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Envelope captures the structured payload shared between the extract,
// transfer, and organize stages.
type Envelope struct {
	Series     string      `json:"series,omitempty"`
	Season     int         `json:"season,omitempty"`
	Episode    int         `json:"episode,omitempty"`
	Title      string      `json:"title,omitempty"`
	Candidates []Candidate `json:"candidates,omitempty"`
	Attributes Attributes  `json:"attributes,omitempty"`
}

// Candidate is one ranked download source. Candidates are stored best-first
// and the transfer stage tries them strictly in that order.
type Candidate struct {
	URL           string   `json:"url"`
	Provider      string   `json:"provider,omitempty"`
	Quality       string   `json:"quality,omitempty"`
	AudioLang     string   `json:"audio_lang,omitempty"`
	DubLang       string   `json:"dub_lang,omitempty"`
	SubtitleLangs []string `json:"subtitle_langs,omitempty"`
	// Direct marks a URL demoted to a plain fetch after the extraction
	// tool reported it unsupported; no format enumeration backs it.
	Direct bool `json:"direct,omitempty"`
}

// Attributes carries typed extraction metadata consumed by later stages.
type Attributes struct {
	// UnsupportedHosts lists registrable domains the inspector could not
	// enumerate formats for during this extraction.
	UnsupportedHosts []string `json:"unsupported_hosts,omitempty"`
	// FormatsInspected counts the formats the inspector saw across all
	// mirrors before ranking.
	FormatsInspected int `json:"formats_inspected,omitempty"`
	// ResolvedAt records when the plan was produced, RFC 3339.
	ResolvedAt string `json:"resolved_at,omitempty"`
}

// Parse loads a plan from JSON, returning an empty envelope on blank input.
func Parse(raw string) (Envelope, error) {
	var env Envelope
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return env, nil
	}
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return Envelope{}, err
	}
	env.Candidates = slices.Clone(env.Candidates)
	env.Attributes.UnsupportedHosts = slices.Clone(env.Attributes.UnsupportedHosts)
	return env, nil
}

// Encode serialises the envelope to JSON.
func (e Envelope) Encode() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// EpisodeCode formats the envelope's season/episode pair as SxxEyy, or an
// empty string when both are unset.
func (e Envelope) EpisodeCode() string {
	if e.Season <= 0 && e.Episode <= 0 {
		return ""
	}
	season := e.Season
	if season <= 0 {
		season = 1
	}
	return fmt.Sprintf("S%02dE%02d", season, e.Episode)
}

// MirrorURLs flattens the candidate list into transfer order.
func (e Envelope) MirrorURLs() []string {
	if len(e.Candidates) == 0 {
		return nil
	}
	urls := make([]string, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		if strings.TrimSpace(c.URL) == "" {
			continue
		}
		urls = append(urls, c.URL)
	}
	return urls
}

// Best returns a pointer to the highest-ranked candidate, or nil when the
// plan is empty.
func (e *Envelope) Best() *Candidate {
	if e == nil || len(e.Candidates) == 0 {
		return nil
	}
	return &e.Candidates[0]
}

// CandidateFor locates the candidate backing the supplied URL, so the
// transfer stage can recover language labels for the mirror that won.
func (e Envelope) CandidateFor(url string) (Candidate, bool) {
	url = strings.TrimSpace(url)
	if url == "" {
		return Candidate{}, false
	}
	for _, c := range e.Candidates {
		if strings.EqualFold(strings.TrimSpace(c.URL), url) {
			return c, true
		}
	}
	return Candidate{}, false
}

// RecordUnsupported appends a host to the unsupported list, de-duplicated.
func (e *Envelope) RecordUnsupported(host string) {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" || e == nil {
		return
	}
	if slices.Contains(e.Attributes.UnsupportedHosts, host) {
		return
	}
	e.Attributes.UnsupportedHosts = append(e.Attributes.UnsupportedHosts, host)
}
