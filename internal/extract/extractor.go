package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"spool/internal/config"
	"spool/internal/download"
	"spool/internal/fetchplan"
	"spool/internal/language"
	"spool/internal/logging"
	"spool/internal/queue"
	"spool/internal/selection"
	"spool/internal/services"
	"spool/internal/stage"
	"spool/internal/variant"
)

// Inspector enumerates the formats behind a source URL without downloading.
// Satisfied by *download.Fetcher.
type Inspector interface {
	Inspect(ctx context.Context, rawURL string) (*download.MediaInfo, error)
}

// PlaylistFetcher retrieves an HLS master playlist body so audio renditions
// can refine a variant's language.
type PlaylistFetcher func(ctx context.Context, rawURL string) (string, error)

// Option configures optional Extractor behavior.
type Option func(*Extractor)

// WithInspector injects a custom inspector (primarily for tests).
func WithInspector(inspector Inspector) Option {
	return func(e *Extractor) {
		if inspector != nil {
			e.inspector = inspector
		}
	}
}

// WithPlaylistFetcher overrides the HTTP playlist fetch. Passing nil disables
// rendition refinement entirely.
func WithPlaylistFetcher(fetch PlaylistFetcher) Option {
	return func(e *Extractor) {
		e.playlist = fetch
	}
}

// Extractor resolves and ranks download sources for queued episodes.
type Extractor struct {
	cfg       *config.Config
	store     *queue.Store
	logger    *slog.Logger
	inspector Inspector
	playlist  PlaylistFetcher
	now       func() time.Time
}

// New constructs the extraction stage handler.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		cfg:      cfg,
		store:    store,
		playlist: fetchPlaylist,
		now:      time.Now,
	}
	e.SetLogger(logger)
	for _, opt := range opts {
		opt(e)
	}
	if e.inspector == nil {
		e.inspector = download.NewFetcher(download.FetcherConfigFrom(cfg))
	}
	return e
}

// SetLogger updates the extractor's logging destination.
func (e *Extractor) SetLogger(logger *slog.Logger) {
	e.logger = logging.NewComponentLogger(logger, "extract")
}

// Prepare validates the language policy and initializes progress messaging.
func (e *Extractor) Prepare(ctx context.Context, item *queue.Item) error {
	if _, err := selection.ParsePreferences(e.cfg.Language.Priority); err != nil {
		return services.Wrap(services.ErrConfiguration, "extract", "parse language priority",
			"Fix language.priority in the configuration", err)
	}
	item.InitProgress("Extracting", "Resolving download sources")
	return nil
}

// Execute inspects every mirror, classifies and ranks the variants, and
// persists the resulting plan on the item.
func (e *Extractor) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, e.logger)

	prefs, err := selection.ParsePreferences(e.cfg.Language.Priority)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "extract", "parse language priority",
			"Fix language.priority in the configuration", err)
	}

	urls := item.Mirrors()
	if len(urls) == 0 && strings.TrimSpace(item.SourceURL) != "" {
		urls = []string{item.SourceURL}
	}
	if len(urls) == 0 {
		return services.Wrap(services.ErrValidation, "extract", "resolve sources",
			"Episode carries no source URLs", nil)
	}

	opts := e.classifierOptions()
	contextText := strings.TrimSpace(item.Context + " " + item.Series)

	env := fetchplan.Envelope{
		Series:  item.Series,
		Season:  item.Season,
		Episode: item.Episode,
		Title:   item.Title,
	}
	variants := make([]variant.Variant, 0, len(urls))
	var trailing []fetchplan.Candidate

	for i, rawURL := range urls {
		item.SetProgress("Extracting",
			fmt.Sprintf("Inspecting source %d/%d", i+1, len(urls)),
			float64(i)/float64(len(urls))*100)
		e.persistProgress(ctx, item)

		info, err := e.inspector.Inspect(ctx, rawURL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			host := download.RegistrableDomain(rawURL)
			if errors.Is(err, download.ErrUnsupportedURL) {
				env.RecordUnsupported(host)
				trailing = append(trailing, fetchplan.Candidate{URL: rawURL, Provider: host, Direct: true})
				logger.Info("mirror demoted to direct fetch",
					logging.String("url", rawURL),
					logging.String("host", host))
				continue
			}
			trailing = append(trailing, fetchplan.Candidate{URL: rawURL, Provider: host})
			logger.Warn("mirror inspection failed",
				logging.String("url", rawURL),
				logging.Error(err))
			continue
		}

		env.Attributes.FormatsInspected += len(info.Formats)
		variants = append(variants, e.variantFor(ctx, rawURL, info, item, opts, contextText, prefs))
	}

	for _, v := range selection.SortByPreference(variants, prefs) {
		env.Candidates = append(env.Candidates, fetchplan.Candidate{
			URL:           v.URL,
			Provider:      v.Provider,
			Quality:       v.Quality,
			AudioLang:     v.AudioLang,
			DubLang:       v.DubLang,
			SubtitleLangs: v.SubtitleLangs,
		})
	}
	env.Candidates = append(env.Candidates, trailing...)
	if len(env.Candidates) == 0 {
		return services.Wrap(services.ErrValidation, "extract", "resolve sources",
			"No usable download sources found", nil)
	}
	env.Attributes.ResolvedAt = e.now().UTC().Format(time.RFC3339)

	if best := env.Best(); best != nil && !best.Direct {
		item.AudioLang = best.AudioLang
		item.DubLang = best.DubLang
		item.SubtitleLangs = strings.Join(best.SubtitleLangs, ",")
	}
	if err := queue.PersistPlan(ctx, e.store, item, &env); err != nil {
		return services.Wrap(services.ErrTransient, "extract", "persist download plan",
			"Failed to store the resolved plan", err)
	}

	item.SetProgressComplete("Extracted", fmt.Sprintf("Ranked %d download sources", len(env.Candidates)))
	best := env.Best()
	logger.Info("download plan resolved",
		logging.Int("candidates", len(env.Candidates)),
		logging.Int("formats_inspected", env.Attributes.FormatsInspected),
		logging.Int("unsupported_hosts", len(env.Attributes.UnsupportedHosts)),
		logging.String("best_provider", best.Provider),
		logging.String("best_audio", best.AudioLang),
		logging.String("best_dub", best.DubLang))
	return nil
}

// HealthCheck verifies the inspector binary is resolvable.
func (e *Extractor) HealthCheck(ctx context.Context) stage.Health {
	const name = "extractor"
	binary := e.cfg.YtdlpBinary()
	if _, err := exec.LookPath(binary); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("%s not found in PATH", binary))
	}
	return stage.Healthy(name)
}

func (e *Extractor) classifierOptions() language.Options {
	opts := language.DefaultOptions()
	if target := strings.TrimSpace(e.cfg.Language.PrimaryTarget); target != "" {
		opts.PrimaryTarget = target
	}
	if hints := language.CompileHints(e.cfg.Language.OriginalHints); len(hints) > 0 {
		opts.OriginalHints = hints
	}
	return opts
}

// variantFor classifies one inspected mirror. Language evidence is layered:
// explicit metadata first, then the textual label via the classifier, then
// HLS audio renditions, and finally the topical-context inference for dubs
// whose original audio never surfaced.
func (e *Extractor) variantFor(ctx context.Context, rawURL string, info *download.MediaInfo, item *queue.Item, opts language.Options, contextText string, prefs []selection.Preference) variant.Variant {
	v := variant.Variant{
		URL:       rawURL,
		Provider:  providerName(info, rawURL),
		Season:    item.Season,
		Episode:   item.Episode,
		Title:     info.Title,
		AudioLang: language.ToISO2(info.Language),
	}

	height := 0
	note := ""
	hlsURL := ""
	var formatLangs []string
	for _, f := range info.Formats {
		if f.Height > height {
			height = f.Height
		}
		if note == "" {
			note = strings.TrimSpace(f.FormatNote)
		}
		if lang := language.ToISO2(f.Language); lang != "" && !contains(formatLangs, lang) {
			formatLangs = append(formatLangs, lang)
		}
		if hlsURL == "" && strings.Contains(f.Protocol, "m3u8") && f.URL != "" {
			hlsURL = f.URL
		}
	}
	if height > 0 {
		v.Quality = strconv.Itoa(height) + "p"
	}
	if v.AudioLang == "" && len(formatLangs) > 0 {
		v.AudioLang = pickTrackLang(formatLangs, prefs)
	}
	if note != "" {
		v.Extra = map[string]string{"format_note": note}
	}

	variant.Enrich(&v, opts)

	if v.AudioLang == "" && hlsURL != "" && e.playlist != nil {
		e.refineFromPlaylist(ctx, &v, hlsURL, opts, prefs)
	}
	if v.DubLang != "" && !v.HasAudio() {
		for _, hint := range opts.OriginalHints {
			if hint.Pattern.MatchString(contextText) {
				v.AudioLang = hint.Lang
				break
			}
		}
	}
	return v
}

// refineFromPlaylist resolves the variant's language from the master
// playlist's audio renditions when the metadata and label carried none.
func (e *Extractor) refineFromPlaylist(ctx context.Context, v *variant.Variant, playlistURL string, opts language.Options, prefs []selection.Preference) {
	body, err := e.playlist(ctx, playlistURL)
	if err != nil {
		e.logger.Debug("master playlist fetch failed",
			logging.String("url", playlistURL),
			logging.Error(err))
		return
	}
	renditions := language.AudioRenditions(body)
	if len(renditions) == 0 {
		return
	}
	options := make([]variant.Variant, 0, len(renditions))
	for _, r := range renditions {
		det := language.FromHLSMedia(r, opts)
		if det.Empty() {
			continue
		}
		candidate := v.Clone()
		if det.Audio != "" {
			candidate.AudioLang = det.Audio
		}
		if det.Dub != "" && candidate.DubLang == "" {
			candidate.DubLang = det.Dub
		}
		for _, sub := range det.Subs {
			if !candidate.HasSubtitle(sub) {
				candidate.SubtitleLangs = append(candidate.SubtitleLangs, sub)
			}
		}
		options = append(options, candidate)
	}
	if len(options) == 0 {
		return
	}
	if best, ok := selection.PickBest(options, prefs, selection.Options{Fallback: selection.FallbackFirst}); ok {
		*v = best
	}
}

func (e *Extractor) persistProgress(ctx context.Context, item *queue.Item) {
	if e.store == nil {
		return
	}
	if err := e.store.Update(ctx, item); err != nil {
		e.logger.Debug("progress update failed", logging.Error(err))
	}
}

// pickTrackLang chooses which reported track language to treat as the
// variant's audio. For an "audio/dub" preference the dub is the audible
// track, so it matches before the bare audio entries do.
func pickTrackLang(langs []string, prefs []selection.Preference) string {
	for _, p := range prefs {
		want := p.Audio
		if p.Dub != "" {
			want = p.Dub
		}
		for _, lang := range langs {
			if language.Base(lang) == language.Base(want) {
				return lang
			}
		}
	}
	return langs[0]
}

func providerName(info *download.MediaInfo, rawURL string) string {
	if name := strings.TrimSpace(info.Extractor); name != "" && !strings.EqualFold(name, "generic") {
		return strings.ToLower(name)
	}
	return download.RegistrableDomain(rawURL)
}

func contains(list []string, value string) bool {
	for _, entry := range list {
		if entry == value {
			return true
		}
	}
	return false
}

const playlistByteLimit = 1 << 19

var playlistClient = &http.Client{Timeout: 30 * time.Second}

func fetchPlaylist(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := playlistClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("playlist fetch: %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, playlistByteLimit))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
