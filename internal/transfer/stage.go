package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"spool/internal/config"
	"spool/internal/debrid"
	"spool/internal/download"
	"spool/internal/fileutil"
	"spool/internal/logging"
	"spool/internal/metrics"
	"spool/internal/queue"
	"spool/internal/services"
	"spool/internal/speechid"
	"spool/internal/stage"
	"spool/internal/status"
	"spool/internal/verify"
)

// progressPersistInterval limits how often streaming progress lines are
// written through to SQLite.
const progressPersistInterval = 2 * time.Second

// Option configures optional Stage behavior.
type Option func(*Stage)

// WithFetcher injects a custom transferrer (primarily for tests).
func WithFetcher(fetcher download.Transferrer) Option {
	return func(s *Stage) {
		if fetcher != nil {
			s.fetcher = fetcher
		}
	}
}

// WithUnrestricter overrides the unrestrict client built from configuration.
func WithUnrestricter(u download.Unrestricter) Option {
	return func(s *Stage) { s.unrestricter = u }
}

// WithVerifier overrides the verifier built from configuration.
func WithVerifier(v download.Verifier) Option {
	return func(s *Stage) { s.verifier = v }
}

// WithCoordinator attaches the shared batch status coordinator for progress
// mirroring and cooperative cancellation.
func WithCoordinator(coord *status.Coordinator) Option {
	return func(s *Stage) { s.coord = coord }
}

// WithUnsupportedLog overrides the unsupported-host log.
func WithUnsupportedLog(l *download.UnsupportedLog) Option {
	return func(s *Stage) { s.unsupported = l }
}

// WithPremiumCheck overrides the debrid account probe (for tests).
func WithPremiumCheck(fn func(context.Context) bool) Option {
	return func(s *Stage) { s.premiumCheck = fn }
}

// Stage is the transfer workflow handler.
type Stage struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	coord        *status.Coordinator
	fetcher      download.Transferrer
	unrestricter download.Unrestricter
	verifier     download.Verifier
	unsupported  *download.UnsupportedLog
	premiumCheck func(context.Context) bool

	premiumOnce sync.Once
	premium     bool
}

// New constructs the transfer stage handler, wiring the unrestrict client
// and the language verifier from configuration.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...Option) *Stage {
	s := &Stage{
		cfg:   cfg,
		store: store,
	}
	s.SetLogger(logger)

	if cfg.Debrid.Enabled && strings.TrimSpace(cfg.Debrid.APIToken) != "" {
		client := debrid.NewClient(debrid.Config{
			APIToken:          cfg.Debrid.APIToken,
			BaseURL:           cfg.Debrid.BaseURL,
			RatePerSecond:     cfg.Debrid.RatePerSecond,
			RateBurst:         cfg.Debrid.RateBurst,
			MaxRetries:        cfg.Debrid.MaxRetries,
			RetryDelaySeconds: cfg.Debrid.RetryDelaySeconds,
			TimeoutSeconds:    cfg.Debrid.RequestTimeout,
		}, debrid.WithLogger(logger))
		s.unrestricter = &meteredUnrestricter{client: client}
		s.premiumCheck = client.CheckPremium
	}
	if cfg.Verification.Enabled {
		var speech verify.SpeechDetector
		if cfg.Verification.SpeechCheck {
			speech = speechid.NewService(speechid.Config{
				Model:         cfg.Verification.WhisperModel,
				FallbackModel: cfg.Verification.WhisperFallbackModel,
			}, cfg.FFmpegBinary())
		}
		s.verifier = verify.New(speech, cfg.FFprobeBinary(), cfg.FFmpegBinary(), logger)
	}
	if log, err := download.NewUnsupportedLog(cfg.Paths.LogDir); err == nil {
		s.unsupported = log
	} else {
		s.logger.Warn("unsupported-host log unavailable", logging.Error(err))
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.fetcher == nil {
		s.fetcher = download.NewFetcher(download.FetcherConfigFrom(cfg))
	}
	return s
}

// SetLogger updates the stage's logging destination.
func (s *Stage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "transfer")
}

// Prepare initializes progress messaging prior to Execute.
func (s *Stage) Prepare(ctx context.Context, item *queue.Item) error {
	if _, err := stage.ParsePlan(item.PlanJSON); err != nil {
		return err
	}
	item.InitProgress("Downloading", "Waiting for transfer")
	return nil
}

// Execute walks the item's ranked plan through the orchestrator and records
// the accepted file in staging.
func (s *Stage) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.logger)

	env, err := stage.ParsePlan(item.PlanJSON)
	if err != nil {
		return err
	}
	mirrors := env.MirrorURLs()
	if len(mirrors) == 0 {
		return services.Wrap(services.ErrValidation, "transfer", "load plan",
			"Download plan has no sources; rerun extraction", nil)
	}

	root := item.StagingRoot(s.cfg.Paths.StagingDir)
	if root == "" {
		return services.Wrap(services.ErrConfiguration, "transfer", "resolve staging dir",
			"Staging directory is not configured", nil)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "transfer", "create staging dir",
			"Failed to create the staging directory", err)
	}
	outputPath := filepath.Join(root, item.EpisodeCode()+".mp4")

	task := download.Task{
		Label:      strings.TrimSpace(item.EpisodeCode() + " " + item.Title),
		Mirrors:    mirrors,
		OutputPath: outputPath,
		Progress:   s.progressFunc(ctx, item),
	}
	orch := download.NewOrchestrator(s.orchestratorConfig(ctx), s.fetcher, s.orchestratorOptions(logger)...)

	result, runErr := orch.Run(ctx, task)
	if runErr != nil {
		if errors.Is(runErr, download.ErrCancelled) {
			item.NeedsReview = true
			item.ReviewReason = queue.UserStopReason
			item.ProgressMessage = queue.UserStopReason
			logger.Info("transfer cancelled", logging.Int("mirrors_tried", result.MirrorsTried))
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(runErr, download.ErrExhausted) {
			metrics.MirrorAttempts.WithLabelValues("exhausted").Inc()
			if result.KeptPath != "" {
				return s.routeKeptMismatch(ctx, item, result, logger)
			}
			return services.Wrap(services.ErrUnavailable, "transfer", "download episode",
				fmt.Sprintf("All %d sources failed (%s)", result.MirrorsTried, result.Reason), runErr)
		}
		return services.Wrap(services.ErrTransient, "transfer", "download episode",
			"Transfer failed", runErr)
	}

	item.StagedFile = result.Path
	item.VerifyReason = result.Reason
	if result.Detected != "" {
		// The speech check heard the actual track; it outranks whatever the
		// extraction-time label claimed.
		item.AudioLang = result.Detected
	}
	metrics.MirrorAttempts.WithLabelValues("accepted").Inc()
	if result.MirrorsTried > 1 {
		metrics.MirrorAttempts.WithLabelValues("rejected").Add(float64(result.MirrorsTried - 1))
	}
	if result.Reason != "" {
		metrics.Verifications.WithLabelValues(metrics.ReasonFamily(result.Reason)).Inc()
	}

	host := download.RegistrableDomain(result.URL)
	item.SetProgressComplete("Downloaded", "Fetched from "+host)
	logger.Info("transfer complete",
		logging.String("url", result.URL),
		logging.String("path", result.Path),
		logging.String("reason", result.Reason),
		logging.String("detected", result.Detected),
		logging.Int("mirrors_tried", result.MirrorsTried))
	return nil
}

// HealthCheck verifies the transfer binary, and ffprobe when verification
// is on.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	const name = "transfer"
	if _, err := exec.LookPath(s.cfg.YtdlpBinary()); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("%s not found in PATH", s.cfg.YtdlpBinary()))
	}
	if s.cfg.Verification.Enabled {
		if _, err := exec.LookPath(s.cfg.FFprobeBinary()); err != nil {
			return stage.Unhealthy(name, fmt.Sprintf("%s not found in PATH", s.cfg.FFprobeBinary()))
		}
	}
	return stage.Healthy(name)
}

func (s *Stage) orchestratorConfig(ctx context.Context) download.OrchestratorConfig {
	return download.OrchestratorConfig{
		MaxRetries:        s.cfg.Downloader.MaxRetries,
		RetryDelaySeconds: s.cfg.Downloader.RetryDelaySeconds,
		UnrestrictHosts:   s.cfg.Debrid.Hosts,
		UnrestrictAll:     s.unrestricter != nil && s.isPremium(ctx),
		KeepMismatch:      s.cfg.Verification.KeepMismatch,
		Verify: verify.Options{
			DesiredLangs:  []string{s.cfg.Language.PrimaryTarget},
			AcceptedLangs: s.cfg.Language.AcceptedContentLangs,
			RequireDub:    s.cfg.Verification.RequireDub,
			SpeechCheck:   s.cfg.Verification.SpeechCheck,
			SampleSeconds: s.cfg.Verification.SampleSeconds,
			AllowRemux:    s.cfg.Verification.Remux,
		},
	}
}

func (s *Stage) orchestratorOptions(logger *slog.Logger) []download.OrchestratorOption {
	opts := []download.OrchestratorOption{download.WithLogger(logger)}
	if s.unrestricter != nil {
		opts = append(opts, download.WithUnrestricter(s.unrestricter))
	}
	if s.cfg.Verification.Enabled && s.verifier != nil {
		opts = append(opts, download.WithVerifier(s.verifier))
	}
	if s.unsupported != nil {
		opts = append(opts, download.WithUnsupportedLog(s.unsupported))
	}
	if s.coord != nil {
		opts = append(opts, download.WithCancelCheck(s.coord.Cancelled))
	}
	return opts
}

// isPremium resolves the debrid account standing once per process. Premium
// accounts route every host through the unrestrict service; free accounts
// only the configured ones.
func (s *Stage) isPremium(ctx context.Context) bool {
	if s.premiumCheck == nil {
		return false
	}
	s.premiumOnce.Do(func() {
		s.premium = s.premiumCheck(ctx)
	})
	return s.premium
}

func (s *Stage) progressFunc(ctx context.Context, item *queue.Item) func(download.ProgressUpdate) {
	var lastPersist time.Time
	label := strings.TrimSpace(item.EpisodeCode() + " " + item.Title)
	return func(update download.ProgressUpdate) {
		message := update.Message
		if update.Speed != "" {
			message = fmt.Sprintf("%s (%s)", message, update.Speed)
		}
		if update.Percent >= 0 {
			item.ProgressPercent = update.Percent
		}
		item.ProgressStage = "Downloading"
		item.ProgressMessage = message

		if s.coord != nil {
			s.coord.Update(status.Message(label+": "+message), status.Percent(item.ProgressPercent))
		}
		if s.store == nil || time.Since(lastPersist) < progressPersistInterval {
			return
		}
		lastPersist = time.Now()
		if err := s.store.UpdateProgress(ctx, item); err != nil {
			s.logger.Debug("progress update failed", logging.Error(err))
		}
	}
}

// routeKeptMismatch moves the final rejected file to the review directory
// and routes the item there instead of failing it.
func (s *Stage) routeKeptMismatch(ctx context.Context, item *queue.Item, result download.Result, logger *slog.Logger) error {
	reason := result.KeptReason
	metrics.Verifications.WithLabelValues(metrics.ReasonFamily(reason)).Inc()

	kept := result.KeptPath
	if dir := strings.TrimSpace(s.cfg.Paths.ReviewDir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err == nil {
			target := filepath.Join(dir, item.EpisodeCode()+filepath.Ext(kept))
			if err := fileutil.MoveFile(kept, target); err == nil {
				kept = target
			} else {
				logger.Warn("failed to move mismatch to review dir",
					logging.String("path", result.KeptPath),
					logging.Error(err))
			}
		}
	}

	item.StagedFile = kept
	item.VerifyReason = reason
	item.NeedsReview = true
	item.ReviewReason = "Language verification failed: " + reason
	logger.Warn("episode kept for review",
		logging.String("path", kept),
		logging.String("reason", reason))
	return nil
}

// meteredUnrestricter wraps the debrid client with resolution metrics.
type meteredUnrestricter struct {
	client *debrid.Client
}

func (m *meteredUnrestricter) Unrestrict(ctx context.Context, link string) (debrid.UnrestrictedLink, error) {
	resolved, err := m.client.Unrestrict(ctx, link)
	switch {
	case err == nil:
		metrics.UnrestrictResolutions.WithLabelValues("resolved").Inc()
	case errors.Is(err, debrid.ErrFileUnavailable):
		metrics.UnrestrictResolutions.WithLabelValues("unavailable").Inc()
	default:
		metrics.UnrestrictResolutions.WithLabelValues("error").Inc()
	}
	return resolved, err
}
