package download

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"spool/internal/debrid"
	"spool/internal/language"
	"spool/internal/logging"
	"spool/internal/verify"
)

var (
	// ErrCancelled is returned when the cooperative cancel flag stops a
	// task before or between attempts. In-flight attempts finish.
	ErrCancelled = errors.New("transfer cancelled")
	// ErrExhausted is returned when no mirror produced an accepted file.
	ErrExhausted = errors.New("all mirrors exhausted")
)

// Unrestricter resolves premium links through the unrestrict service.
type Unrestricter interface {
	Unrestrict(ctx context.Context, link string) (debrid.UnrestrictedLink, error)
}

// Transferrer fetches a remote stream into a local file.
type Transferrer interface {
	Fetch(ctx context.Context, req FetchRequest) error
}

// Verifier decides whether a downloaded file carries the wanted language.
type Verifier interface {
	Verify(ctx context.Context, path string, opts verify.Options) verify.Outcome
}

// Task is one episode transfer through its ranked mirror list.
type Task struct {
	// Label names the episode for logs and progress ("S01E05 Title").
	Label string
	// Mirrors holds candidate URLs best-first. Within a task they are
	// tried strictly in order; the first accepted transfer wins.
	Mirrors    []string
	OutputPath string
	Progress   func(ProgressUpdate)
}

// Result reports the winning transfer, or what remains after exhaustion.
type Result struct {
	// Path is the final playable file; the repaired copy when a remux
	// produced one.
	Path string
	// URL is the mirror that produced the accepted file.
	URL string
	// Reason carries the verifier verdict, or the exhaustion reason when
	// no mirror was accepted. Empty when verification is disabled.
	Reason string
	// Detected is the speech-identified language when that check ran.
	Detected     string
	MirrorsTried int
	// KeptPath holds the last rejected file when keep-mismatch review
	// routing applies; the caller moves it to the review directory.
	KeptPath   string
	KeptReason string
}

// OrchestratorConfig carries transfer policy.
type OrchestratorConfig struct {
	MaxRetries        int
	RetryDelaySeconds int
	// UnrestrictHosts always resolve through the unrestrict service.
	// Other hosts only do when UnrestrictAll is set (premium account).
	UnrestrictHosts []string
	UnrestrictAll   bool
	// KeepMismatch retains the final rejected file for manual review
	// instead of deleting it with the rest.
	KeepMismatch bool
	Verify       verify.Options
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithUnrestricter enables premium link resolution.
func WithUnrestricter(u Unrestricter) OrchestratorOption {
	return func(o *Orchestrator) { o.unrestrict = u }
}

// WithVerifier enables post-transfer language verification.
func WithVerifier(v Verifier) OrchestratorOption {
	return func(o *Orchestrator) { o.verifier = v }
}

// WithUnsupportedLog records hosts the transfer tool cannot handle.
func WithUnsupportedLog(l *UnsupportedLog) OrchestratorOption {
	return func(o *Orchestrator) { o.unsupported = l }
}

// WithCancelCheck installs the cooperative cancellation flag.
func WithCancelCheck(fn func() bool) OrchestratorOption {
	return func(o *Orchestrator) { o.cancelled = fn }
}

// WithLogger attaches a logger scoped to this component.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logging.NewComponentLogger(logger, "download")
		}
	}
}

// WithSleeper overrides retry sleeping (for tests).
func WithSleeper(fn func(time.Duration)) OrchestratorOption {
	return func(o *Orchestrator) { o.sleeper = fn }
}

// Orchestrator works ranked mirror lists into verified local files.
type Orchestrator struct {
	cfg         OrchestratorConfig
	fetcher     Transferrer
	unrestrict  Unrestricter
	verifier    Verifier
	unsupported *UnsupportedLog
	cancelled   func() bool
	logger      *slog.Logger
	sleeper     func(time.Duration)
}

// NewOrchestrator constructs an Orchestrator around the given fetcher.
func NewOrchestrator(cfg OrchestratorConfig, fetcher Transferrer, opts ...OrchestratorOption) *Orchestrator {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelaySeconds <= 0 {
		cfg.RetryDelaySeconds = 5
	}
	o := &Orchestrator{
		cfg:     cfg,
		fetcher: fetcher,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run tries task's mirrors in order and returns the first accepted
// transfer. Mirror failures are contained; only total exhaustion is an
// error. Rejected files are removed before the next mirror is attempted.
func (o *Orchestrator) Run(ctx context.Context, task Task) (Result, error) {
	if len(task.Mirrors) == 0 {
		return Result{}, errors.New("no mirrors for task")
	}
	if strings.TrimSpace(task.OutputPath) == "" {
		return Result{}, errors.New("output path required")
	}

	log := o.logger.With(logging.String("task", task.Label))
	var result Result
	for i, mirror := range task.Mirrors {
		if o.isCancelled() {
			return Result{}, ErrCancelled
		}
		result.MirrorsTried = i + 1
		o.report(task, ProgressUpdate{
			Stage:   StageTransfer,
			Percent: -1,
			Message: fmt.Sprintf("mirror %d/%d", i+1, len(task.Mirrors)),
		})

		if err := o.transfer(ctx, task, mirror); err != nil {
			if errors.Is(err, ErrCancelled) {
				return Result{}, ErrCancelled
			}
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			log.Warn("mirror failed", logging.String("url", mirror), logging.Error(err))
			o.discardPartial(task.OutputPath)
			continue
		}
		if _, err := os.Stat(task.OutputPath); err != nil {
			log.Warn("transfer produced no file", logging.String("url", mirror), logging.Error(err))
			o.discardPartial(task.OutputPath)
			continue
		}

		outcome, verified := o.verifyTransfer(ctx, task)
		if !verified {
			result.Path = task.OutputPath
			result.URL = mirror
			return result, nil
		}
		if outcome.Accepted {
			result.Path = outcome.FinalPath(task.OutputPath)
			result.URL = mirror
			result.Reason = outcome.Reason
			result.Detected = outcome.Detected
			log.Info("transfer accepted",
				logging.String("url", mirror),
				logging.String("reason", outcome.Reason))
			return result, nil
		}

		log.Warn("verification rejected transfer",
			logging.String("url", mirror),
			logging.String("reason", outcome.Reason))
		if i == len(task.Mirrors)-1 && o.cfg.KeepMismatch && keepForReview(outcome.Reason) {
			// Keep the original for review; the single-track copy adds
			// nothing a reviewer needs.
			o.discard("", outcome.RepairedPath)
			result.KeptPath = task.OutputPath
			result.KeptReason = outcome.Reason
		} else {
			o.discard(task.OutputPath, outcome.RepairedPath)
		}
	}

	result.Reason = o.noSourceReason()
	return result, fmt.Errorf("%w: %s", ErrExhausted, result.Reason)
}

// transfer attempts one mirror with retries. Premium-capable URLs resolve
// through the unrestrict service first; a resolution failure demotes the
// mirror to direct transfer without handing back the retries already spent.
func (o *Orchestrator) transfer(ctx context.Context, task Task, mirror string) error {
	useUnrestrict := o.shouldUnrestrict(mirror)
	var lastErr error
	for attempt := 1; attempt <= o.cfg.MaxRetries; attempt++ {
		if o.isCancelled() {
			return ErrCancelled
		}
		if attempt > 1 {
			delay := o.backoffDelay(attempt)
			o.logger.Info("waiting before transfer retry",
				logging.String("url", mirror),
				logging.Int("attempt", attempt),
				logging.Duration("delay", delay))
			if err := o.sleep(ctx, delay); err != nil {
				return err
			}
			if o.isCancelled() {
				return ErrCancelled
			}
		}

		fetchURL := mirror
		if useUnrestrict {
			o.report(task, ProgressUpdate{Stage: StageUnrestrict, Percent: -1, Message: "resolving premium link"})
			link, err := o.unrestrict.Unrestrict(ctx, mirror)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				o.logger.Warn("unrestrict failed, demoting to direct transfer",
					logging.String("url", mirror), logging.Error(err))
				useUnrestrict = false
				lastErr = err
				// A dedicated attempt is worth firing right away for VOE
				// links; their direct pages rarely work without it.
				if IsVOEURL(mirror) {
					if ferr := o.fallbackTransfer(ctx, task, mirror); ferr == nil {
						return nil
					}
				}
				continue
			}
			fetchURL = link.Download
		}

		err := o.fetcher.Fetch(ctx, FetchRequest{
			URL:        fetchURL,
			OutputPath: task.OutputPath,
			Progress:   task.Progress,
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if errors.Is(err, ErrUnavailable) {
			return err
		}
		if errors.Is(err, ErrUnsupportedURL) {
			o.recordUnsupported(fetchURL)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.logger.Warn("transfer attempt failed",
			logging.String("url", mirror),
			logging.Int("attempt", attempt),
			logging.Error(err))
	}

	if IsVOEURL(mirror) && !o.isCancelled() {
		if err := o.fallbackTransfer(ctx, task, mirror); err == nil {
			return nil
		}
	}
	return fmt.Errorf("transfer failed after %d attempts: %w", o.cfg.MaxRetries, lastErr)
}

func (o *Orchestrator) fallbackTransfer(ctx context.Context, task Task, mirror string) error {
	o.report(task, ProgressUpdate{Stage: StageFallback, Percent: -1, Message: "dedicated voe attempt"})
	o.logger.Info("trying dedicated voe fallback", logging.String("url", mirror))
	if err := o.fetcher.Fetch(ctx, fallbackRequest(mirror, task.OutputPath, task.Progress)); err != nil {
		o.logger.Warn("voe fallback failed", logging.String("url", mirror), logging.Error(err))
		return err
	}
	if _, err := os.Stat(task.OutputPath); err != nil {
		return fmt.Errorf("voe fallback produced no file: %w", err)
	}
	return nil
}

func (o *Orchestrator) verifyTransfer(ctx context.Context, task Task) (verify.Outcome, bool) {
	if o.verifier == nil {
		return verify.Outcome{}, false
	}
	o.report(task, ProgressUpdate{Stage: StageVerify, Percent: -1, Message: "checking audio language"})
	return o.verifier.Verify(ctx, task.OutputPath, o.cfg.Verify), true
}

func (o *Orchestrator) shouldUnrestrict(rawURL string) bool {
	if o.unrestrict == nil {
		return false
	}
	if o.cfg.UnrestrictAll {
		return true
	}
	return debrid.MatchesHost(rawURL, o.cfg.UnrestrictHosts)
}

func (o *Orchestrator) isCancelled() bool {
	return o.cancelled != nil && o.cancelled()
}

func (o *Orchestrator) report(task Task, update ProgressUpdate) {
	if task.Progress != nil {
		task.Progress(update)
	}
}

func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) error {
	if o.sleeper != nil {
		o.sleeper(d)
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (o *Orchestrator) backoffDelay(attempt int) time.Duration {
	delay := time.Duration(o.cfg.RetryDelaySeconds) * time.Second
	for i := 2; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

func (o *Orchestrator) recordUnsupported(rawURL string) {
	if o.unsupported == nil {
		return
	}
	fresh, err := o.unsupported.Record(rawURL)
	if err != nil {
		o.logger.Warn("could not record unsupported url", logging.Error(err))
		return
	}
	if fresh {
		o.logger.Info("recorded unsupported host", logging.String("url", rawURL))
	}
}

// discardPartial clears whatever a failed mirror left at the output path,
// including yt-dlp's resume artifact. Every mirror writes to the same path,
// so a leftover partial would be byte-range-resumed against different
// content on the next attempt.
func (o *Orchestrator) discardPartial(outputPath string) {
	o.discard(outputPath, outputPath+".part")
}

func (o *Orchestrator) discard(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			o.logger.Warn("could not remove rejected file",
				logging.String("path", path), logging.Error(err))
		}
	}
}

// keepForReview reports whether a rejection is interesting enough to keep
// the file around for a human: wrong or unprovable language, not an
// unreadable download.
func keepForReview(reason string) bool {
	return reason == verify.ReasonSubsOnly || verify.IsMismatch(reason)
}

// noSourceReason names the exhaustion outcome after the language the
// library wanted, e.g. "no-valid-de-source".
func (o *Orchestrator) noSourceReason() string {
	lang := "und"
	if len(o.cfg.Verify.DesiredLangs) > 0 {
		if base := language.Base(language.ToISO2(o.cfg.Verify.DesiredLangs[0])); base != "" {
			lang = base
		}
	}
	return "no-valid-" + lang + "-source"
}
