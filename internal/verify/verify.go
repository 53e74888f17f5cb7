package verify

import (
	"context"
	"log/slog"
	"strings"

	"spool/internal/language"
	"spool/internal/logging"
	"spool/internal/media/ffprobe"
)

// Stable accept/reject reasons. Dynamic reasons (content-match, mismatch)
// append their detail after a colon.
const (
	ReasonTagMatch           = "tag-match"
	ReasonTagMatchRemuxed    = "tag-match-remuxed"
	ReasonSubsOnly           = "subs-only"
	ReasonAcceptedAfterRemux = "accepted-after-remux"

	contentMatchPrefix = "content-match:"
	mismatchPrefix     = "mismatch:"
	ffprobeErrorPrefix = "ffprobe-error: "

	detailUnknown       = "unknown"
	detailSpeechSkipped = "speech-check-disabled"
)

// Options controls a single verification run.
type Options struct {
	// DesiredLangs are the languages whose container tags satisfy the check
	// outright. Usually just the primary target.
	DesiredLangs []string
	// AcceptedLangs are the spoken languages the content check accepts.
	AcceptedLangs []string
	// RequireDub rejects files whose only claim to the desired language is
	// a subtitle track.
	RequireDub bool
	// SpeechCheck enables sampled speech identification for untagged files.
	SpeechCheck bool
	// SampleSeconds is the length of each audio sample.
	SampleSeconds int
	// AllowRemux permits producing a single-audio-track repaired copy.
	AllowRemux bool
}

// Outcome is the result of one verification run.
type Outcome struct {
	// Accepted reports whether the file carries the desired language.
	Accepted bool
	// Reason is the stable decision string.
	Reason string
	// RepairedPath points at a remuxed copy when one was produced. It is
	// set on rejections too so callers can clean the copy up.
	RepairedPath string
	// Detected is the spoken language the content check identified, when
	// one ran.
	Detected string
}

// FinalPath returns the path callers should keep working with: the
// repaired copy when one exists, otherwise the original.
func (o Outcome) FinalPath(original string) string {
	if o.RepairedPath != "" {
		return o.RepairedPath
	}
	return original
}

// SpeechDetector identifies the spoken language of a media file.
type SpeechDetector interface {
	DetectFromMedia(ctx context.Context, source string, durationSeconds float64, sampleSeconds int) (string, error)
}

// Verifier screens downloaded files against a language policy.
type Verifier struct {
	probeBinary  string
	ffmpegBinary string
	speech       SpeechDetector
	logger       *slog.Logger

	probeFn       func(ctx context.Context, binary, path string) (ffprobe.Result, error)
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// New creates a Verifier. speech may be nil when the content check is
// disabled for every run.
func New(speech SpeechDetector, probeBinary, ffmpegBinary string, logger *slog.Logger) *Verifier {
	if probeBinary == "" {
		probeBinary = "ffprobe"
	}
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Verifier{
		probeBinary:  probeBinary,
		ffmpegBinary: ffmpegBinary,
		speech:       speech,
		logger:       logging.NewComponentLogger(logger, "verify"),
		probeFn:      ffprobe.Inspect,
	}
}

// WithProbeFunc sets a custom probe implementation (for testing).
func (v *Verifier) WithProbeFunc(fn func(ctx context.Context, binary, path string) (ffprobe.Result, error)) {
	v.probeFn = fn
}

// WithCommandRunner sets a custom ffmpeg runner (for testing).
func (v *Verifier) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	v.commandRunner = runner
}

// Verify screens path against the language policy in opts. Probe failure
// is a hard rejection; everything else degrades toward a reasoned
// mismatch.
func (v *Verifier) Verify(ctx context.Context, path string, opts Options) Outcome {
	probe, err := v.probeFn(ctx, v.probeBinary, path)
	if err != nil {
		return Outcome{Reason: ffprobeErrorPrefix + err.Error()}
	}

	desired := opts.DesiredLangs

	// Tag gate: a desired-language audio track settles it without any
	// sampling.
	if len(probe.AudioIndicesByLanguage(desired...)) > 0 {
		if opts.AllowRemux {
			if out, ok := v.remux(ctx, path, probe, desired); ok {
				return Outcome{Accepted: true, Reason: ReasonTagMatchRemuxed, RepairedPath: out}
			}
		}
		return Outcome{Accepted: true, Reason: ReasonTagMatch}
	}

	// Subtitles never satisfy a dub requirement.
	if opts.RequireDub && probe.HasSubtitleInLanguage(desired...) {
		return Outcome{Reason: ReasonSubsOnly}
	}

	detail := detailSpeechSkipped
	if opts.SpeechCheck {
		detail = detailUnknown
		detected := v.detect(ctx, path, probe.DurationSeconds(), opts.SampleSeconds)
		if detected != "" {
			if langAccepted(detected, opts.AcceptedLangs) {
				return Outcome{Accepted: true, Reason: contentMatchPrefix + detected, Detected: detected}
			}
			detail = detected
		}

		// Last resort: remux against any tagged track the quick gate may
		// have missed and re-check the copy once.
		if opts.AllowRemux {
			if out, ok := v.remux(ctx, path, probe, desired); ok {
				if recheck := v.recheckRemuxed(ctx, out, opts); recheck != "" {
					return Outcome{Accepted: true, Reason: ReasonAcceptedAfterRemux, RepairedPath: out, Detected: recheck}
				}
				return Outcome{Reason: mismatchPrefix + detail, RepairedPath: out, Detected: detected}
			}
		}
		return Outcome{Reason: mismatchPrefix + detail, Detected: detected}
	}

	return Outcome{Reason: mismatchPrefix + detail}
}

// recheckRemuxed probes the repaired copy for its duration and runs the
// content check once. Returns the accepted language, or empty.
func (v *Verifier) recheckRemuxed(ctx context.Context, path string, opts Options) string {
	probe, err := v.probeFn(ctx, v.probeBinary, path)
	if err != nil {
		v.logger.Warn("remuxed copy probe failed", logging.String("path", path), logging.Error(err))
		return ""
	}
	detected := v.detect(ctx, path, probe.DurationSeconds(), opts.SampleSeconds)
	if detected != "" && langAccepted(detected, opts.AcceptedLangs) {
		return detected
	}
	return ""
}

func (v *Verifier) detect(ctx context.Context, path string, duration float64, sampleSeconds int) string {
	if v.speech == nil {
		return ""
	}
	detected, err := v.speech.DetectFromMedia(ctx, path, duration, sampleSeconds)
	if err != nil {
		v.logger.Warn("speech identification failed", logging.String("path", path), logging.Error(err))
	}
	return detected
}

func langAccepted(detected string, accepted []string) bool {
	base := language.Base(detected)
	if base == "" {
		return false
	}
	for _, lang := range accepted {
		if language.Base(lang) == base {
			return true
		}
	}
	return false
}

// IsMismatch reports whether a reason string records a content mismatch.
func IsMismatch(reason string) bool {
	return strings.HasPrefix(reason, mismatchPrefix)
}

// MismatchDetail extracts the detail from a mismatch reason, or empty.
func MismatchDetail(reason string) string {
	if !IsMismatch(reason) {
		return ""
	}
	return strings.TrimPrefix(reason, mismatchPrefix)
}
