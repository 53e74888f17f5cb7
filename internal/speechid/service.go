package speechid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"spool/internal/language"
)

// Service identifies spoken languages using Whisper models invoked via uvx.
type Service struct {
	cfg           Config
	ffmpegBinary  string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a speech identification service with the given
// configuration.
func NewService(cfg Config, ffmpegBinary string) *Service {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.FallbackModel == "" {
		cfg.FallbackModel = DefaultFallbackModel
	}
	if ffmpegBinary == "" {
		ffmpegBinary = FFmpegCommand
	}
	return &Service{cfg: cfg, ffmpegBinary: ffmpegBinary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Model returns the configured primary model name for logging.
func (s *Service) Model() string {
	return s.cfg.Model
}

// run executes a command, using the custom runner if set.
func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// SamplePositions returns the relative probe positions for a runtime.
// Short files get one probe at the midpoint, longer ones three spread
// probes so a cold open or credits sequence cannot dominate.
func SamplePositions(durationSeconds float64) []float64 {
	if durationSeconds >= 180 {
		return []float64{0.30, 0.50, 0.70}
	}
	return []float64{0.50}
}

// DetectFromMedia samples the first audio stream of source and returns the
// first language any model is confident about. An empty result with a nil
// error means every sample came back silent or unrecognized.
func (s *Service) DetectFromMedia(ctx context.Context, source string, durationSeconds float64, sampleSeconds int) (string, error) {
	if source == "" {
		return "", errors.New("speechid: source path required")
	}
	if sampleSeconds <= 0 {
		return "", fmt.Errorf("speechid: invalid sample window %d", sampleSeconds)
	}
	duration := durationSeconds
	if duration < 1 {
		duration = 1
	}

	workDir, err := os.MkdirTemp("", "spool-speechid-*")
	if err != nil {
		return "", fmt.Errorf("speechid: create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	var lastErr error
	for _, pos := range SamplePositions(duration) {
		start := duration*pos - float64(sampleSeconds)/2
		if start < 0 {
			start = 0
		}
		wavPath := filepath.Join(workDir, fmt.Sprintf("sample_%02d.wav", int(pos*100)))
		if err := s.extractSample(ctx, source, start, sampleSeconds, wavPath); err != nil {
			lastErr = err
			continue
		}
		lang, err := s.DetectLanguage(ctx, wavPath, workDir)
		if err != nil {
			lastErr = err
			continue
		}
		if lang != "" {
			return lang, nil
		}
	}
	return "", lastErr
}

func (s *Service) extractSample(ctx context.Context, source string, startSec float64, durationSec int, dest string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, s.ffmpegBinary, buildExtractArgs(source, startSec, durationSec, dest)...)
	}
	return ExtractSample(ctx, s.ffmpegBinary, source, startSec, durationSec, dest)
}

// DetectLanguage runs the fast model against a WAV sample, then the
// fallback model when the fast one fails or stays silent. Returns the
// normalized language code, or empty when no model recognized speech.
func (s *Service) DetectLanguage(ctx context.Context, wavPath, workDir string) (string, error) {
	primaryDir := filepath.Join(workDir, "primary")
	lang, primaryErr := s.detectWith(ctx, wavPath, primaryDir, s.primaryArgs(wavPath, primaryDir))
	if lang != "" {
		return lang, nil
	}

	fallbackDir := filepath.Join(workDir, "fallback")
	lang, fallbackErr := s.detectWith(ctx, wavPath, fallbackDir, s.fallbackArgs(wavPath, fallbackDir))
	if lang != "" {
		return lang, nil
	}
	if primaryErr != nil || fallbackErr != nil {
		return "", errors.Join(primaryErr, fallbackErr)
	}
	return "", nil
}

func (s *Service) detectWith(ctx context.Context, wavPath, outputDir string, args []string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("speechid: ensure output dir: %w", err)
	}
	if err := s.run(ctx, UVXCommand, args...); err != nil {
		return "", err
	}
	baseName := strings.TrimSuffix(filepath.Base(wavPath), filepath.Ext(wavPath))
	return readDetectedLanguage(filepath.Join(outputDir, baseName+".json"))
}

// primaryArgs invokes whisperx, which rides on faster-whisper and answers
// quickly for small models.
func (s *Service) primaryArgs(wavPath, outputDir string) []string {
	return []string{
		"--index-url", PypiIndexURL,
		"whisperx",
		wavPath,
		"--model", s.cfg.Model,
		"--task", "transcribe",
		"--no_align",
		"--vad_method", VADMethodSilero,
		"--device", CPUDevice,
		"--compute_type", CPUComputeType,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
	}
}

// fallbackArgs invokes the reference openai-whisper CLI, slower but more
// tolerant of noisy samples.
func (s *Service) fallbackArgs(wavPath, outputDir string) []string {
	return []string{
		"--index-url", PypiIndexURL,
		"--from", "openai-whisper",
		"whisper",
		wavPath,
		"--model", s.cfg.FallbackModel,
		"--task", "transcribe",
		"--temperature", Temperature,
		"--no_speech_threshold", NoSpeechThreshold,
		"--fp16", "False",
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
	}
}

// detectionPayload is the JSON structure both Whisper CLIs emit.
type detectionPayload struct {
	Language string `json:"language"`
}

func readDetectedLanguage(jsonPath string) (string, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return "", fmt.Errorf("speechid: read detection output: %w", err)
	}
	var payload detectionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("speechid: parse detection output: %w", err)
	}
	return normalizeDetected(payload.Language), nil
}

// normalizeDetected maps a model answer onto ISO 639-1. Models usually
// answer with a code but occasionally with a full name ("german"), and an
// answer the table does not know passes through lowercased so mismatch
// reporting stays informative.
func normalizeDetected(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return ""
	}
	if code := language.ToISO2(raw); code != "" {
		return code
	}
	return raw
}
