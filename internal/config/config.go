package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LibraryDir string `toml:"library_dir"`
	ReviewDir  string `toml:"review_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
	// APIToken guards the HTTP API when set. Empty means no authentication,
	// which is only sensible on a loopback bind.
	APIToken string `toml:"api_token"`
}

// Language contains the spoken-language policy for selection and verification.
type Language struct {
	// Priority lists language preferences best-first. Each entry is either a
	// bare audio code ("de") or an audio/dub pair ("en/de"), where the dub is
	// the language the audio was dubbed into.
	Priority []string `toml:"priority"`
	// PrimaryTarget is the language the library should end up carrying.
	PrimaryTarget string `toml:"primary_target"`
	// AcceptedContentLangs are the ISO 639-1 codes the speech check accepts.
	// Defaults to the primary target.
	AcceptedContentLangs []string `toml:"accepted_content_langs"`
	// OriginalHints maps keywords found in series metadata to the assumed
	// original audio language (e.g. anime = "ja").
	OriginalHints map[string]string `toml:"original_hints"`
}

// Verification contains configuration for the downloaded-file language check.
type Verification struct {
	Enabled              bool   `toml:"enabled"`
	SpeechCheck          bool   `toml:"speech_check"`
	RequireDub           bool   `toml:"require_dub"`
	SampleSeconds        int    `toml:"sample_seconds"`
	Remux                bool   `toml:"remux"`
	KeepMismatch         bool   `toml:"keep_mismatch"`
	WhisperModel         string `toml:"whisper_model"`
	WhisperFallbackModel string `toml:"whisper_fallback_model"`
}

// Debrid contains configuration for the unrestrict service.
type Debrid struct {
	Enabled           bool    `toml:"enabled"`
	APIToken          string  `toml:"api_token"`
	BaseURL           string  `toml:"base_url"`
	RatePerSecond     float64 `toml:"rate_per_second"`
	RateBurst         int     `toml:"rate_burst"`
	MaxRetries        int     `toml:"max_retries"`
	RetryDelaySeconds int     `toml:"retry_delay_seconds"`
	RequestTimeout    int     `toml:"request_timeout"`
	// Hosts always resolve through the unrestrict service regardless of
	// account standing. Other hosts only do on premium accounts.
	Hosts []string `toml:"hosts"`
}

// Downloader contains configuration for yt-dlp and direct fetches.
type Downloader struct {
	Binary             string `toml:"binary"`
	Format             string `toml:"format"`
	MaxRetries         int    `toml:"max_retries"`
	RetryDelaySeconds  int    `toml:"retry_delay_seconds"`
	Timeout            int    `toml:"timeout"`
	CookiesFile        string `toml:"cookies_file"`
	CookiesFromBrowser string `toml:"cookies_from_browser"`
}

// Workflow contains configuration for daemon timing and worker pools.
type Workflow struct {
	ExtractWorkers       int `toml:"extract_workers"`
	TransferWorkers      int `toml:"transfer_workers"`
	QueuePollInterval    int `toml:"queue_poll_interval"`
	ErrorRetryInterval   int `toml:"error_retry_interval"`
	HeartbeatInterval    int `toml:"heartbeat_interval"`
	HeartbeatTimeout     int `toml:"heartbeat_timeout"`
	ThrottleThreshold    int `toml:"throttle_threshold"`
	ThrottleGroupSize    int `toml:"throttle_group_size"`
	ThrottlePauseSeconds int `toml:"throttle_pause_seconds"`
	StagingCleanupHours  int `toml:"staging_cleanup_hours"`
}

// Jellyfin contains configuration for Jellyfin Media Server integration.
type Jellyfin struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url"`
	APIKey  string `toml:"api_key"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic          string `toml:"ntfy_topic"`
	RequestTimeout     int    `toml:"request_timeout"`
	Batch              bool   `toml:"batch"`
	Episode            bool   `toml:"episode"`
	Review             bool   `toml:"review"`
	Errors             bool   `toml:"errors"`
	DedupWindowSeconds int    `toml:"dedup_window_seconds"`
}

// Metrics contains configuration for the Prometheus endpoint.
type Metrics struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for Spool.
//
// Configuration sections by subsystem:
//   - Paths: directories and API bind address
//   - Language: priority list and verification language policy
//   - Verification: downloaded-file language check behaviour
//   - Debrid: unrestrict service credentials and rate limits
//   - Downloader: yt-dlp invocation and retry settings
//   - Workflow: worker pools, polling intervals, batch throttling
//   - Jellyfin: media server library refresh integration
//   - Notifications: ntfy push notification settings
//   - Metrics: Prometheus endpoint toggle
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Language      Language      `toml:"language"`
	Verification  Verification  `toml:"verification"`
	Debrid        Debrid        `toml:"debrid"`
	Downloader    Downloader    `toml:"downloader"`
	Workflow      Workflow      `toml:"workflow"`
	Jellyfin      Jellyfin      `toml:"jellyfin"`
	Notifications Notifications `toml:"notifications"`
	Metrics       Metrics       `toml:"metrics"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/spool/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/spool/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("spool.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// LibraryDir is created on a best-effort basis so the daemon can run when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir, c.Paths.ReviewDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		// Best-effort to avoid failing config load when storage is offline.
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable, honoring the FFMPEG_PATH override.
func (c *Config) FFmpegBinary() string {
	if path := strings.TrimSpace(os.Getenv("FFMPEG_PATH")); path != "" {
		return path
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable, honoring the FFPROBE_PATH override.
func (c *Config) FFprobeBinary() string {
	if path := strings.TrimSpace(os.Getenv("FFPROBE_PATH")); path != "" {
		return path
	}
	return "ffprobe"
}

// YtdlpBinary returns the yt-dlp executable name.
func (c *Config) YtdlpBinary() string {
	if bin := strings.TrimSpace(c.Downloader.Binary); bin != "" {
		return bin
	}
	return defaultYtdlpBinary
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
