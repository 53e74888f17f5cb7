package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLanguage()
	c.normalizeVerification()
	c.normalizeDebrid()
	c.normalizeDownloader()
	c.normalizeWorkflow()
	c.normalizeJellyfin()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.ReviewDir, err = expandPath(c.Paths.ReviewDir); err != nil {
		return fmt.Errorf("paths.review_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeLanguage() {
	c.Language.PrimaryTarget = strings.ToLower(strings.TrimSpace(c.Language.PrimaryTarget))
	if c.Language.PrimaryTarget == "" {
		c.Language.PrimaryTarget = defaultPrimaryTarget
	}

	if len(c.Language.Priority) == 0 {
		c.Language.Priority = defaultPriority()
	} else {
		entries := make([]string, 0, len(c.Language.Priority))
		seen := make(map[string]struct{}, len(c.Language.Priority))
		for _, entry := range c.Language.Priority {
			normalized := strings.ToLower(strings.TrimSpace(entry))
			if normalized == "" {
				continue
			}
			if _, exists := seen[normalized]; exists {
				continue
			}
			seen[normalized] = struct{}{}
			entries = append(entries, normalized)
		}
		if len(entries) == 0 {
			entries = defaultPriority()
		}
		c.Language.Priority = entries
	}

	if len(c.Language.AcceptedContentLangs) == 0 {
		c.Language.AcceptedContentLangs = []string{c.Language.PrimaryTarget}
	} else {
		langs := make([]string, 0, len(c.Language.AcceptedContentLangs))
		seen := make(map[string]struct{}, len(c.Language.AcceptedContentLangs))
		for _, lang := range c.Language.AcceptedContentLangs {
			normalized := strings.ToLower(strings.TrimSpace(lang))
			if normalized == "" {
				continue
			}
			if _, exists := seen[normalized]; exists {
				continue
			}
			seen[normalized] = struct{}{}
			langs = append(langs, normalized)
		}
		if len(langs) == 0 {
			langs = []string{c.Language.PrimaryTarget}
		}
		c.Language.AcceptedContentLangs = langs
	}

	if c.Language.OriginalHints == nil {
		c.Language.OriginalHints = defaultOriginalHints()
	} else {
		hints := make(map[string]string, len(c.Language.OriginalHints))
		for keyword, lang := range c.Language.OriginalHints {
			keyword = strings.ToLower(strings.TrimSpace(keyword))
			lang = strings.ToLower(strings.TrimSpace(lang))
			if keyword == "" || lang == "" {
				continue
			}
			hints[keyword] = lang
		}
		c.Language.OriginalHints = hints
	}
}

func (c *Config) normalizeVerification() {
	if c.Verification.SampleSeconds <= 0 {
		c.Verification.SampleSeconds = defaultSampleSeconds
	}
	c.Verification.WhisperModel = strings.TrimSpace(c.Verification.WhisperModel)
	if c.Verification.WhisperModel == "" {
		c.Verification.WhisperModel = defaultWhisperModel
	}
	c.Verification.WhisperFallbackModel = strings.TrimSpace(c.Verification.WhisperFallbackModel)
}

func (c *Config) normalizeDebrid() {
	c.Debrid.APIToken = strings.TrimSpace(c.Debrid.APIToken)
	if c.Debrid.APIToken == "" {
		if value, ok := os.LookupEnv("REAL_DEBRID_API_TOKEN"); ok {
			c.Debrid.APIToken = strings.TrimSpace(value)
		}
	}
	c.Debrid.BaseURL = strings.TrimSpace(strings.TrimSuffix(c.Debrid.BaseURL, "/"))
	if c.Debrid.BaseURL == "" {
		c.Debrid.BaseURL = defaultDebridBaseURL
	}
	if c.Debrid.RatePerSecond <= 0 {
		c.Debrid.RatePerSecond = defaultDebridRatePerSecond
	}
	if c.Debrid.RateBurst <= 0 {
		c.Debrid.RateBurst = defaultDebridRateBurst
	}
	if c.Debrid.MaxRetries <= 0 {
		c.Debrid.MaxRetries = defaultDebridMaxRetries
	}
	if c.Debrid.RetryDelaySeconds <= 0 {
		c.Debrid.RetryDelaySeconds = defaultDebridRetryDelaySeconds
	}
	if c.Debrid.RequestTimeout <= 0 {
		c.Debrid.RequestTimeout = defaultDebridRequestTimeout
	}
	hosts := make([]string, 0, len(c.Debrid.Hosts))
	for _, host := range c.Debrid.Hosts {
		host = strings.ToLower(strings.TrimSpace(host))
		if host != "" {
			hosts = append(hosts, host)
		}
	}
	if len(hosts) == 0 {
		hosts = defaultDebridHosts()
	}
	c.Debrid.Hosts = hosts
}

func (c *Config) normalizeDownloader() {
	c.Downloader.Binary = strings.TrimSpace(c.Downloader.Binary)
	if c.Downloader.Binary == "" {
		c.Downloader.Binary = defaultYtdlpBinary
	}
	c.Downloader.Format = strings.TrimSpace(c.Downloader.Format)
	if c.Downloader.Format == "" {
		c.Downloader.Format = defaultDownloadFormat
	}
	if c.Downloader.MaxRetries <= 0 {
		c.Downloader.MaxRetries = defaultDownloadMaxRetries
	}
	if c.Downloader.RetryDelaySeconds <= 0 {
		c.Downloader.RetryDelaySeconds = defaultDownloadRetryDelaySeconds
	}
	if c.Downloader.Timeout <= 0 {
		c.Downloader.Timeout = defaultDownloadTimeout
	}
	c.Downloader.CookiesFromBrowser = strings.ToLower(strings.TrimSpace(c.Downloader.CookiesFromBrowser))
	c.Downloader.CookiesFile = strings.TrimSpace(c.Downloader.CookiesFile)
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.ExtractWorkers <= 0 {
		c.Workflow.ExtractWorkers = defaultExtractWorkers
	}
	if c.Workflow.TransferWorkers <= 0 {
		c.Workflow.TransferWorkers = defaultTransferWorkers
	}
	if c.Workflow.ThrottleThreshold < 0 {
		c.Workflow.ThrottleThreshold = 0
	}
	if c.Workflow.ThrottleGroupSize <= 0 {
		c.Workflow.ThrottleGroupSize = defaultThrottleGroupSize
	}
	if c.Workflow.ThrottlePauseSeconds < 0 {
		c.Workflow.ThrottlePauseSeconds = 0
	}
	if c.Workflow.StagingCleanupHours < 0 {
		c.Workflow.StagingCleanupHours = 0
	}
}

func (c *Config) normalizeJellyfin() {
	if c.Jellyfin.APIKey == "" {
		if value, ok := os.LookupEnv("JELLYFIN_API_KEY"); ok {
			c.Jellyfin.APIKey = strings.TrimSpace(value)
		}
	}
	c.Jellyfin.URL = strings.TrimSpace(strings.TrimSuffix(c.Jellyfin.URL, "/"))
	c.Jellyfin.APIKey = strings.TrimSpace(c.Jellyfin.APIKey)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
