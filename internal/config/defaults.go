package config

const (
	defaultStagingDir                = "~/.local/share/spool/staging"
	defaultLibraryDir                = "~/library"
	defaultReviewDir                 = "~/review"
	defaultLogDir                    = "~/.local/share/spool/logs"
	defaultAPIBind                   = "127.0.0.1:7955"
	defaultPrimaryTarget             = "de"
	defaultSampleSeconds             = 45
	defaultWhisperModel              = "tiny"
	defaultWhisperFallbackModel      = "base"
	defaultDebridBaseURL             = "https://api.real-debrid.com/rest/1.0"
	defaultDebridRatePerSecond       = 1.0
	defaultDebridRateBurst           = 2
	defaultDebridMaxRetries          = 3
	defaultDebridRetryDelaySeconds   = 10
	defaultDebridRequestTimeout      = 30
	defaultYtdlpBinary               = "yt-dlp"
	defaultDownloadFormat            = "bv*+ba/b"
	defaultDownloadMaxRetries        = 3
	defaultDownloadRetryDelaySeconds = 5
	defaultDownloadTimeout           = 3600
	defaultExtractWorkers            = 2
	defaultTransferWorkers           = 2
	defaultQueuePollInterval         = 5
	defaultErrorRetryInterval        = 10
	defaultHeartbeatInterval         = 15
	defaultHeartbeatTimeout          = 120
	defaultThrottleThreshold         = 10
	defaultThrottleGroupSize         = 5
	defaultThrottlePauseSeconds      = 30
	defaultStagingCleanupHours       = 48
	defaultNotifyRequestTimeout      = 10
	defaultNotifyDedupWindowSeconds  = 600
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
	defaultLogRetentionDays          = 60
)

func defaultPriority() []string {
	return []string{"de", "en/de", "en", "ja/de", "ja/en", "ja"}
}

func defaultOriginalHints() map[string]string {
	return map[string]string{
		"anime":   "ja",
		"cartoon": "en",
	}
}

func defaultDebridHosts() []string {
	return []string{"voe.sx", "maxfinishseveral.com"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LibraryDir: defaultLibraryDir,
			ReviewDir:  defaultReviewDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Language: Language{
			Priority:      defaultPriority(),
			PrimaryTarget: defaultPrimaryTarget,
			OriginalHints: defaultOriginalHints(),
		},
		Verification: Verification{
			Enabled:              true,
			SpeechCheck:          true,
			RequireDub:           true,
			SampleSeconds:        defaultSampleSeconds,
			Remux:                true,
			KeepMismatch:         true,
			WhisperModel:         defaultWhisperModel,
			WhisperFallbackModel: defaultWhisperFallbackModel,
		},
		Debrid: Debrid{
			BaseURL:           defaultDebridBaseURL,
			RatePerSecond:     defaultDebridRatePerSecond,
			RateBurst:         defaultDebridRateBurst,
			MaxRetries:        defaultDebridMaxRetries,
			RetryDelaySeconds: defaultDebridRetryDelaySeconds,
			RequestTimeout:    defaultDebridRequestTimeout,
			Hosts:             defaultDebridHosts(),
		},
		Downloader: Downloader{
			Binary:            defaultYtdlpBinary,
			Format:            defaultDownloadFormat,
			MaxRetries:        defaultDownloadMaxRetries,
			RetryDelaySeconds: defaultDownloadRetryDelaySeconds,
			Timeout:           defaultDownloadTimeout,
		},
		Workflow: Workflow{
			ExtractWorkers:       defaultExtractWorkers,
			TransferWorkers:      defaultTransferWorkers,
			QueuePollInterval:    defaultQueuePollInterval,
			ErrorRetryInterval:   defaultErrorRetryInterval,
			HeartbeatInterval:    defaultHeartbeatInterval,
			HeartbeatTimeout:     defaultHeartbeatTimeout,
			ThrottleThreshold:    defaultThrottleThreshold,
			ThrottleGroupSize:    defaultThrottleGroupSize,
			ThrottlePauseSeconds: defaultThrottlePauseSeconds,
			StagingCleanupHours:  defaultStagingCleanupHours,
		},
		Notifications: Notifications{
			RequestTimeout:     defaultNotifyRequestTimeout,
			Batch:              true,
			Episode:            true,
			Review:             true,
			Errors:             true,
			DedupWindowSeconds: defaultNotifyDedupWindowSeconds,
		},
		Metrics: Metrics{
			Enabled: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
