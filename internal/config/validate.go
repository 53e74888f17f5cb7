package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLanguage(); err != nil {
		return err
	}
	if err := c.validateVerification(); err != nil {
		return err
	}
	if err := c.validateDebrid(); err != nil {
		return err
	}
	if err := c.validateJellyfin(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLanguage() error {
	if c.Language.PrimaryTarget == "" {
		return errors.New("language.primary_target must be set")
	}
	if len(c.Language.Priority) == 0 {
		return errors.New("language.priority must include at least one entry")
	}
	for _, entry := range c.Language.Priority {
		if err := validatePriorityEntry(entry); err != nil {
			return err
		}
	}
	return nil
}

func validatePriorityEntry(entry string) error {
	parts := strings.Split(entry, "/")
	if len(parts) > 2 {
		return fmt.Errorf("language.priority entry %q: expected \"audio\" or \"audio/dub\"", entry)
	}
	if strings.TrimSpace(parts[0]) == "" {
		return fmt.Errorf("language.priority entry %q: audio language must not be empty", entry)
	}
	if len(parts) == 2 && strings.TrimSpace(parts[1]) == "" {
		return fmt.Errorf("language.priority entry %q: dub language must not be empty (use \"audio\" or \"audio/-\")", entry)
	}
	return nil
}

func (c *Config) validateVerification() error {
	if c.Verification.SampleSeconds <= 0 {
		return errors.New("verification.sample_seconds must be positive")
	}
	if c.Verification.SpeechCheck && strings.TrimSpace(c.Verification.WhisperModel) == "" {
		return errors.New("verification.whisper_model must be set when verification.speech_check is true")
	}
	return nil
}

func (c *Config) validateDebrid() error {
	if !c.Debrid.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Debrid.APIToken) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/spool/config.toml"
		}
		return fmt.Errorf("debrid.api_token is required when debrid.enabled is true. Set REAL_DEBRID_API_TOKEN env var or edit %s (create with 'spool config init')", defaultPath)
	}
	if strings.TrimSpace(c.Debrid.BaseURL) == "" {
		return errors.New("debrid.base_url must be set when debrid.enabled is true")
	}
	return nil
}

func (c *Config) validateJellyfin() error {
	if !c.Jellyfin.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Jellyfin.URL) == "" {
		return errors.New("jellyfin.url must be set when jellyfin.enabled is true")
	}
	if strings.TrimSpace(c.Jellyfin.APIKey) == "" {
		return errors.New("jellyfin.api_key must be set when jellyfin.enabled is true")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"workflow.extract_workers":      c.Workflow.ExtractWorkers,
		"workflow.transfer_workers":     c.Workflow.TransferWorkers,
		"downloader.timeout":            c.Downloader.Timeout,
		"debrid.request_timeout":        c.Debrid.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	if c.Workflow.ThrottleGroupSize <= 0 {
		return errors.New("workflow.throttle_group_size must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	if c.Notifications.DedupWindowSeconds < 0 {
		return errors.New("notifications.dedup_window_seconds must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
