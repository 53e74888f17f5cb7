package download

import (
	"path/filepath"

	"spool/internal/config"
)

// FetcherConfigFrom maps the downloader configuration onto fetcher
// settings. Exported browser cookies land in a hidden directory under
// staging so cleanup sweeps never mistake them for episode files.
func FetcherConfigFrom(cfg *config.Config) FetcherConfig {
	return FetcherConfig{
		Binary:             cfg.YtdlpBinary(),
		Format:             cfg.Downloader.Format,
		CookiesFile:        cfg.Downloader.CookiesFile,
		CookiesFromBrowser: cfg.Downloader.CookiesFromBrowser,
		CookieDir:          filepath.Join(cfg.Paths.StagingDir, ".cookies"),
		TimeoutSeconds:     cfg.Downloader.Timeout,
	}
}
