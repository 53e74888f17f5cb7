package download

import "spool/internal/debrid"

// VOE refuses requests that do not look like a browser, so the dedicated
// fallback attempt presents a desktop Chrome profile and the simple "best"
// format instead of the configured selector.
const (
	voeHost           = "voe.sx"
	voeReferer        = "https://voe.sx/"
	voeOrigin         = "https://voe.sx"
	fallbackFormat    = "best"
	fallbackUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// IsVOEURL reports whether the URL belongs to the VOE hoster.
func IsVOEURL(rawURL string) bool {
	return debrid.MatchesHost(rawURL, []string{voeHost})
}

func fallbackRequest(rawURL, outputPath string, progress func(ProgressUpdate)) FetchRequest {
	return FetchRequest{
		URL:        rawURL,
		OutputPath: outputPath,
		Format:     fallbackFormat,
		UserAgent:  fallbackUserAgent,
		Referer:    voeReferer,
		Headers:    map[string]string{"Origin": voeOrigin},
		Progress:   progress,
	}
}
