package jellyfin

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"spool/internal/config"
)

// Service triggers a library scan on the media server.
type Service interface {
	Refresh(ctx context.Context) error
}

// HTTPDoer describes the HTTP client used by the Jellyfin service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the Jellyfin HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	client  HTTPDoer
}

// NewClient constructs a refresh client. A nil httpClient falls back to
// http.DefaultClient.
func NewClient(baseURL, apiKey string, httpClient HTTPDoer) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  httpClient,
	}
}

// NewFromConfig returns the configured refresh service, or a no-op when the
// integration is disabled or incomplete.
func NewFromConfig(cfg *config.Config) Service {
	if cfg == nil || !cfg.Jellyfin.Enabled {
		return noopService{}
	}
	baseURL := strings.TrimSpace(cfg.Jellyfin.URL)
	apiKey := strings.TrimSpace(cfg.Jellyfin.APIKey)
	if baseURL == "" || apiKey == "" {
		return noopService{}
	}
	return NewClient(baseURL, apiKey, nil)
}

// Refresh asks Jellyfin to rescan its libraries.
func (c *Client) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/Library/Refresh", nil)
	if err != nil {
		return fmt.Errorf("build jellyfin refresh request: %w", err)
	}
	req.Header.Set("X-Emby-Token", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("refresh jellyfin library: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("jellyfin refresh returned %d", resp.StatusCode)
	}
	return nil
}

type noopService struct{}

func (noopService) Refresh(context.Context) error { return nil }
