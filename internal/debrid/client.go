package debrid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"spool/internal/logging"
)

// DefaultBaseURL is the production Real-Debrid API root.
const DefaultBaseURL = "https://api.real-debrid.com/rest/1.0"

const (
	defaultTimeout     = 30 * time.Second
	defaultRetryBase   = 10 * time.Second
	defaultMaxAttempts = 3
	defaultRate        = 1.0
	defaultBurst       = 2
)

// ErrFileUnavailable marks a link the service can never resolve. Callers
// fall back to direct download instead of retrying.
var ErrFileUnavailable = errors.New("file unavailable at unrestrict service")

// Config captures the runtime settings required to talk to the API.
type Config struct {
	APIToken          string
	BaseURL           string
	RatePerSecond     float64
	RateBurst         int
	MaxRetries        int
	RetryDelaySeconds int
	TimeoutSeconds    int
}

// HTTPDoer describes the HTTP client used by the debrid client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the Real-Debrid REST API.
type Client struct {
	cfg        Config
	httpClient HTTPDoer
	limiter    *rate.Limiter
	logger     *slog.Logger
	sleeper    func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger for retry and premium-check diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "debrid")
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a debrid client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIToken = strings.TrimSpace(cfg.APIToken)
	cfg.BaseURL = strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = defaultRate
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = defaultBurst
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxAttempts
	}

	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Account is the subset of the /user payload spool cares about.
type Account struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Type     string `json:"type"`
	// Premium is the remaining premium time in seconds; zero for free
	// accounts.
	Premium    int64  `json:"premium"`
	Expiration string `json:"expiration"`
}

// IsPremium reports whether the account has active premium standing.
func (a Account) IsPremium() bool {
	return a.Premium > 0 || strings.EqualFold(strings.TrimSpace(a.Type), "premium")
}

// UnrestrictedLink is the response of a successful link resolution.
type UnrestrictedLink struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	MimeType   string `json:"mimeType"`
	Filesize   int64  `json:"filesize"`
	Link       string `json:"link"`
	Host       string `json:"host"`
	Chunks     int    `json:"chunks"`
	CRC        int    `json:"crc"`
	Download   string `json:"download"`
	Streamable int    `json:"streamable"`
}

// APIError is the JSON error body the API returns alongside non-2xx
// statuses.
type APIError struct {
	Message string `json:"error"`
	Code    int    `json:"error_code"`
	Status  int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("debrid api error: %s (code %d, http %d)", e.Message, e.Code, e.Status)
}

// permanent reports whether retrying the same link can never help.
func (e *APIError) permanent() bool {
	return e.Message == "unavailable_file"
}

// User fetches the authenticated account.
func (c *Client) User(ctx context.Context) (Account, error) {
	var account Account
	if c.cfg.APIToken == "" {
		return account, errors.New("debrid user: api token required")
	}
	body, err := c.get(ctx, "/user")
	if err != nil {
		return account, err
	}
	if err := json.Unmarshal(body, &account); err != nil {
		return account, fmt.Errorf("debrid user: decode response: %w", err)
	}
	return account, nil
}

// CheckPremium reports premium standing, failing closed: any error counts
// as not premium.
func (c *Client) CheckPremium(ctx context.Context) bool {
	account, err := c.User(ctx)
	if err != nil {
		c.logger.Warn("premium check failed", logging.Error(err))
		return false
	}
	return account.IsPremium()
}

// Unrestrict resolves a hoster link into a direct download link. Overload
// and transient failures retry with exponential backoff; a permanently
// unavailable file returns ErrFileUnavailable immediately.
func (c *Client) Unrestrict(ctx context.Context, link string) (UnrestrictedLink, error) {
	var zero UnrestrictedLink
	link = strings.TrimSpace(link)
	if link == "" {
		return zero, errors.New("debrid unrestrict: link required")
	}
	if c.cfg.APIToken == "" {
		return zero, errors.New("debrid unrestrict: api token required")
	}

	attempts := c.cfg.MaxRetries
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := c.backoffDelay(attempt)
			c.logger.Info("waiting before unrestrict retry",
				logging.Duration("delay", delay),
				logging.Int("attempt", attempt),
				logging.Int("max_attempts", attempts))
			if err := c.sleep(ctx, delay); err != nil {
				return zero, err
			}
		}

		result, err := c.unrestrictOnce(ctx, link)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, ErrFileUnavailable) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		lastErr = err
		c.logger.Warn("unrestrict attempt failed", logging.Int("attempt", attempt), logging.Error(err))
	}
	return zero, fmt.Errorf("debrid unrestrict: failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) unrestrictOnce(ctx context.Context, link string) (UnrestrictedLink, error) {
	var zero UnrestrictedLink
	form := url.Values{"link": {link}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/unrestrict/link", strings.NewReader(form.Encode()))
	if err != nil {
		return zero, fmt.Errorf("debrid unrestrict: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, status, err := c.do(ctx, req)
	if err != nil {
		return zero, err
	}
	if status != http.StatusOK {
		apiErr := &APIError{Status: status}
		if len(body) > 0 {
			_ = json.Unmarshal(body, apiErr)
		}
		if apiErr.permanent() {
			return zero, fmt.Errorf("%w: %s", ErrFileUnavailable, link)
		}
		return zero, apiErr
	}

	var result UnrestrictedLink
	if err := json.Unmarshal(body, &result); err != nil {
		return zero, fmt.Errorf("debrid unrestrict: decode response: %w", err)
	}
	if strings.TrimSpace(result.Download) == "" {
		return zero, errors.New("debrid unrestrict: response carried no download url")
	}
	if err := c.checkReachable(ctx, result.Download); err != nil {
		return zero, err
	}
	return result, nil
}

// checkReachable confirms the resolved URL actually answers before it is
// handed to the downloader, since stale resolutions 404 later anyway.
func (c *Client) checkReachable(ctx context.Context, downloadURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, downloadURL, nil)
	if err != nil {
		return fmt.Errorf("debrid unrestrict: build reachability request: %w", err)
	}
	_, status, err := c.do(ctx, req)
	if err != nil {
		return fmt.Errorf("debrid unrestrict: download url unreachable: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("debrid unrestrict: download url answered %d", status)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("debrid: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	body, status, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		apiErr := &APIError{Status: status}
		if len(body) > 0 {
			_ = json.Unmarshal(body, apiErr)
		}
		return nil, apiErr
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, req *http.Request) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("debrid: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("debrid: read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// backoffDelay doubles from the configured base: attempt 2 waits the base,
// attempt 3 twice that, and so on.
func (c *Client) backoffDelay(attempt int) time.Duration {
	base := defaultRetryBase
	if c.cfg.RetryDelaySeconds > 0 {
		base = time.Duration(c.cfg.RetryDelaySeconds) * time.Second
	}
	delay := base
	for i := 2; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// MatchesHost reports whether rawURL's host is one of hosts or a subdomain
// of one.
func MatchesHost(rawURL string, hosts []string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	hostname := strings.ToLower(parsed.Hostname())
	if hostname == "" {
		return false
	}
	for _, host := range hosts {
		host = strings.ToLower(strings.TrimSpace(host))
		if host == "" {
			continue
		}
		if hostname == host || strings.HasSuffix(hostname, "."+host) {
			return true
		}
	}
	return false
}
