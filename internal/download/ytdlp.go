package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Defaults applied when FetcherConfig fields are zero.
const (
	DefaultBinary       = "yt-dlp"
	DefaultFormat       = "bv*+ba/b"
	defaultFetchTimeout = 3600
)

var (
	// ErrUnavailable marks a source the host reports as definitively gone.
	// Retrying cannot help; the caller should advance to the next mirror.
	ErrUnavailable = errors.New("video unavailable")
	// ErrUnsupportedURL marks a URL the transfer tool has no extractor for.
	ErrUnsupportedURL = errors.New("unsupported url")
)

// FetcherConfig carries yt-dlp invocation settings.
type FetcherConfig struct {
	Binary string
	Format string
	// CookiesFile is passed through verbatim. When empty and
	// CookiesFromBrowser names a browser, cookies are exported from its
	// store per registrable domain into CookieDir.
	CookiesFile        string
	CookiesFromBrowser string
	CookieDir          string
	TimeoutSeconds     int
}

// Stages reported through progress callbacks.
const (
	StageUnrestrict = "unrestrict"
	StageTransfer   = "transfer"
	StageFallback   = "fallback"
	StageVerify     = "verify"
)

// ProgressUpdate reports transfer activity. Percent is negative when the
// event carried no percentage; ETASeconds is zero when unknown.
type ProgressUpdate struct {
	Stage      string
	Percent    float64
	Speed      string
	ETASeconds int
	Message    string
}

// FetchRequest describes one transfer invocation.
type FetchRequest struct {
	URL        string
	OutputPath string
	// Format overrides the client default when set.
	Format    string
	UserAgent string
	Referer   string
	// Headers holds extra request headers, sent in sorted key order.
	Headers  map[string]string
	Progress func(ProgressUpdate)
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) FetcherOption {
	return func(f *Fetcher) {
		if exec != nil {
			f.exec = exec
		}
	}
}

// Fetcher wraps yt-dlp transfers and JSON probes.
type Fetcher struct {
	cfg     FetcherConfig
	exec    Executor
	cookies *cookieExporter
}

// NewFetcher constructs a Fetcher with defaults filled in.
func NewFetcher(cfg FetcherConfig, opts ...FetcherOption) *Fetcher {
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = DefaultBinary
	}
	if strings.TrimSpace(cfg.Format) == "" {
		cfg.Format = DefaultFormat
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = defaultFetchTimeout
	}
	f := &Fetcher{cfg: cfg, exec: commandExecutor{}}
	if cfg.CookiesFile == "" && strings.TrimSpace(cfg.CookiesFromBrowser) != "" {
		f.cookies = newCookieExporter(cfg.CookiesFromBrowser, cfg.CookieDir)
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads req.URL to req.OutputPath, forwarding per-chunk progress
// to the request callback. Failures are classified so callers can tell
// definitive unavailability from transient trouble.
func (f *Fetcher) Fetch(ctx context.Context, req FetchRequest) error {
	if strings.TrimSpace(req.URL) == "" {
		return errors.New("url required")
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return errors.New("output path required")
	}
	if dir := filepath.Dir(req.OutputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(f.cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	var tail outputTail
	err := f.exec.Run(ctx, f.cfg.Binary, f.transferArgs(req), func(line string) {
		tail.add(line)
		if req.Progress == nil {
			return
		}
		if update, ok := parseProgress(line); ok {
			req.Progress(update)
		}
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return classifyRunError(err, tail.lines())
	}
	return nil
}

func (f *Fetcher) transferArgs(req FetchRequest) []string {
	args := make([]string, 0, 24)
	args = append(args, "--newline", "--no-warnings", "--no-playlist")

	format := req.Format
	if format == "" {
		format = f.cfg.Format
	}
	args = append(args, "-f", format)
	args = append(args, "-o", req.OutputPath)

	if file := f.cookieFile(req.URL); file != "" {
		args = append(args, "--cookies", file)
	}
	if req.UserAgent != "" {
		args = append(args, "--user-agent", req.UserAgent)
	}
	if req.Referer != "" {
		args = append(args, "--referer", req.Referer)
	}
	for _, key := range sortedKeys(req.Headers) {
		args = append(args, "--add-headers", key+":"+req.Headers[key])
	}

	// Target URL goes last.
	args = append(args, req.URL)
	return args
}

func (f *Fetcher) cookieFile(rawURL string) string {
	if f.cfg.CookiesFile != "" {
		return f.cfg.CookiesFile
	}
	if f.cookies == nil {
		return ""
	}
	return f.cookies.fileFor(rawURL)
}

// parseProgress extracts percent, speed, and ETA from yt-dlp --newline
// output such as "[download]  42.7% of 123.45MiB at 2.34MiB/s ETA 00:12".
func parseProgress(line string) (ProgressUpdate, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), "[download]")
	if !ok {
		return ProgressUpdate{}, false
	}
	rest = strings.TrimSpace(rest)
	fields := strings.Fields(rest)
	if len(fields) == 0 || !strings.HasSuffix(fields[0], "%") {
		return ProgressUpdate{}, false
	}
	percent, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], "%"), 64)
	if err != nil {
		return ProgressUpdate{}, false
	}

	update := ProgressUpdate{Stage: StageTransfer, Percent: percent, Message: rest}
	for i := 0; i < len(fields)-1; i++ {
		switch fields[i] {
		case "at":
			update.Speed = fields[i+1]
		case "ETA":
			update.ETASeconds = parseClock(fields[i+1])
		}
	}
	return update, true
}

// parseClock converts "12", "00:12", or "01:02:03" to seconds.
func parseClock(value string) int {
	total := 0
	for _, part := range strings.Split(value, ":") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return total
}

const (
	tailKeep    = 12
	tailLineMax = 400
)

// outputTail keeps the last few output lines for failure diagnostics.
type outputTail struct {
	buf []string
}

func (t *outputTail) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if len(line) > tailLineMax {
		line = line[:tailLineMax] + "..."
	}
	t.buf = append(t.buf, line)
	if len(t.buf) > tailKeep {
		t.buf = t.buf[1:]
	}
}

func (t *outputTail) lines() []string {
	return t.buf
}

func classifyRunError(err error, tail []string) error {
	detail := errorDetail(tail)
	lower := strings.ToLower(detail)
	switch {
	case strings.Contains(lower, "video unavailable"):
		return fmt.Errorf("%w: %s", ErrUnavailable, detail)
	case strings.Contains(lower, "unsupported url"):
		return fmt.Errorf("%w: %s", ErrUnsupportedURL, detail)
	}
	if detail == "" {
		return fmt.Errorf("yt-dlp: %w", err)
	}
	return fmt.Errorf("yt-dlp: %w: %s", err, detail)
}

// errorDetail prefers explicit ERROR lines over trailing noise.
func errorDetail(tail []string) string {
	var errorLines []string
	for _, line := range tail {
		if strings.Contains(line, "ERROR:") {
			errorLines = append(errorLines, line)
		}
	}
	if len(errorLines) > 0 {
		return strings.Join(errorLines, "; ")
	}
	if len(tail) > 0 {
		return tail[len(tail)-1]
	}
	return ""
}

func sortedKeys(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
