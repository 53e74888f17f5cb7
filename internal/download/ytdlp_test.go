package download_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spool/internal/download"
)

type stubExecutor struct {
	lines  []string
	err    error
	calls  int
	binary string
	args   [][]string
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	s.calls++
	s.binary = binary
	cloned := append([]string(nil), args...)
	s.args = append(s.args, cloned)
	for _, line := range s.lines {
		if onLine != nil {
			onLine(line)
		}
	}
	return s.err
}

func TestFetchBuildsTransferArgs(t *testing.T) {
	tmp := t.TempDir()
	out := filepath.Join(tmp, "show", "S01E05.mp4")
	exec := &stubExecutor{}
	fetcher := download.NewFetcher(download.FetcherConfig{
		Format:      "b",
		CookiesFile: "/tmp/session-cookies.txt",
	}, download.WithExecutor(exec))

	err := fetcher.Fetch(context.Background(), download.FetchRequest{
		URL:        "https://cdn.example/v/abc.mp4",
		OutputPath: out,
	})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if exec.binary != "yt-dlp" {
		t.Fatalf("expected default binary, got %q", exec.binary)
	}
	if len(exec.args) != 1 {
		t.Fatalf("expected 1 invocation, got %d", len(exec.args))
	}
	want := []string{
		"--newline", "--no-warnings", "--no-playlist",
		"-f", "b",
		"-o", out,
		"--cookies", "/tmp/session-cookies.txt",
		"https://cdn.example/v/abc.mp4",
	}
	if !equalStrings(exec.args[0], want) {
		t.Fatalf("unexpected args: got %v want %v", exec.args[0], want)
	}
	if _, err := os.Stat(filepath.Dir(out)); err != nil {
		t.Fatalf("expected output directory to be created: %v", err)
	}
}

func TestFetchRequestFormatOverridesDefault(t *testing.T) {
	exec := &stubExecutor{}
	fetcher := download.NewFetcher(download.FetcherConfig{}, download.WithExecutor(exec))
	out := filepath.Join(t.TempDir(), "ep.mp4")

	if err := fetcher.Fetch(context.Background(), download.FetchRequest{
		URL:        "https://cdn.example/v/abc.mp4",
		OutputPath: out,
	}); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if err := fetcher.Fetch(context.Background(), download.FetchRequest{
		URL:        "https://cdn.example/v/abc.mp4",
		OutputPath: out,
		Format:     "best",
	}); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if got := formatArg(t, exec.args[0]); got != download.DefaultFormat {
		t.Fatalf("expected default format %q, got %q", download.DefaultFormat, got)
	}
	if got := formatArg(t, exec.args[1]); got != "best" {
		t.Fatalf("expected request format to win, got %q", got)
	}
}

func TestFetchHonorsHeaderOverrides(t *testing.T) {
	exec := &stubExecutor{}
	fetcher := download.NewFetcher(download.FetcherConfig{}, download.WithExecutor(exec))
	out := filepath.Join(t.TempDir(), "ep.mp4")

	err := fetcher.Fetch(context.Background(), download.FetchRequest{
		URL:        "https://voe.sx/e/abc123",
		OutputPath: out,
		UserAgent:  "AgentX",
		Referer:    "https://ref.example/",
		Headers: map[string]string{
			"Origin":          "https://voe.sx",
			"Accept-Language": "de-DE",
		},
	})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	want := []string{
		"--newline", "--no-warnings", "--no-playlist",
		"-f", download.DefaultFormat,
		"-o", out,
		"--user-agent", "AgentX",
		"--referer", "https://ref.example/",
		"--add-headers", "Accept-Language:de-DE",
		"--add-headers", "Origin:https://voe.sx",
		"https://voe.sx/e/abc123",
	}
	if !equalStrings(exec.args[0], want) {
		t.Fatalf("unexpected args: got %v want %v", exec.args[0], want)
	}
}

func TestFetchReportsProgress(t *testing.T) {
	exec := &stubExecutor{lines: []string{
		"[download] Destination: /tmp/ep.mp4",
		"[download]  42.7% of  123.45MiB at    2.34MiB/s ETA 00:12",
		"[download] 100% of 123.45MiB in 00:53",
	}}
	fetcher := download.NewFetcher(download.FetcherConfig{}, download.WithExecutor(exec))

	var updates []download.ProgressUpdate
	err := fetcher.Fetch(context.Background(), download.FetchRequest{
		URL:        "https://cdn.example/v/abc.mp4",
		OutputPath: filepath.Join(t.TempDir(), "ep.mp4"),
		Progress:   func(u download.ProgressUpdate) { updates = append(updates, u) },
	})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 progress updates, got %d", len(updates))
	}
	first := updates[0]
	if first.Stage != download.StageTransfer || first.Percent != 42.7 {
		t.Fatalf("unexpected first update: %+v", first)
	}
	if first.Speed != "2.34MiB/s" || first.ETASeconds != 12 {
		t.Fatalf("expected speed and ETA, got %+v", first)
	}
	if updates[1].Percent != 100 {
		t.Fatalf("expected completion update, got %+v", updates[1])
	}
}

func TestFetchClassifiesUnavailable(t *testing.T) {
	exec := &stubExecutor{
		lines: []string{
			"[generic] Extracting URL: https://cdn.example/v/abc",
			"ERROR: [generic] abc: Video unavailable",
		},
		err: errors.New("exit status 1"),
	}
	fetcher := download.NewFetcher(download.FetcherConfig{}, download.WithExecutor(exec))

	err := fetcher.Fetch(context.Background(), download.FetchRequest{
		URL:        "https://cdn.example/v/abc",
		OutputPath: filepath.Join(t.TempDir(), "ep.mp4"),
	})
	if !errors.Is(err, download.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got: %v", err)
	}
	if !strings.Contains(err.Error(), "Video unavailable") {
		t.Fatalf("expected error detail from output, got: %v", err)
	}
}

func TestFetchClassifiesUnsupportedURL(t *testing.T) {
	exec := &stubExecutor{
		lines: []string{"ERROR: Unsupported URL: https://weirdhost.example/watch/5"},
		err:   errors.New("exit status 1"),
	}
	fetcher := download.NewFetcher(download.FetcherConfig{}, download.WithExecutor(exec))

	err := fetcher.Fetch(context.Background(), download.FetchRequest{
		URL:        "https://weirdhost.example/watch/5",
		OutputPath: filepath.Join(t.TempDir(), "ep.mp4"),
	})
	if !errors.Is(err, download.ErrUnsupportedURL) {
		t.Fatalf("expected ErrUnsupportedURL, got: %v", err)
	}
	if !strings.Contains(err.Error(), "weirdhost.example") {
		t.Fatalf("expected offending URL in error, got: %v", err)
	}
}

func TestFetchPrefersContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exec := &stubExecutor{err: errors.New("signal: killed")}
	fetcher := download.NewFetcher(download.FetcherConfig{}, download.WithExecutor(exec))

	err := fetcher.Fetch(ctx, download.FetchRequest{
		URL:        "https://cdn.example/v/abc",
		OutputPath: filepath.Join(t.TempDir(), "ep.mp4"),
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got: %v", err)
	}
}

func TestFetchValidatesRequest(t *testing.T) {
	exec := &stubExecutor{}
	fetcher := download.NewFetcher(download.FetcherConfig{}, download.WithExecutor(exec))

	if err := fetcher.Fetch(context.Background(), download.FetchRequest{OutputPath: "ep.mp4"}); err == nil {
		t.Fatal("expected error for missing URL")
	}
	if err := fetcher.Fetch(context.Background(), download.FetchRequest{URL: "https://a.example/v"}); err == nil {
		t.Fatal("expected error for missing output path")
	}
	if exec.calls != 0 {
		t.Fatalf("expected no invocations, got %d", exec.calls)
	}
}

func TestInspectParsesJSON(t *testing.T) {
	exec := &stubExecutor{lines: []string{
		"[Voe] Extracting URL: https://voe.sx/e/abc123",
		`{"id":"abc123","title":"Episode 5","extractor_key":"Voe","webpage_url":"https://voe.sx/e/abc123","duration":1422.5,"language":"de","formats":[{"format_id":"hls-2160","ext":"mp4","protocol":"m3u8_native","url":"https://delivery.example/master.m3u8","width":3840,"height":2160,"tbr":14000.1},{"format_id":"audio","ext":"m4a","format_note":"audio only"}]}`,
	}}
	fetcher := download.NewFetcher(download.FetcherConfig{}, download.WithExecutor(exec))

	info, err := fetcher.Inspect(context.Background(), "https://voe.sx/e/abc123")
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	want := []string{"-J", "--no-download", "--no-warnings", "--no-playlist", "https://voe.sx/e/abc123"}
	if !equalStrings(exec.args[0], want) {
		t.Fatalf("unexpected args: got %v want %v", exec.args[0], want)
	}
	if info.ID != "abc123" || info.Title != "Episode 5" || info.Extractor != "Voe" {
		t.Fatalf("unexpected media info: %+v", info)
	}
	if info.DurationSeconds != 1422.5 || info.Language != "de" {
		t.Fatalf("unexpected media info: %+v", info)
	}
	if len(info.Formats) != 2 {
		t.Fatalf("expected 2 formats, got %d", len(info.Formats))
	}
	if got := info.Formats[0].QualityLabel(); got != "2160p" {
		t.Fatalf("expected height-derived label, got %q", got)
	}
	if got := info.Formats[1].QualityLabel(); got != "audio only" {
		t.Fatalf("expected format-note fallback, got %q", got)
	}
}

func TestInspectErrorsWithoutPayload(t *testing.T) {
	exec := &stubExecutor{lines: []string{"[Voe] Extracting URL: https://voe.sx/e/abc123"}}
	fetcher := download.NewFetcher(download.FetcherConfig{}, download.WithExecutor(exec))

	_, err := fetcher.Inspect(context.Background(), "https://voe.sx/e/abc123")
	if err == nil {
		t.Fatal("expected error when no JSON line was produced")
	}
	if !strings.Contains(err.Error(), "no json payload") {
		t.Fatalf("expected payload error, got: %v", err)
	}
}

// formatArg returns the value following "-f" in args.
func formatArg(t *testing.T, args []string) string {
	t.Helper()
	for i, a := range args {
		if a == "-f" && i+1 < len(args) {
			return args[i+1]
		}
	}
	t.Fatalf("no -f argument in %v", args)
	return ""
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
