package download_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"spool/internal/debrid"
	"spool/internal/download"
	"spool/internal/verify"
)

// fileCreatingFetcher answers Fetch with the scripted errors in call order
// and writes the output file on success so the post-transfer existence
// check passes. Calls beyond the errs list succeed.
type fileCreatingFetcher struct {
	errs   []error
	reqs   []download.FetchRequest
	onCall func(call int)
}

func (f *fileCreatingFetcher) Fetch(ctx context.Context, req download.FetchRequest) error {
	f.reqs = append(f.reqs, req)
	call := len(f.reqs)
	if f.onCall != nil {
		f.onCall(call)
	}
	if call <= len(f.errs) && f.errs[call-1] != nil {
		return f.errs[call-1]
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(req.OutputPath, []byte("video"), 0o644)
}

type stubUnrestricter struct {
	download string
	err      error
	calls    []string
}

func (s *stubUnrestricter) Unrestrict(ctx context.Context, link string) (debrid.UnrestrictedLink, error) {
	s.calls = append(s.calls, link)
	if s.err != nil {
		return debrid.UnrestrictedLink{}, s.err
	}
	return debrid.UnrestrictedLink{Link: link, Download: s.download}, nil
}

// scriptedVerifier returns the queued outcomes in call order; past the end
// it accepts on the container tag.
type scriptedVerifier struct {
	outcomes []verify.Outcome
	paths    []string
}

func (s *scriptedVerifier) Verify(ctx context.Context, path string, opts verify.Options) verify.Outcome {
	s.paths = append(s.paths, path)
	if len(s.paths) <= len(s.outcomes) {
		return s.outcomes[len(s.paths)-1]
	}
	return verify.Outcome{Accepted: true, Reason: verify.ReasonTagMatch}
}

func TestRunFirstMirrorAccepted(t *testing.T) {
	out := filepath.Join(t.TempDir(), "S01E05.mp4")
	fetch := &fileCreatingFetcher{}
	ver := &scriptedVerifier{}
	orch := download.NewOrchestrator(download.OrchestratorConfig{}, fetch, download.WithVerifier(ver))

	var updates []download.ProgressUpdate
	res, err := orch.Run(context.Background(), download.Task{
		Label:      "S01E05 Pilot",
		Mirrors:    []string{"https://cdn-a.example/v1", "https://cdn-b.example/v2"},
		OutputPath: out,
		Progress:   func(u download.ProgressUpdate) { updates = append(updates, u) },
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Path != out || res.URL != "https://cdn-a.example/v1" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.MirrorsTried != 1 || res.Reason != verify.ReasonTagMatch {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(fetch.reqs) != 1 {
		t.Fatalf("expected 1 fetch, got %d", len(fetch.reqs))
	}
	if len(ver.paths) != 1 || ver.paths[0] != out {
		t.Fatalf("expected verification of %q, got %v", out, ver.paths)
	}
	if len(updates) == 0 || updates[0].Message != "mirror 1/2" {
		t.Fatalf("expected mirror announcement first, got %+v", updates)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
}

func TestRunAdvancesMirrorOnRejection(t *testing.T) {
	tmp := t.TempDir()
	out := filepath.Join(tmp, "S01E05.mp4")
	repaired := filepath.Join(tmp, "S01E05.de.mp4")
	if err := os.WriteFile(repaired, []byte("copy"), 0o644); err != nil {
		t.Fatalf("seed repaired copy: %v", err)
	}

	fetch := &fileCreatingFetcher{}
	ver := &scriptedVerifier{outcomes: []verify.Outcome{
		{Reason: "mismatch:en", RepairedPath: repaired, Detected: "en"},
	}}
	orch := download.NewOrchestrator(download.OrchestratorConfig{}, fetch, download.WithVerifier(ver))

	res, err := orch.Run(context.Background(), download.Task{
		Mirrors:    []string{"https://cdn-a.example/v1", "https://cdn-b.example/v2"},
		OutputPath: out,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.URL != "https://cdn-b.example/v2" || res.MirrorsTried != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.KeptPath != "" {
		t.Fatalf("did not expect kept file, got %q", res.KeptPath)
	}
	if len(fetch.reqs) != 2 {
		t.Fatalf("expected 2 fetches, got %d", len(fetch.reqs))
	}
	if _, err := os.Stat(repaired); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected repaired copy removal, got err=%v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected second transfer output: %v", err)
	}
}

func TestRunClearsPartialBeforeNextMirror(t *testing.T) {
	out := filepath.Join(t.TempDir(), "S01E05.mp4")
	part := out + ".part"

	var secondSawLeftovers []string
	fetch := &fileCreatingFetcher{errs: []error{errors.New("connection reset")}}
	fetch.onCall = func(call int) {
		switch call {
		case 1:
			// Simulate a transfer dying mid-stream with a resume artifact
			// on disk.
			if err := os.WriteFile(part, []byte("half"), 0o644); err != nil {
				t.Fatalf("seed partial: %v", err)
			}
		case 2:
			for _, path := range []string{out, part} {
				if _, err := os.Stat(path); err == nil {
					secondSawLeftovers = append(secondSawLeftovers, path)
				}
			}
		}
	}
	orch := download.NewOrchestrator(download.OrchestratorConfig{MaxRetries: 1}, fetch,
		download.WithVerifier(&scriptedVerifier{}))

	res, err := orch.Run(context.Background(), download.Task{
		Mirrors:    []string{"https://cdn-a.example/v1", "https://cdn-b.example/v2"},
		OutputPath: out,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.URL != "https://cdn-b.example/v2" || res.MirrorsTried != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(secondSawLeftovers) != 0 {
		t.Fatalf("second mirror started over leftovers: %v", secondSawLeftovers)
	}
	if _, err := os.Stat(part); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected partial removal, got err=%v", err)
	}
}

func TestRunRetriesWithBackoff(t *testing.T) {
	out := filepath.Join(t.TempDir(), "ep.mp4")
	fetch := &fileCreatingFetcher{errs: []error{
		errors.New("connection reset"),
		errors.New("connection reset"),
	}}
	var delays []time.Duration
	orch := download.NewOrchestrator(download.OrchestratorConfig{}, fetch,
		download.WithSleeper(func(d time.Duration) { delays = append(delays, d) }))

	res, err := orch.Run(context.Background(), download.Task{
		Mirrors:    []string{"https://cdn.example/v1"},
		OutputPath: out,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Path != out {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(fetch.reqs) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(fetch.reqs))
	}
	if len(delays) != 2 || delays[0] != 5*time.Second || delays[1] != 10*time.Second {
		t.Fatalf("expected doubling backoff [5s 10s], got %v", delays)
	}
}

func TestRunUnavailableSkipsRetries(t *testing.T) {
	out := filepath.Join(t.TempDir(), "ep.mp4")
	fetch := &fileCreatingFetcher{errs: []error{
		fmt.Errorf("%w: gone for good", download.ErrUnavailable),
	}}
	var delays []time.Duration
	orch := download.NewOrchestrator(download.OrchestratorConfig{}, fetch,
		download.WithSleeper(func(d time.Duration) { delays = append(delays, d) }))

	res, err := orch.Run(context.Background(), download.Task{
		Mirrors:    []string{"https://cdn-a.example/v1", "https://cdn-b.example/v2"},
		OutputPath: out,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.URL != "https://cdn-b.example/v2" || res.MirrorsTried != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(fetch.reqs) != 2 {
		t.Fatalf("expected 1 attempt per mirror, got %d", len(fetch.reqs))
	}
	if len(delays) != 0 {
		t.Fatalf("expected no retry sleeps, got %v", delays)
	}
}

func TestRunResolvesThroughUnrestrict(t *testing.T) {
	out := filepath.Join(t.TempDir(), "ep.mp4")
	fetch := &fileCreatingFetcher{}
	un := &stubUnrestricter{download: "https://proxy.example/dl/abc.mp4"}
	orch := download.NewOrchestrator(download.OrchestratorConfig{
		UnrestrictHosts: []string{"files.example"},
	}, fetch, download.WithUnrestricter(un))

	var updates []download.ProgressUpdate
	res, err := orch.Run(context.Background(), download.Task{
		Mirrors:    []string{"https://files.example/f/abc"},
		OutputPath: out,
		Progress:   func(u download.ProgressUpdate) { updates = append(updates, u) },
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(un.calls) != 1 || un.calls[0] != "https://files.example/f/abc" {
		t.Fatalf("unexpected unrestrict calls: %v", un.calls)
	}
	if len(fetch.reqs) != 1 || fetch.reqs[0].URL != "https://proxy.example/dl/abc.mp4" {
		t.Fatalf("expected fetch of resolved link, got %+v", fetch.reqs)
	}
	if res.URL != "https://files.example/f/abc" {
		t.Fatalf("expected result to name the mirror, got %q", res.URL)
	}
	if !hasStage(updates, download.StageUnrestrict) {
		t.Fatalf("expected unrestrict progress stage, got %+v", updates)
	}
}

func TestRunSkipsUnrestrictForUnknownHost(t *testing.T) {
	out := filepath.Join(t.TempDir(), "ep.mp4")
	fetch := &fileCreatingFetcher{}
	un := &stubUnrestricter{download: "https://proxy.example/dl/abc.mp4"}
	orch := download.NewOrchestrator(download.OrchestratorConfig{
		UnrestrictHosts: []string{"files.example"},
	}, fetch, download.WithUnrestricter(un))

	_, err := orch.Run(context.Background(), download.Task{
		Mirrors:    []string{"https://other.example/f/abc"},
		OutputPath: out,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(un.calls) != 0 {
		t.Fatalf("expected no unrestrict calls, got %v", un.calls)
	}
	if len(fetch.reqs) != 1 || fetch.reqs[0].URL != "https://other.example/f/abc" {
		t.Fatalf("expected direct fetch of mirror, got %+v", fetch.reqs)
	}
}

func TestRunUnrestrictAllResolvesEveryHost(t *testing.T) {
	out := filepath.Join(t.TempDir(), "ep.mp4")
	fetch := &fileCreatingFetcher{}
	un := &stubUnrestricter{download: "https://proxy.example/dl/abc.mp4"}
	orch := download.NewOrchestrator(download.OrchestratorConfig{
		UnrestrictAll: true,
	}, fetch, download.WithUnrestricter(un))

	_, err := orch.Run(context.Background(), download.Task{
		Mirrors:    []string{"https://other.example/f/abc"},
		OutputPath: out,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(un.calls) != 1 {
		t.Fatalf("expected unrestrict call, got %v", un.calls)
	}
	if len(fetch.reqs) != 1 || fetch.reqs[0].URL != "https://proxy.example/dl/abc.mp4" {
		t.Fatalf("expected fetch of resolved link, got %+v", fetch.reqs)
	}
}

func TestRunDemotesAfterUnrestrictFailure(t *testing.T) {
	out := filepath.Join(t.TempDir(), "ep.mp4")
	fetch := &fileCreatingFetcher{}
	un := &stubUnrestricter{err: errors.New("service down")}
	var delays []time.Duration
	orch := download.NewOrchestrator(download.OrchestratorConfig{
		MaxRetries:      2,
		UnrestrictHosts: []string{"files.example"},
	}, fetch,
		download.WithUnrestricter(un),
		download.WithSleeper(func(d time.Duration) { delays = append(delays, d) }))

	res, err := orch.Run(context.Background(), download.Task{
		Mirrors:    []string{"https://files.example/f/abc"},
		OutputPath: out,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Path != out {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(un.calls) != 1 {
		t.Fatalf("expected a single unrestrict attempt, got %v", un.calls)
	}
	// The failed resolution consumed the first attempt; the direct fetch is
	// the second and last.
	if len(fetch.reqs) != 1 || fetch.reqs[0].URL != "https://files.example/f/abc" {
		t.Fatalf("expected one direct fetch of the mirror, got %+v", fetch.reqs)
	}
	if len(delays) != 1 || delays[0] != 5*time.Second {
		t.Fatalf("expected one retry sleep, got %v", delays)
	}
}

func TestRunVOEFallbackAfterExhaustion(t *testing.T) {
	out := filepath.Join(t.TempDir(), "ep.mp4")
	fetch := &fileCreatingFetcher{errs: []error{
		errors.New("connection reset"),
		errors.New("connection reset"),
	}}
	orch := download.NewOrchestrator(download.OrchestratorConfig{MaxRetries: 2}, fetch,
		download.WithSleeper(func(time.Duration) {}))

	var updates []download.ProgressUpdate
	res, err := orch.Run(context.Background(), download.Task{
		Mirrors:    []string{"https://voe.sx/e/abc123"},
		OutputPath: out,
		Progress:   func(u download.ProgressUpdate) { updates = append(updates, u) },
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Path != out {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(fetch.reqs) != 3 {
		t.Fatalf("expected 2 attempts plus fallback, got %d", len(fetch.reqs))
	}
	if fetch.reqs[0].Referer != "" || fetch.reqs[0].Format != "" {
		t.Fatalf("expected plain first attempt, got %+v", fetch.reqs[0])
	}
	last := fetch.reqs[2]
	if last.Format != "best" || last.Referer != "https://voe.sx/" {
		t.Fatalf("expected voe fallback request, got %+v", last)
	}
	if !strings.Contains(last.UserAgent, "Chrome/") {
		t.Fatalf("expected browser user agent, got %q", last.UserAgent)
	}
	if last.Headers["Origin"] != "https://voe.sx" {
		t.Fatalf("expected origin header, got %v", last.Headers)
	}
	if !hasStage(updates, download.StageFallback) {
		t.Fatalf("expected fallback progress stage, got %+v", updates)
	}
}

func TestRunVOEFallbackAfterUnrestrictFailure(t *testing.T) {
	out := filepath.Join(t.TempDir(), "ep.mp4")
	fetch := &fileCreatingFetcher{}
	un := &stubUnrestricter{err: errors.New("hoster down")}
	var delays []time.Duration
	orch := download.NewOrchestrator(download.OrchestratorConfig{
		MaxRetries:      3,
		UnrestrictHosts: []string{"voe.sx"},
	}, fetch,
		download.WithUnrestricter(un),
		download.WithSleeper(func(d time.Duration) { delays = append(delays, d) }))

	res, err := orch.Run(context.Background(), download.Task{
		Mirrors:    []string{"https://voe.sx/e/abc123"},
		OutputPath: out,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Path != out {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(un.calls) != 1 {
		t.Fatalf("expected a single unrestrict attempt, got %v", un.calls)
	}
	if len(fetch.reqs) != 1 || fetch.reqs[0].Referer != "https://voe.sx/" {
		t.Fatalf("expected immediate voe fallback, got %+v", fetch.reqs)
	}
	if len(delays) != 0 {
		t.Fatalf("expected no retry sleeps, got %v", delays)
	}
}

func TestRunExhaustionReason(t *testing.T) {
	out := filepath.Join(t.TempDir(), "ep.mp4")
	fetch := &fileCreatingFetcher{errs: []error{
		errors.New("connection reset"),
		errors.New("connection reset"),
	}}
	orch := download.NewOrchestrator(download.OrchestratorConfig{
		MaxRetries: 2,
		Verify:     verify.Options{DesiredLangs: []string{"deu"}},
	}, fetch, download.WithSleeper(func(time.Duration) {}))

	res, err := orch.Run(context.Background(), download.Task{
		Mirrors:    []string{"https://cdn.example/v1"},
		OutputPath: out,
	})
	if !errors.Is(err, download.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got: %v", err)
	}
	if res.Reason != "no-valid-de-source" {
		t.Fatalf("expected exhaustion reason, got %q", res.Reason)
	}
	if res.MirrorsTried != 1 {
		t.Fatalf("expected 1 mirror tried, got %d", res.MirrorsTried)
	}
}

func TestRunKeepsLastMismatchForReview(t *testing.T) {
	tmp := t.TempDir()
	out := filepath.Join(tmp, "S01E05.mp4")
	repaired := filepath.Join(tmp, "S01E05.de.mp4")
	if err := os.WriteFile(repaired, []byte("copy"), 0o644); err != nil {
		t.Fatalf("seed repaired copy: %v", err)
	}

	fetch := &fileCreatingFetcher{}
	ver := &scriptedVerifier{outcomes: []verify.Outcome{
		{Reason: "mismatch:en", RepairedPath: repaired, Detected: "en"},
	}}
	orch := download.NewOrchestrator(download.OrchestratorConfig{
		KeepMismatch: true,
		Verify:       verify.Options{DesiredLangs: []string{"de"}},
	}, fetch, download.WithVerifier(ver))

	res, err := orch.Run(context.Background(), download.Task{
		Mirrors:    []string{"https://cdn.example/v1"},
		OutputPath: out,
	})
	if !errors.Is(err, download.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got: %v", err)
	}
	if res.KeptPath != out || res.KeptReason != "mismatch:en" {
		t.Fatalf("expected kept mismatch, got %+v", res)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected original to survive for review: %v", err)
	}
	if _, err := os.Stat(repaired); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected repaired copy removal, got err=%v", err)
	}
}

func TestRunKeepMismatchIgnoresUnreadableFiles(t *testing.T) {
	out := filepath.Join(t.TempDir(), "ep.mp4")
	fetch := &fileCreatingFetcher{}
	ver := &scriptedVerifier{outcomes: []verify.Outcome{
		{Reason: "ffprobe-error: moov atom not found"},
	}}
	orch := download.NewOrchestrator(download.OrchestratorConfig{
		KeepMismatch: true,
	}, fetch, download.WithVerifier(ver))

	res, err := orch.Run(context.Background(), download.Task{
		Mirrors:    []string{"https://cdn.example/v1"},
		OutputPath: out,
	})
	if !errors.Is(err, download.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got: %v", err)
	}
	if res.KeptPath != "" {
		t.Fatalf("did not expect unreadable file to be kept, got %q", res.KeptPath)
	}
	if _, err := os.Stat(out); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected rejected file removal, got err=%v", err)
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	fetch := &fileCreatingFetcher{}
	orch := download.NewOrchestrator(download.OrchestratorConfig{}, fetch,
		download.WithCancelCheck(func() bool { return true }))

	_, err := orch.Run(context.Background(), download.Task{
		Mirrors:    []string{"https://cdn.example/v1"},
		OutputPath: filepath.Join(t.TempDir(), "ep.mp4"),
	})
	if !errors.Is(err, download.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got: %v", err)
	}
	if len(fetch.reqs) != 0 {
		t.Fatalf("expected no fetches, got %d", len(fetch.reqs))
	}
}

func TestRunCancelledBeforeRetrySleep(t *testing.T) {
	var cancelled bool
	fetch := &fileCreatingFetcher{
		errs: []error{errors.New("connection reset")},
	}
	fetch.onCall = func(int) { cancelled = true }
	var delays []time.Duration
	orch := download.NewOrchestrator(download.OrchestratorConfig{}, fetch,
		download.WithCancelCheck(func() bool { return cancelled }),
		download.WithSleeper(func(d time.Duration) { delays = append(delays, d) }))

	_, err := orch.Run(context.Background(), download.Task{
		Mirrors:    []string{"https://cdn.example/v1"},
		OutputPath: filepath.Join(t.TempDir(), "ep.mp4"),
	})
	if !errors.Is(err, download.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got: %v", err)
	}
	if len(fetch.reqs) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(fetch.reqs))
	}
	if len(delays) != 0 {
		t.Fatalf("expected cancellation before the retry sleep, got %v", delays)
	}
}

func TestRunSkipsVerificationWhenDisabled(t *testing.T) {
	out := filepath.Join(t.TempDir(), "ep.mp4")
	fetch := &fileCreatingFetcher{}
	orch := download.NewOrchestrator(download.OrchestratorConfig{}, fetch)

	res, err := orch.Run(context.Background(), download.Task{
		Mirrors:    []string{"https://cdn.example/v1"},
		OutputPath: out,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Path != out || res.Reason != "" || res.Detected != "" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRunRecordsUnsupportedHostOnce(t *testing.T) {
	out := filepath.Join(t.TempDir(), "ep.mp4")
	ulog, err := download.NewUnsupportedLog(t.TempDir())
	if err != nil {
		t.Fatalf("NewUnsupportedLog returned error: %v", err)
	}
	unsupported := fmt.Errorf("%w: ERROR: Unsupported URL: https://weirdhost.example/watch/5", download.ErrUnsupportedURL)
	fetch := &fileCreatingFetcher{errs: []error{unsupported, unsupported}}
	orch := download.NewOrchestrator(download.OrchestratorConfig{MaxRetries: 2}, fetch,
		download.WithUnsupportedLog(ulog),
		download.WithSleeper(func(time.Duration) {}))

	_, err = orch.Run(context.Background(), download.Task{
		Mirrors:    []string{"https://weirdhost.example/watch/5"},
		OutputPath: out,
	})
	if !errors.Is(err, download.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got: %v", err)
	}
	if len(fetch.reqs) != 2 {
		t.Fatalf("expected unsupported URL to stay retryable, got %d attempts", len(fetch.reqs))
	}

	data, err := os.ReadFile(ulog.Path())
	if err != nil {
		t.Fatalf("read unsupported log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected a single deduplicated entry, got %q", lines)
	}
	if !strings.Contains(lines[0], "weirdhost.example") {
		t.Fatalf("expected host in log entry, got %q", lines[0])
	}
}

func TestRunRequiresMirrorsAndOutput(t *testing.T) {
	orch := download.NewOrchestrator(download.OrchestratorConfig{}, &fileCreatingFetcher{})

	if _, err := orch.Run(context.Background(), download.Task{OutputPath: "ep.mp4"}); err == nil {
		t.Fatal("expected error for empty mirror list")
	}
	if _, err := orch.Run(context.Background(), download.Task{Mirrors: []string{"https://a.example/v"}}); err == nil {
		t.Fatal("expected error for missing output path")
	}
}

func hasStage(updates []download.ProgressUpdate, stage string) bool {
	for _, u := range updates {
		if u.Stage == stage {
			return true
		}
	}
	return false
}
