// Package daemonctl drives a running spoold instance through its HTTP API
// and handles daemon process lifecycle for the CLI.
package daemonctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"spool/internal/api"
	"spool/internal/catalog"
	"spool/internal/config"
	"spool/internal/deps"
	"spool/internal/queue"
)

// ErrDaemonNotRunning indicates the daemon API is unreachable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// Client talks to the daemon HTTP API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// New builds a client for the given bind address. The address may be a bare
// host:port or a full http URL.
func New(address, token string) *Client {
	address = strings.TrimSpace(address)
	if address != "" && !strings.Contains(address, "://") {
		address = "http://" + address
	}
	return &Client{
		baseURL: strings.TrimRight(address, "/"),
		token:   strings.TrimSpace(token),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// NewFromConfig builds a client for the configured API bind address.
func NewFromConfig(cfg *config.Config) *Client {
	if cfg == nil {
		return New("", "")
	}
	return New(cfg.Paths.APIBind, cfg.Paths.APIToken)
}

// BaseURL reports the resolved API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Status fetches the daemon runtime snapshot.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var out api.DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &out)
	return out, err
}

// Health fetches queue health counters.
func (c *Client) Health(ctx context.Context) (queue.HealthSummary, error) {
	var out queue.HealthSummary
	err := c.do(ctx, http.MethodGet, "/api/health", nil, &out)
	return out, err
}

// Queue lists queue items, optionally filtered by status.
func (c *Client) Queue(ctx context.Context, statuses ...string) ([]api.QueueItem, error) {
	path := "/api/queue"
	if len(statuses) > 0 {
		values := url.Values{}
		for _, status := range statuses {
			if trimmed := strings.TrimSpace(status); trimmed != "" {
				values.Add("status", trimmed)
			}
		}
		if encoded := values.Encode(); encoded != "" {
			path += "?" + encoded
		}
	}
	var out api.QueueListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// QueueItem fetches a single queue entry by id.
func (c *Client) QueueItem(ctx context.Context, id int64) (api.QueueItem, error) {
	var out api.QueueItemResponse
	err := c.do(ctx, http.MethodGet, "/api/queue/"+strconv.FormatInt(id, 10), nil, &out)
	return out.Item, err
}

type idsPayload struct {
	IDs []int64 `json:"ids"`
}

// Retry requeues failed items. An empty id list retries every failed item.
func (c *Client) Retry(ctx context.Context, ids []int64) (api.RetryItemsResult, error) {
	var out api.RetryItemsResult
	err := c.do(ctx, http.MethodPost, "/api/queue/retry", idsPayload{IDs: ids}, &out)
	return out, err
}

// Stop routes the given items to review so workers release them.
func (c *Client) Stop(ctx context.Context, ids []int64) (api.StopItemsResult, error) {
	var out api.StopItemsResult
	err := c.do(ctx, http.MethodPost, "/api/queue/stop", idsPayload{IDs: ids}, &out)
	return out, err
}

// Remove deletes the given items from the queue.
func (c *Client) Remove(ctx context.Context, ids []int64) (api.RemoveItemsResult, error) {
	var out api.RemoveItemsResult
	err := c.do(ctx, http.MethodPost, "/api/queue/remove", idsPayload{IDs: ids}, &out)
	return out, err
}

// Clear removes queue entries by scope: "all", "completed", or "failed".
func (c *Client) Clear(ctx context.Context, scope string) (int64, error) {
	path := "/api/queue/clear"
	if scope = strings.TrimSpace(scope); scope != "" {
		path += "?scope=" + url.QueryEscape(scope)
	}
	var out map[string]int64
	if err := c.do(ctx, http.MethodPost, path, idsPayload{}, &out); err != nil {
		return 0, err
	}
	return out["removed"], nil
}

// AddBatch submits an episode batch for processing.
func (c *Client) AddBatch(ctx context.Context, batch catalog.Batch) (api.AddBatchResponse, error) {
	var out api.AddBatchResponse
	err := c.do(ctx, http.MethodPost, "/api/batch", batch, &out)
	return out, err
}

// CancelBatch requests cancellation of the active batch.
func (c *Client) CancelBatch(ctx context.Context) (api.CancelBatchResponse, error) {
	var out api.CancelBatchResponse
	err := c.do(ctx, http.MethodPost, "/api/batch/cancel", idsPayload{}, &out)
	return out, err
}

// Logs tails the daemon log file. A negative offset starts from the end.
func (c *Client) Logs(ctx context.Context, offset int64, limit int, follow bool) (api.LogTailResponse, error) {
	values := url.Values{}
	if offset >= 0 {
		values.Set("offset", strconv.FormatInt(offset, 10))
	}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	if follow {
		values.Set("follow", "1")
	}
	path := "/api/logs"
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var out api.LogTailResponse
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Shutdown asks the daemon to stop. The daemon acknowledges before exiting.
func (c *Client) Shutdown(ctx context.Context) error {
	var out map[string]bool
	return c.do(ctx, http.MethodPost, "/api/shutdown", idsPayload{}, &out)
}

// StatusError carries an API error response with its HTTP status code.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("daemon API error (status %d)", e.Code)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c == nil || c.baseURL == "" {
		return errors.New("daemon API address not configured")
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if isConnectionRefused(err) {
			return fmt.Errorf("%w: %s unreachable", ErrDaemonNotRunning, c.baseURL)
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &StatusError{Code: resp.StatusCode, Message: payload.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func isConnectionRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, os.ErrNotExist)
}

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
}

// Launch starts a detached spoold process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return errors.New("resolve executable: executable path is empty")
	}

	var args []string
	if cfgPath := strings.TrimSpace(opts.ConfigPath); cfgPath != "" {
		args = append(args, "--config", cfgPath)
	}

	proc := exec.Command(executablePath, args...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForReady polls the daemon API until it reports running or the timeout
// elapses.
func WaitForReady(ctx context.Context, client *Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		status, err := client.Status(ctx)
		if err == nil && status.Running {
			return nil
		}
		if err != nil {
			lastErr = err
		}
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = errors.New("timeout waiting for daemon")
	}
	return fmt.Errorf("daemon failed to start: %w", lastErr)
}

// StartState names the outcome of a start request.
type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State    StartState
	Launched bool
}

// EnsureStarted launches the daemon process if it is not already serving.
func EnsureStarted(ctx context.Context, client *Client, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	status, err := client.Status(ctx)
	if err == nil && status.Running {
		return StartResult{State: StartStateAlreadyRunning}, nil
	}
	if err != nil && !errors.Is(err, ErrDaemonNotRunning) {
		return StartResult{}, err
	}

	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}
	if err := WaitForReady(ctx, client, waitTimeout); err != nil {
		return StartResult{}, err
	}
	return StartResult{State: StartStateStarted, Launched: true}, nil
}

// WaitForShutdown polls until the daemon API becomes unreachable.
func WaitForShutdown(ctx context.Context, client *Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		status, err := client.Status(ctx)
		if errors.Is(err, ErrDaemonNotRunning) {
			return nil
		}
		if err == nil && !status.Running {
			return nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = errors.New("daemon still running")
		}
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = errors.New("timeout waiting for shutdown")
	}
	return fmt.Errorf("daemon did not stop: %w", lastErr)
}

// ProcessInfo reports whether the daemon API is reachable and the daemon PID
// when available.
func ProcessInfo(ctx context.Context, client *Client) (bool, int, error) {
	status, err := client.Status(ctx)
	if errors.Is(err, ErrDaemonNotRunning) {
		return false, 0, nil
	}
	if err != nil {
		return true, 0, err
	}
	return true, status.PID, nil
}

// ForceKillProcess sends SIGKILL to the daemon process and removes its lock
// file.
func ForceKillProcess(pid int, lockPath string) error {
	if pid <= 0 {
		return errors.New("unable to determine daemon pid")
	}
	if pid == os.Getpid() {
		return fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if lockPath != "" {
		_ = os.Remove(lockPath)
	}
	return nil
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	StopAcknowledged bool
	ForcedKill       bool
	PID              int
}

// RestartResult captures stop/start outcomes for a daemon restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// StopAndTerminate requests a graceful stop and force-kills the process if it
// is still serving after the grace period.
func StopAndTerminate(ctx context.Context, client *Client, gracePeriod time.Duration) (StopResult, error) {
	status, err := client.Status(ctx)
	if errors.Is(err, ErrDaemonNotRunning) {
		return StopResult{}, ErrDaemonNotRunning
	}
	if err != nil {
		return StopResult{}, err
	}

	result := StopResult{PID: status.PID}
	if err := client.Shutdown(ctx); err != nil && !errors.Is(err, ErrDaemonNotRunning) {
		return result, err
	}
	result.StopAcknowledged = true

	if WaitForShutdown(ctx, client, gracePeriod) == nil {
		return result, nil
	}

	if err := ForceKillProcess(status.PID, status.LockFilePath); err != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", err)
	}
	result.ForcedKill = true
	return result, nil
}

// Restart stops the daemon if running, then ensures it is started.
func Restart(ctx context.Context, client *Client, executablePath string, opts LaunchOptions, stopGracePeriod, startWaitTimeout time.Duration) (RestartResult, error) {
	stopResult, stopErr := StopAndTerminate(ctx, client, stopGracePeriod)
	if stopErr != nil && !errors.Is(stopErr, ErrDaemonNotRunning) {
		return RestartResult{}, stopErr
	}

	startResult, err := EnsureStarted(ctx, client, executablePath, opts, startWaitTimeout)
	if err != nil {
		return RestartResult{}, err
	}

	return RestartResult{
		WasRunning: stopErr == nil,
		Stop:       stopResult,
		Start:      startResult,
	}, nil
}

// StatusSnapshot returns the daemon status, falling back to direct queue and
// dependency inspection when the daemon is not running.
func StatusSnapshot(ctx context.Context, client *Client, cfg *config.Config) (api.DaemonStatus, error) {
	status, err := client.Status(ctx)
	if err == nil {
		return status, nil
	}
	if !errors.Is(err, ErrDaemonNotRunning) {
		return api.DaemonStatus{}, err
	}
	if cfg == nil {
		return api.DaemonStatus{}, errors.New("configuration not available")
	}

	snapshot := api.DaemonStatus{
		QueueDBPath:  filepath.Join(cfg.Paths.LogDir, "queue.db"),
		LockFilePath: filepath.Join(cfg.Paths.LogDir, "spoold.lock"),
		Dependencies: api.FromDependencyStatuses(deps.CheckBinaries(deps.Required(cfg))),
	}

	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	store, openErr := queue.Open(cfg)
	if openErr == nil {
		if stats, statsErr := store.Stats(queryCtx); statsErr == nil {
			snapshot.Workflow.QueueStats = api.MergeQueueStats(stats)
		}
		_ = store.Close()
	}
	return snapshot, nil
}
