package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"spool/internal/config"
	"spool/internal/daemon"
	"spool/internal/logging"
	"spool/internal/queue"
	"spool/internal/stage"
	"spool/internal/status"
	"spool/internal/testsupport"
	"spool/internal/workflow"
)

type idleHandler struct{ name string }

func (h idleHandler) Prepare(context.Context, *queue.Item) error { return nil }
func (h idleHandler) Execute(context.Context, *queue.Item) error { return nil }
func (h idleHandler) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(h.name)
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	daemon     *daemon.Daemon
	apiAddr    string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)

	coord := status.New()
	stages := workflow.StageSet{
		Extractor: idleHandler{name: "extract"},
		Transfer:  idleHandler{name: "transfer"},
		Organizer: idleHandler{name: "organizer"},
	}
	// Workers poll once at startup and then sleep; the long interval keeps
	// them from consuming items submitted by the tests.
	mgr := workflow.NewManager(cfg, store, stages, logging.NewNop(),
		workflow.WithCoordinator(coord),
		workflow.WithPollInterval(time.Hour))

	d, err := daemon.New(cfg, store, logging.NewNop(), mgr, coord)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	t.Cleanup(func() {
		d.Stop()
	})

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		apiAddr:    d.APIAddr(),
		configPath: configPath,
	}
}

func runCLI(t *testing.T, args []string, apiAddr, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if apiAddr != "" {
		flags = append(flags, "--api", apiAddr)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nstaging_dir = %q\nlibrary_dir = %q\nreview_dir = %q\nlog_dir = %q\napi_bind = %q\n",
		cfg.Paths.StagingDir,
		cfg.Paths.LibraryDir,
		cfg.Paths.ReviewDir,
		cfg.Paths.LogDir,
		cfg.Paths.APIBind,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
