package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"spool/internal/api"
	"spool/internal/config"
	"spool/internal/daemonctl"
	"spool/internal/preflight"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the spool daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				cmd.Context(),
				ctx.client(),
				exe,
				daemonctl.LaunchOptions{ConfigPath: ctx.configPath()},
				10*time.Second,
			)
			if err != nil {
				return err
			}

			switch result.State {
			case daemonctl.StartStateStarted:
				if result.Launched {
					fmt.Fprintln(stdout, "Daemon not running, launching...")
				}
				fmt.Fprintln(stdout, "Daemon started")
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the spool daemon (completely terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(cmd.Context(), ctx.client(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.StopAcknowledged {
				fmt.Fprintln(stdout, "Stopping daemon workflow...")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the spool daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.Restart(
				cmd.Context(),
				ctx.client(),
				exe,
				daemonctl.LaunchOptions{ConfigPath: ctx.configPath()},
				5*time.Second,
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.WasRunning {
				if result.Stop.ForcedKill && result.Stop.PID > 0 {
					fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.Stop.PID)
				}
				fmt.Fprintln(stdout, "Daemon stopped")
			}
			fmt.Fprintln(stdout, "Daemon restarted")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show system and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			snapshot, err := daemonctl.StatusSnapshot(cmd.Context(), ctx.client(), cfg)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("System Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range systemLines(cfg, snapshot, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range dependencyLines(snapshot.Dependencies, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Library Paths", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range pathLines(cfg, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			if snapshot.Batch.Active {
				for _, line := range renderSectionHeader("Active Batch", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, line := range batchLines(snapshot.Batch, colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout)
			}

			for _, line := range renderSectionHeader("Queue Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			rows := buildQueueStatusRows(snapshot.Workflow.QueueStats)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "Queue is empty")
				return nil
			}
			fmt.Fprint(stdout, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

func systemLines(cfg *config.Config, snapshot api.DaemonStatus, colorize bool) []string {
	lines := make([]string, 0, 4)
	if snapshot.Running {
		lines = append(lines, renderStatusLine("Spool", statusOK, fmt.Sprintf("Running (pid %d)", snapshot.PID), colorize))
	} else {
		lines = append(lines, renderStatusLine("Spool", statusWarn, "Not running (run `spool start`)", colorize))
	}

	if cfg == nil {
		return lines
	}

	if cfg.Debrid.Enabled {
		if strings.TrimSpace(cfg.Debrid.APIToken) == "" {
			lines = append(lines, renderStatusLine("Debrid", statusWarn, "Enabled but no API token", colorize))
		} else {
			lines = append(lines, renderStatusLine("Debrid", statusOK, "Configured", colorize))
		}
	} else {
		lines = append(lines, renderStatusLine("Debrid", statusInfo, "Disabled", colorize))
	}

	lines = append(lines, jellyfinLine(cfg, colorize))

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		lines = append(lines, renderStatusLine("Notifications", statusOK, "Configured", colorize))
	} else {
		lines = append(lines, renderStatusLine("Notifications", statusWarn, "Not configured", colorize))
	}
	return lines
}

func jellyfinLine(cfg *config.Config, colorize bool) string {
	if !cfg.Jellyfin.Enabled {
		return renderStatusLine("Jellyfin", statusInfo, "Disabled", colorize)
	}
	if strings.TrimSpace(cfg.Jellyfin.URL) == "" {
		return renderStatusLine("Jellyfin", statusWarn, "Missing URL", colorize)
	}
	if strings.TrimSpace(cfg.Jellyfin.APIKey) == "" {
		return renderStatusLine("Jellyfin", statusWarn, "Missing API key", colorize)
	}
	return renderStatusLine("Jellyfin", statusOK, "Configured", colorize)
}

func dependencyLines(deps []api.DependencyStatus, colorize bool) []string {
	if len(deps) == 0 {
		return []string{renderStatusLine("Summary", statusInfo, "No dependency checks configured", colorize)}
	}
	lines := make([]string, 0, len(deps))
	missing := make([]string, 0)
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, strings.Join(missing, ", "), colorize))
	}
	return lines
}

func pathLines(cfg *config.Config, colorize bool) []string {
	if cfg == nil {
		return nil
	}
	lines := make([]string, 0, 3)
	for _, dir := range []struct {
		label string
		path  string
	}{
		{label: "Staging", path: cfg.Paths.StagingDir},
		{label: "Library", path: cfg.Paths.LibraryDir},
		{label: "Review", path: cfg.Paths.ReviewDir},
	} {
		result := preflight.CheckDirectoryAccess(dir.label, dir.path)
		kind := statusError
		if result.Passed {
			kind = statusOK
		}
		lines = append(lines, renderStatusLine(dir.label, kind, result.Detail, colorize))
	}
	return lines
}

func batchLines(batch api.BatchStatus, colorize bool) []string {
	lines := []string{
		renderStatusLine("Series", statusInfo, batch.Title, colorize),
		renderStatusLine("Progress", statusInfo,
			fmt.Sprintf("%d/%d episodes (%.0f%%)", batch.CurrentEpisode, batch.TotalEpisodes, batch.Percent), colorize),
	}
	if batch.Message != "" {
		lines = append(lines, renderStatusLine("Last update", statusInfo, batch.Message, colorize))
	}
	if batch.CancelRequested {
		lines = append(lines, renderStatusLine("Cancel", statusWarn, "Requested", colorize))
	}
	return lines
}

// daemonExecutable locates the spoold binary, preferring the one installed
// next to the CLI.
func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	sibling := filepath.Join(filepath.Dir(exe), "spoold")
	if _, statErr := os.Stat(sibling); statErr == nil {
		return sibling, nil
	}
	path, lookErr := exec.LookPath("spoold")
	if lookErr != nil {
		return "", fmt.Errorf("locate spoold: %w", lookErr)
	}
	return path, nil
}
