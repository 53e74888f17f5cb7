package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"spool/internal/daemonctl"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.client()
			out := cmd.OutOrStdout()

			offset := int64(-1)
			limit := lines
			if limit <= 0 {
				limit = 200
			}
			printed := false

			for {
				resp, err := client.Logs(cmd.Context(), offset, limit, follow)
				if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
					return errors.New("daemon is not running; logs are only served by a live daemon")
				}
				if err != nil {
					return fmt.Errorf("tail logs: %w", err)
				}
				for _, line := range resp.Lines {
					fmt.Fprintln(out, line)
					printed = true
				}
				offset = resp.Offset
				if !follow {
					if !printed {
						fmt.Fprintln(out, "No log entries available")
					}
					return nil
				}
				select {
				case <-cmd.Context().Done():
					return nil
				default:
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show initially")
	return cmd
}
