package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"spool/internal/catalog"
	"spool/internal/daemonctl"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var seedFile string
	var series string
	var season int

	cmd := &cobra.Command{
		Use:   "add [url...]",
		Short: "Submit an episode batch for download",
		Long: "Submit episodes either from a JSON seed file (--file) or from episode\n" +
			"URLs with --series and --season. Seed files carry per-episode mirror\n" +
			"lists, dub/sub flags, and air dates.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, err := buildBatch(seedFile, series, season, args)
			if err != nil {
				return err
			}

			resp, err := ctx.client().AddBatch(cmd.Context(), batch)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				return errors.New("daemon is not running; start it with `spool start`")
			}
			var statusErr *daemonctl.StatusError
			if errors.As(err, &statusErr) && statusErr.Code == 409 {
				return errors.New("a batch is already active; wait for it to finish or run `spool cancel`")
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Batch %s submitted: %d episodes of %s\n", resp.BatchID, len(resp.Items), batch.Series)
			for _, item := range resp.Items {
				label := item.EpisodeCode
				if title := strings.TrimSpace(item.Title); title != "" {
					label += " " + title
				}
				fmt.Fprintf(out, "  #%d %s\n", item.ID, label)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&seedFile, "file", "f", "", "JSON seed file describing the batch")
	cmd.Flags().StringVar(&series, "series", "", "Series name for URL submissions")
	cmd.Flags().IntVar(&season, "season", 1, "Season number for URL submissions")
	return cmd
}

func buildBatch(seedFile, series string, season int, urls []string) (catalog.Batch, error) {
	if strings.TrimSpace(seedFile) != "" {
		if len(urls) > 0 {
			return catalog.Batch{}, errors.New("pass either --file or episode URLs, not both")
		}
		return catalog.Load(seedFile)
	}
	if len(urls) == 0 {
		return catalog.Batch{}, errors.New("nothing to submit: pass --file or episode URLs")
	}
	return catalog.FromURLs(series, season, urls)
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the active batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.client().CancelBatch(cmd.Context())
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				return errors.New("daemon is not running")
			}
			if err != nil {
				return err
			}
			if resp.Requested {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancellation requested; in-flight episodes will stop at the next checkpoint")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "No active batch")
			}
			return nil
		},
	}
}
