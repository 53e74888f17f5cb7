package main

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"spool/internal/config"
	"spool/internal/debrid"
	"spool/internal/download"
	"spool/internal/logging"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "fetch url [mirror...]",
		Short: "Download a single episode in the foreground",
		Long: "Fetch runs one download outside the daemon queue. Additional URLs\n" +
			"are treated as mirrors and tried in order until one succeeds.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			target := strings.TrimSpace(output)
			if target == "" {
				target = outputNameFor(args[0])
			}
			absTarget, err := filepath.Abs(target)
			if err != nil {
				return err
			}

			orchestrator := buildFetchOrchestrator(cfg)

			progress := mpb.NewWithContext(cmd.Context(),
				mpb.WithWidth(64),
				mpb.WithOutput(cmd.OutOrStdout()),
			)
			bar := progress.AddBar(100,
				mpb.PrependDecorators(
					decor.Name(filepath.Base(absTarget), decor.WC{W: 30}),
				),
				mpb.AppendDecorators(
					decor.Percentage(decor.WC{W: 5}),
				),
			)

			result, runErr := orchestrator.Run(cmd.Context(), download.Task{
				Label:      filepath.Base(absTarget),
				Mirrors:    args,
				OutputPath: absTarget,
				Progress: func(update download.ProgressUpdate) {
					if update.Percent >= 0 {
						bar.SetCurrent(int64(update.Percent))
					}
				},
			})
			bar.SetTotal(100, true)
			progress.Wait()

			if runErr != nil {
				return runErr
			}
			if result.Path == "" {
				if result.Reason != "" {
					return errors.New(result.Reason)
				}
				return errors.New("no mirror produced a playable file")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (mirror %s, %d tried)\n", result.Path, result.URL, result.MirrorsTried)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (defaults to the URL basename)")
	return cmd
}

// buildFetchOrchestrator assembles a transfer pipeline without verification;
// foreground fetches are explicit user choices, not library placements.
func buildFetchOrchestrator(cfg *config.Config) *download.Orchestrator {
	opts := []download.OrchestratorOption{download.WithLogger(logging.NewNop())}
	if cfg.Debrid.Enabled && strings.TrimSpace(cfg.Debrid.APIToken) != "" {
		client := debrid.NewClient(debrid.Config{
			APIToken:          cfg.Debrid.APIToken,
			BaseURL:           cfg.Debrid.BaseURL,
			RatePerSecond:     cfg.Debrid.RatePerSecond,
			RateBurst:         cfg.Debrid.RateBurst,
			MaxRetries:        cfg.Debrid.MaxRetries,
			RetryDelaySeconds: cfg.Debrid.RetryDelaySeconds,
			TimeoutSeconds:    cfg.Debrid.RequestTimeout,
		})
		opts = append(opts, download.WithUnrestricter(client))
	}

	return download.NewOrchestrator(
		download.OrchestratorConfig{
			MaxRetries:        cfg.Downloader.MaxRetries,
			RetryDelaySeconds: cfg.Downloader.RetryDelaySeconds,
			UnrestrictHosts:   cfg.Debrid.Hosts,
		},
		download.NewFetcher(download.FetcherConfigFrom(cfg)),
		opts...,
	)
}

func outputNameFor(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err == nil {
		if base := path.Base(parsed.Path); base != "" && base != "/" && base != "." {
			return base
		}
	}
	return "episode.mp4"
}
