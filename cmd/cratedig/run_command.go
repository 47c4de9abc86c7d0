package main

import (
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"cratedig/internal/config"
	"cratedig/internal/deps"
	"cratedig/internal/logging"
	"cratedig/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sync the catalog and fetch missing clips",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			if missing := deps.MissingRequired(deps.Check(cfg)); len(missing) > 0 {
				names := make([]string, 0, len(missing))
				for _, status := range missing {
					names = append(names, status.Name)
				}
				return fmt.Errorf("missing required dependencies: %s (see `cratedig deps`)", strings.Join(names, ", "))
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			result, err := pipeline.Run(signalCtx, cfg, logger, pipeline.Options{Workers: workers})
			if err != nil {
				return err
			}

			printRunSummary(cmd.OutOrStdout(), cfg, result)
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "Override the configured fetch worker count")
	return cmd
}

func printRunSummary(out io.Writer, cfg *config.Config, result pipeline.Result) {
	state := "unchanged"
	if result.Synced {
		state = "re-synced from the chart export"
	}
	fmt.Fprintf(out, "Catalog: %d tracks, %d drift rows (%s)\n", result.Tracks, result.DriftRows, state)

	if result.Pending == 0 {
		fmt.Fprintf(out, "Clips: all %d already present, nothing to fetch\n", result.Existing)
		return
	}

	fmt.Fprintf(out, "Clips: %d already present, %d fetched, %d failed in %s\n",
		result.Existing, result.Report.Succeeded, result.Report.FailedCount(), formatDuration(result.Duration))
	if result.Report.FailedCount() > 0 {
		fmt.Fprintf(out, "Failed source urls recorded in %s\n", cfg.ManifestPath())
	}
}
