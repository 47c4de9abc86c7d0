package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cratedig/internal/catalog"
	"cratedig/internal/config"
	"cratedig/internal/deps"
	"cratedig/internal/fetch"
	"cratedig/internal/library"
)

type statusReport struct {
	CatalogPath     string             `json:"catalog_path"`
	ClipsDir        string             `json:"clips_dir"`
	Tracks          int                `json:"tracks"`
	DriftRows       int                `json:"drift_rows"`
	SyncedAt        string             `json:"synced_at,omitempty"`
	Clips           int                `json:"clips"`
	ClipBytes       int64              `json:"clip_bytes"`
	Pending         int                `json:"pending"`
	LastRunFailures int                `json:"last_run_failures"`
	Dependencies    []dependencyStatus `json:"dependencies"`
}

type dependencyStatus struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show catalog, clip library, and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			report, err := collectStatus(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			printStatus(cmd, report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")
	return cmd
}

func collectStatus(ctx context.Context, cfg *config.Config) (statusReport, error) {
	report := statusReport{
		CatalogPath: cfg.Catalog.Path,
		ClipsDir:    cfg.Paths.ClipsDir,
	}

	store, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		return report, err
	}
	defer store.Close()

	summary, err := store.Summarize(ctx)
	if err != nil {
		return report, err
	}
	report.Tracks = summary.Tracks
	report.DriftRows = summary.DriftRows
	if !summary.SyncedAt.IsZero() {
		report.SyncedAt = summary.SyncedAt.UTC().Format(time.RFC3339)
	}

	lib := library.New(cfg.Paths.ClipsDir, cfg.Fetch.AudioFormat)
	stats, err := lib.Stats()
	if err != nil {
		return report, err
	}
	report.Clips = stats.Clips
	report.ClipBytes = stats.TotalBytes

	tracks, err := store.Tracks(ctx)
	if err != nil {
		return report, err
	}
	pending, _, err := lib.Pending(tracks)
	if err != nil {
		return report, err
	}
	report.Pending = len(pending)

	failures, err := fetch.ReadManifest(cfg.ManifestPath())
	if err != nil {
		return report, err
	}
	report.LastRunFailures = len(failures)

	for _, status := range deps.Check(cfg) {
		report.Dependencies = append(report.Dependencies, dependencyStatus{
			Name:      status.Name,
			Command:   status.Command,
			Available: status.Available,
			Detail:    status.Detail,
		})
	}
	return report, nil
}

func printStatus(cmd *cobra.Command, report statusReport) {
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)

	fmt.Fprintln(stdout, renderSectionHeader("Catalog", colorize))
	if report.Tracks > 0 {
		fmt.Fprintln(stdout, renderStatusLine("Tracks", statusOK, fmt.Sprintf("%d canonical tracks", report.Tracks), colorize))
	} else {
		fmt.Fprintln(stdout, renderStatusLine("Tracks", statusWarn, "catalog is empty", colorize))
	}
	if report.DriftRows > 0 {
		fmt.Fprintln(stdout, renderStatusLine("Drift rows", statusInfo, fmt.Sprintf("%d alternate spellings (see `cratedig audit`)", report.DriftRows), colorize))
	} else {
		fmt.Fprintln(stdout, renderStatusLine("Drift rows", statusOK, "none recorded", colorize))
	}
	if report.SyncedAt != "" {
		fmt.Fprintln(stdout, renderStatusLine("Last sync", statusOK, report.SyncedAt, colorize))
	} else {
		fmt.Fprintln(stdout, renderStatusLine("Last sync", statusWarn, "never; run `cratedig canonicalize`", colorize))
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, renderSectionHeader("Clips", colorize))
	fmt.Fprintln(stdout, renderStatusLine("Fetched", statusOK, fmt.Sprintf("%d clips (%s)", report.Clips, humanBytes(report.ClipBytes)), colorize))
	if report.Pending > 0 {
		fmt.Fprintln(stdout, renderStatusLine("Pending", statusWarn, fmt.Sprintf("%d tracks still need clips", report.Pending), colorize))
	} else {
		fmt.Fprintln(stdout, renderStatusLine("Pending", statusOK, "catalog fully fetched", colorize))
	}
	if report.LastRunFailures > 0 {
		fmt.Fprintln(stdout, renderStatusLine("Failures", statusWarn, fmt.Sprintf("%d urls failed last run", report.LastRunFailures), colorize))
	} else {
		fmt.Fprintln(stdout, renderStatusLine("Failures", statusOK, "none recorded", colorize))
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, renderSectionHeader("Dependencies", colorize))
	for _, dep := range report.Dependencies {
		if dep.Available {
			fmt.Fprintln(stdout, renderStatusLine(dep.Name, statusOK, fmt.Sprintf("Ready (command: %s)", dep.Command), colorize))
			continue
		}
		detail := dep.Detail
		if detail == "" {
			detail = "not available"
		}
		fmt.Fprintln(stdout, renderStatusLine(dep.Name, statusError, detail, colorize))
	}
}
