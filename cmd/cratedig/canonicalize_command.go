package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"cratedig/internal/catalog"
	"cratedig/internal/chart"
	"cratedig/internal/dataset"
	"cratedig/internal/fileutil"
	"cratedig/internal/logging"
	"cratedig/internal/pipeline"
)

func newCanonicalizeCommand(ctx *commandContext) *cobra.Command {
	var exportPath string

	cmd := &cobra.Command{
		Use:   "canonicalize",
		Short: "Rebuild the canonical track catalog from the chart export",
		Long: `Downloads the chart export if it is not cached, collapses duplicate
urls and re-released tracks into one canonical row each, and stores the
result in the catalog database. The export is only re-processed when it
changed since the last sync.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			source := dataset.NewManager(cfg, logger)
			exportFile, err := source.Ensure(cmd.Context())
			if err != nil {
				return err
			}

			store, err := catalog.Open(cfg.Catalog.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			result, err := pipeline.SyncCatalog(cmd.Context(), store, exportFile, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.Synced {
				fmt.Fprintf(out, "Canonicalized %d rows into %d tracks (%d drift rows)\n",
					result.RawRows, len(result.Tracks), len(result.Drift))
			} else {
				fmt.Fprintf(out, "Catalog already up to date: %d tracks (%d drift rows)\n",
					len(result.Tracks), len(result.Drift))
			}

			if exportPath != "" {
				if err := writeRecordsFile(exportPath, result.Tracks); err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote %d canonical tracks to %s\n", len(result.Tracks), exportPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&exportPath, "export", "", "Write the canonical tracks as CSV to this path")
	return cmd
}

func writeRecordsFile(path string, records []chart.Record) error {
	err := fileutil.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		return chart.WriteRecords(w, records)
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
