package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cratedig/internal/catalog"
)

func newAuditCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var exportPath string

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show metadata drift recorded by the last catalog sync",
		Long: `Lists every (url, title, artist) spelling for urls that carry more
than one spelling in the chart export. These are the rows the
canonicalizer collapsed; reviewing them shows what the catalog decided.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := catalog.Open(cfg.Catalog.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			summary, err := store.Summarize(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if summary.Fingerprint == "" {
				fmt.Fprintln(out, "Catalog has not been synced yet; run `cratedig canonicalize` first")
				return nil
			}

			drift, err := store.Drift(cmd.Context())
			if err != nil {
				return err
			}
			if len(drift) == 0 {
				fmt.Fprintln(out, "No metadata drift recorded")
				return nil
			}

			shown := drift
			if limit > 0 && len(shown) > limit {
				shown = shown[:limit]
			}
			rows := make([][]string, 0, len(shown))
			for _, rec := range shown {
				rows = append(rows, []string{rec.URL, rec.Title, rec.Artist})
			}
			fmt.Fprintln(out, renderTable([]string{"URL", "Title", "Artist"}, rows))
			if len(shown) < len(drift) {
				fmt.Fprintf(out, "Showing %d of %d drift rows (use --limit 0 or --export for the full set)\n", len(shown), len(drift))
			}

			if exportPath != "" {
				if err := writeRecordsFile(exportPath, drift); err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote %d drift rows to %s\n", len(drift), exportPath)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows to print (0 shows all)")
	cmd.Flags().StringVar(&exportPath, "export", "", "Write all drift rows as CSV to this path")
	return cmd
}
