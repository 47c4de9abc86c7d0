package main

import (
	"path/filepath"
	"testing"

	"cratedig/internal/chart"
)

func TestCanonicalizeCommandSyncsAndSkips(t *testing.T) {
	env := setupCLITestEnv(t)
	writeChartExport(t, env.cfg,
		"https://open.spotify.com/track/aaa,Alpha,Ann",
		"https://open.spotify.com/track/aaa,Alpha (Remastered),Ann",
		"https://open.spotify.com/track/bbb,Beta,Bob",
	)

	out, _, err := runCLI(t, []string{"canonicalize"}, env.configPath)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	requireContains(t, out, "Canonicalized 3 rows into 2 tracks (2 drift rows)")

	out, _, err = runCLI(t, []string{"canonicalize"}, env.configPath)
	if err != nil {
		t.Fatalf("canonicalize again: %v", err)
	}
	requireContains(t, out, "Catalog already up to date: 2 tracks (2 drift rows)")
}

func TestCanonicalizeCommandExport(t *testing.T) {
	env := setupCLITestEnv(t)
	writeChartExport(t, env.cfg,
		"https://open.spotify.com/track/aaa,Alpha,Ann",
		"https://open.spotify.com/track/bbb,Beta,Bob",
	)

	exportPath := filepath.Join(env.baseDir, "canonical.csv")
	out, _, err := runCLI(t, []string{"canonicalize", "--export", exportPath}, env.configPath)
	if err != nil {
		t.Fatalf("canonicalize --export: %v", err)
	}
	requireContains(t, out, "Wrote 2 canonical tracks")

	records, err := chart.ReadRecordsFile(exportPath)
	if err != nil {
		t.Fatalf("read canonical export: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 canonical records, got %d", len(records))
	}
	if records[0].Title != "Alpha" || records[1].Title != "Beta" {
		t.Fatalf("unexpected canonical records: %+v", records)
	}
}
