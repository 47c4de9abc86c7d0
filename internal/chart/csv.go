package chart

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cratedig/internal/services"
)

var requiredColumns = []string{"url", "title", "artist"}

// ReadRecords parses a chart export. The reader must produce CSV data with a
// header row naming at least the url, title, and artist columns; extra
// columns are ignored. A missing required column is a validation error.
func ReadRecords(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, services.Wrap(services.ErrValidation, "dataset", "read records", "export is empty", nil)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "dataset", "read records", "parse header", err)
	}

	index, missing := columnIndex(header)
	if len(missing) > 0 {
		msg := fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", "))
		return nil, services.Wrap(services.ErrValidation, "dataset", "read records", msg, nil)
	}

	records := make([]Record, 0, 1024)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "dataset", "read records", "parse row", err)
		}
		records = append(records, Record{
			URL:    row[index["url"]],
			Title:  row[index["title"]],
			Artist: row[index["artist"]],
		})
	}
	return records, nil
}

// ReadRecordsFile reads a chart export from disk.
func ReadRecordsFile(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open chart export: %w", err)
	}
	defer file.Close()
	return ReadRecords(file)
}

// WriteRecords emits records as CSV with a url, title, artist header.
func WriteRecords(w io.Writer, records []Record) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(requiredColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range records {
		if err := writer.Write([]string{rec.URL, rec.Title, rec.Artist}); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func columnIndex(header []string) (map[string]int, []string) {
	index := make(map[string]int, len(requiredColumns))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\uFEFF")
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if _, ok := index[name]; !ok {
			index[name] = i
		}
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	return index, missing
}
