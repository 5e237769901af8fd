package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"expense-gst-reconciler/pkg/errors"
	"expense-gst-reconciler/pkg/logger"
)

// LookupStats summarizes one lookup table load
type LookupStats struct {
	RowsLoaded  int `json:"rows_loaded"`
	RowsSkipped int `json:"rows_skipped"`
}

// LoadVendorLookup reads a two-column CSV of vendor name to supplier
// identifier. The file is optional upstream; callers pass an empty path to
// skip it. A present but unreadable or headerless file fails the batch,
// since silently posting without vendor resolution corrupts the output.
func LoadVendorLookup(path string) (map[string]string, *LookupStats, error) {
	return loadTwoColumnLookup(path, "vendor")
}

// LoadEmployeeLookup reads a two-column CSV of employee identifier to
// supplier identifier, with the same error policy as LoadVendorLookup.
func LoadEmployeeLookup(path string) (map[string]string, *LookupStats, error) {
	return loadTwoColumnLookup(path, "employee")
}

// loadTwoColumnLookup loads key/value pairs from the first two columns of a
// headed CSV. Rows without both values are skipped and counted.
func loadTwoColumnLookup(path, kind string) (map[string]string, *LookupStats, error) {
	log := logger.WithComponent("lookup_loader")
	stats := &LookupStats{}

	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.LookupError(kind, fmt.Sprintf("cannot open '%s'", path), err).
			WithSuggestion("check the lookup file path, or omit the flag to run without resolution")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, errors.LookupError(kind, fmt.Sprintf("'%s' has no header row", path), err)
	}
	if len(header) < 2 {
		return nil, nil, errors.LookupError(kind,
			fmt.Sprintf("'%s' needs at least two columns, got %d", path, len(header)), nil)
	}

	entries := make(map[string]string)
	line := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++

		if err != nil {
			stats.RowsSkipped++
			continue
		}
		if len(record) < 2 {
			stats.RowsSkipped++
			continue
		}

		key := strings.TrimSpace(record[0])
		value := strings.TrimSpace(record[1])
		if key == "" || value == "" {
			stats.RowsSkipped++
			continue
		}

		entries[key] = value
		stats.RowsLoaded++
	}

	log.WithFields(logger.Fields{
		"file":         path,
		"kind":         kind,
		"rows_loaded":  stats.RowsLoaded,
		"rows_skipped": stats.RowsSkipped,
	}).Info("Loaded lookup table")

	return entries, stats, nil
}
