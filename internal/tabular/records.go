package tabular

import (
	"fmt"
	"strings"
)

// FromRecords builds a dataset from a header row and text records, the
// shape both the spreadsheet and the CSV readers produce. Cell types are
// inferred with Infer.
//
// Header cleanup:
//   - surrounding whitespace is trimmed
//   - an empty header becomes "Column_<n>"
//   - a repeated header gets a "_<k>" suffix ("Qty", "Qty_2")
//
// Rows where every cell is blank are skipped. Short rows are padded with
// empty values and cells beyond the last header are ignored.
func FromRecords(header []string, records [][]string, layouts []string) (*Dataset, error) {
	columns := CleanHeaders(header)
	ds, err := NewDataset(columns...)
	if err != nil {
		return nil, err
	}

	for _, record := range records {
		if isBlank(record) {
			continue
		}
		values := make([]Value, len(columns))
		for i := range columns {
			if i < len(record) {
				values[i] = Infer(record[i], layouts)
			}
		}
		if err := ds.Append(values...); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// CleanHeaders trims header names and makes them non-empty and unique.
func CleanHeaders(header []string) []string {
	cleaned := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}
		seen[h]++
		if n := seen[h]; n > 1 {
			h = fmt.Sprintf("%s_%d", h, n)
		}
		cleaned[i] = h
	}
	return cleaned
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
