// =============================================================================
// Excel to EDI Generator - CSV Parser Module
// =============================================================================
//
// This module reads CSV exports into a tabular.Dataset, the same row model
// the XLSX parser produces. It handles:
//   - Different delimiters (comma, pipe, tab, semicolon)
//   - Header rows below a title block
//   - UTF-8 (with or without BOM), ISO-8859-1 and Windows-1252 input
//   - Quoted fields and ragged rows
//
// Row numbers in InputSettings count CSV records. Blank lines are not
// records.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/excel-to-edi/internal/config"
	"github.com/ginjaninja78/excel-to-edi/internal/tabular"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file and returns the parsed data.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: Delimiter, encoding and row layout.
//
// RETURNS:
//   - The dataset, with SourceName set to the file's base name.
//   - An error if the file cannot be read or parsed.
func Parse(filePath string, settings config.InputSettings) (*tabular.Dataset, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ParseReader(file, filepath.Base(filePath), settings)
}

// ParseReader reads CSV data from r.
//
// PARSING PROCESS:
//   1. Decode the input to UTF-8 using the configured encoding
//   2. Configure the CSV reader with the configured delimiter
//   3. Take the header from HeaderRow
//   4. Convert records from DataStartRow onwards, skipping blank rows
func ParseReader(r io.Reader, name string, settings config.InputSettings) (*tabular.Dataset, error) {
	settings = settings.WithDefaults()

	enc, err := lookupEncoding(settings.Encoding)
	if err != nil {
		return nil, err
	}
	reader := transform.NewReader(bufio.NewReader(r), enc.NewDecoder())

	csvReader := csv.NewReader(reader)
	if err := configureReader(csvReader, settings); err != nil {
		return nil, err
	}

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	headerIndex := settings.HeaderRow - 1
	if headerIndex >= len(records) {
		return nil, fmt.Errorf("file has fewer rows than header_row %d", settings.HeaderRow)
	}

	var data [][]string
	if start := settings.DataStartRow - 1; start < len(records) {
		data = records[start:]
	}

	ds, err := tabular.FromRecords(records[headerIndex], data, settings.DateLayouts)
	if err != nil {
		return nil, fmt.Errorf("failed to build dataset: %w", err)
	}
	ds.SourceName = name
	return ds, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.InputSettings) error {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon", "SEMICOLON":
		reader.Comma = ';'
	case ",", "comma", "COMMA":
		reader.Comma = ','
	default:
		runes := []rune(settings.Delimiter)
		if len(runes) != 1 {
			return fmt.Errorf("unsupported delimiter %q", settings.Delimiter)
		}
		reader.Comma = runes[0]
	}

	// Allow variable number of fields per row.
	reader.FieldsPerRecord = -1

	// Allow lazy quotes (quotes that don't follow strict CSV rules).
	reader.LazyQuotes = true

	// Trim leading space from fields.
	reader.TrimLeadingSpace = true
	return nil
}

// lookupEncoding maps an encoding name to a decoder. UTF-8 input may carry
// a byte order mark, which is removed.
func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "", "UTF-8", "UTF8":
		return unicode.UTF8BOM, nil
	case "ISO-8859-1", "LATIN1", "LATIN-1":
		return charmap.ISO8859_1, nil
	case "ISO-8859-15", "LATIN9", "LATIN-9":
		return charmap.ISO8859_15, nil
	case "WINDOWS-1252", "CP1252":
		return charmap.Windows1252, nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", name)
}
