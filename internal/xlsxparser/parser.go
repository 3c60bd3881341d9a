// =============================================================================
// Excel to EDI Generator - XLSX Parser
// =============================================================================
//
// This module reads uploaded Excel workbooks into a tabular.Dataset, the
// row model the generation engine maps into EDI segments.
//
// WORKBOOK LAYOUT (Expected):
//
//   |   | A           | B        | C          | D          |
//   |---|-------------|----------|------------|------------|
//   | 1 | PO Number   | Part No  | Quantity   | Ship Date  |   <- header_row
//   | 2 | PO-1001     | ABC-1    | 10         | 03-05-24   |   <- data_start_row
//   | 3 | PO-1001     | XYZ-9    | 2.5        | 03-06-24   |
//
// Cells are read with their number format applied, exactly as Excel shows
// them, and typed by tabular.Infer. Identifiers with leading zeros stay
// text.
//
// CUSTOMIZATION:
//   - Choose the sheet, header row and data start row per job in
//     config.yaml (InputSettings)
//   - Add date_layouts when a workbook renders dates in a custom format
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/ginjaninja78/excel-to-edi/internal/config"
	"github.com/ginjaninja78/excel-to-edi/internal/tabular"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a workbook from disk.
//
// PARAMETERS:
//   - filePath: The path to the .xlsx file.
//   - settings: Which sheet and rows to read.
//
// RETURNS:
//   - The dataset, with SourceName set to the file's base name.
//   - An error if the workbook cannot be opened or the sheet has no
//     header row.
func Parse(filePath string, settings config.InputSettings) (*tabular.Dataset, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return readWorkbook(f, filepath.Base(filePath), settings)
}

// ParseReader reads a workbook from r, for uploads that never touch the
// disk.
func ParseReader(r io.Reader, name string, settings config.InputSettings) (*tabular.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return readWorkbook(f, name, settings)
}

// SheetNames lists the worksheets of a workbook in tab order.
func SheetNames(filePath string) ([]string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// readWorkbook extracts the configured sheet into a dataset.
//
// PARSING PROCESS:
//   1. Pick the configured sheet, or the first one
//   2. Read every row with cell formatting applied
//   3. Take the header from HeaderRow
//   4. Convert rows from DataStartRow onwards, skipping blank rows
func readWorkbook(f *excelize.File, name string, settings config.InputSettings) (*tabular.Dataset, error) {
	settings = settings.WithDefaults()

	sheetName, err := selectSheet(f, settings.Sheet)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
	}

	headerIndex := settings.HeaderRow - 1
	if headerIndex >= len(rows) || len(rows[headerIndex]) == 0 {
		return nil, fmt.Errorf("sheet %q has no header in row %d", sheetName, settings.HeaderRow)
	}

	var records [][]string
	if start := settings.DataStartRow - 1; start < len(rows) {
		records = rows[start:]
	}

	ds, err := tabular.FromRecords(rows[headerIndex], records, settings.DateLayouts)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheetName, err)
	}
	ds.SourceName = name
	return ds, nil
}

// selectSheet returns the requested sheet name, or the first sheet when
// none is requested.
func selectSheet(f *excelize.File, requested string) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	if requested == "" {
		return sheets[0], nil
	}
	for _, s := range sheets {
		if s == requested {
			return s, nil
		}
	}
	return "", fmt.Errorf("workbook has no sheet %q (sheets: %v)", requested, sheets)
}
