// =============================================================================
// Excel to EDI Generator - Tabular Data Model
// =============================================================================
//
// This package is the normalized in-memory representation of an uploaded
// spreadsheet. It is shared by:
//   - xlsxparser / csvparser (producers)
//   - builder                (consumer)
//   - engine                 (passes it through)
//
// INVARIANTS:
//   - The column set is non-empty and has no duplicates.
//   - Every row carries exactly the dataset's column set.
//   - Zero rows is a valid dataset.
//
// =============================================================================

package tabular

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// VALUES
// =============================================================================

// Kind identifies the scalar type held by a Value.
type Kind int

const (
	// Empty is a blank cell.
	Empty Kind = iota
	String
	Number
	Date
)

func (k Kind) String() string {
	return [...]string{"empty", "string", "number", "date"}[k]
}

// Value is a single typed cell.
type Value struct {
	kind Kind
	str  string
	num  float64
	date time.Time

	// raw is the cell text a number or date was inferred from.
	raw string
}

// StringValue creates a string value. Blank strings become Empty.
func StringValue(s string) Value {
	if strings.TrimSpace(s) == "" {
		return Value{kind: Empty}
	}
	return Value{kind: String, str: s}
}

// NumberValue creates a numeric value.
func NumberValue(n float64) Value {
	return Value{kind: Number, num: n}
}

// DateValue creates a date value.
func DateValue(t time.Time) Value {
	return Value{kind: Date, date: t}
}

// Kind returns the value's type.
func (v Value) Kind() Kind { return v.kind }

// IsEmpty reports whether the cell is blank.
func (v Value) IsEmpty() bool { return v.kind == Empty }

// Number returns the numeric value and whether the value is a number.
func (v Value) Number() (float64, bool) { return v.num, v.kind == Number }

// Date returns the date value and whether the value is a date.
func (v Value) Date() (time.Time, bool) { return v.date, v.kind == Date }

// String renders the value without any locale-dependent formatting.
// Inferred values keep their source text; otherwise numbers use the
// shortest representation and dates use YYYY-MM-DD.
func (v Value) String() string {
	if v.raw != "" && v.kind != Empty {
		return v.raw
	}
	switch v.kind {
	case String:
		return v.str
	case Number:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case Date:
		return v.date.Format("2006-01-02")
	}
	return ""
}

// =============================================================================
// ROWS
// =============================================================================

// Row is one record of the dataset, keyed by column name.
type Row struct {
	values map[string]Value
}

// Get returns the value of a column. The second result is false when the
// column does not exist in the row.
func (r Row) Get(column string) (Value, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Has reports whether the row has a non-empty value for column.
func (r Row) Has(column string) bool {
	v, ok := r.values[column]
	return ok && !v.IsEmpty()
}

// =============================================================================
// DATASET
// =============================================================================

// Dataset is an ordered list of rows sharing one column set.
type Dataset struct {
	columns []string
	index   map[string]int
	rows    []Row

	// SourceName is the name of the file the data was read from, if any.
	SourceName string
}

// NewDataset creates an empty dataset with the given columns.
//
// RETURNS:
//   - An error if the column set is empty, contains a blank name or
//     contains duplicates.
func NewDataset(columns ...string) (*Dataset, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("dataset must have at least one column")
	}
	ds := &Dataset{
		columns: make([]string, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if strings.TrimSpace(c) == "" {
			return nil, fmt.Errorf("column %d has no name", i+1)
		}
		if _, dup := ds.index[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		ds.columns[i] = c
		ds.index[c] = i
	}
	return ds, nil
}

// Columns returns a copy of the column names in order.
func (d *Dataset) Columns() []string {
	c := make([]string, len(d.columns))
	copy(c, d.columns)
	return c
}

// HasColumn reports whether the dataset defines column.
func (d *Dataset) HasColumn(column string) bool {
	_, ok := d.index[column]
	return ok
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.rows)
}

// Row returns the row at the 0-based index i.
func (d *Dataset) Row(i int) Row {
	return d.rows[i]
}

// Rows returns the rows in order. The slice is a copy; rows themselves
// are read-only.
func (d *Dataset) Rows() []Row {
	r := make([]Row, len(d.rows))
	copy(r, d.rows)
	return r
}

// Append adds a row given positionally, one value per column.
func (d *Dataset) Append(values ...Value) error {
	if len(values) != len(d.columns) {
		return fmt.Errorf("row %d has %d values, dataset has %d columns", len(d.rows), len(values), len(d.columns))
	}
	m := make(map[string]Value, len(values))
	for i, v := range values {
		m[d.columns[i]] = v
	}
	d.rows = append(d.rows, Row{values: m})
	return nil
}

// AppendMap adds a row given as column -> value. Columns not present in
// the map are stored as Empty; unknown columns are an error.
func (d *Dataset) AppendMap(values map[string]Value) error {
	m := make(map[string]Value, len(d.columns))
	for _, c := range d.columns {
		m[c] = Value{kind: Empty}
	}
	for k, v := range values {
		if _, ok := d.index[k]; !ok {
			return fmt.Errorf("row %d: unknown column %q", len(d.rows), k)
		}
		m[k] = v
	}
	d.rows = append(d.rows, Row{values: m})
	return nil
}
