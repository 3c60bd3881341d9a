package tabular

import (
	"testing"
	"time"
)

func assertEqual[V comparable](t *testing.T, val V, expected V) {
	t.Helper()
	if val != expected {
		t.Errorf("expected:\n%#v\n\ngot:\n%#v", expected, val)
	}
}

func TestNewDatasetRejectsBadColumns(t *testing.T) {
	testCases := map[string][]string{
		"no columns": {},
		"blank":      {"PO Number", " "},
		"duplicate":  {"PO Number", "Qty", "PO Number"},
	}
	for name, columns := range testCases {
		t.Run(name, func(t *testing.T) {
			if _, err := NewDataset(columns...); err == nil {
				t.Errorf("expected an error for columns %q", columns)
			}
		})
	}
}

func TestDatasetAppend(t *testing.T) {
	ds, err := NewDataset("PO Number", "Qty")
	if err != nil {
		t.Fatal(err)
	}

	if err := ds.Append(StringValue("PO-1"), NumberValue(5)); err != nil {
		t.Fatal(err)
	}
	if err := ds.Append(StringValue("PO-2")); err == nil {
		t.Error("expected an error for a short row")
	}
	if err := ds.AppendMap(map[string]Value{"PO Number": StringValue("PO-3")}); err != nil {
		t.Fatal(err)
	}
	if err := ds.AppendMap(map[string]Value{"Price": NumberValue(1)}); err == nil {
		t.Error("expected an error for an unknown column")
	}

	assertEqual(t, ds.Len(), 2)
	assertEqual(t, ds.HasColumn("Qty"), true)
	assertEqual(t, ds.HasColumn("Price"), false)

	qty, ok := ds.Row(1).Get("Qty")
	assertEqual(t, ok, true)
	assertEqual(t, qty.IsEmpty(), true)
	assertEqual(t, ds.Row(0).Has("Qty"), true)
	assertEqual(t, ds.Row(1).Has("Qty"), false)

	cols := ds.Columns()
	cols[0] = "changed"
	assertEqual(t, ds.Columns()[0], "PO Number")
}

func TestNilDatasetLen(t *testing.T) {
	var ds *Dataset
	assertEqual(t, ds.Len(), 0)
}

func TestValueString(t *testing.T) {
	assertEqual(t, StringValue("  ").Kind(), Empty)
	assertEqual(t, NumberValue(12.5).String(), "12.5")
	assertEqual(t, NumberValue(3).String(), "3")
	assertEqual(t, DateValue(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)).String(), "2024-01-15")
}

func TestInfer(t *testing.T) {
	type testCase struct {
		Input    string
		Kind     Kind
		Rendered string
	}

	testCases := []testCase{
		{Input: "", Kind: Empty, Rendered: ""},
		{Input: "42", Kind: Number, Rendered: "42"},
		{Input: "1.50", Kind: Number, Rendered: "1.50"},
		{Input: "-3", Kind: Number, Rendered: "-3"},
		{Input: "00123", Kind: String, Rendered: "00123"},
		{Input: "0.5", Kind: Number, Rendered: "0.5"},
		{Input: "1e5", Kind: String, Rendered: "1e5"},
		{Input: "2024-01-15", Kind: Date, Rendered: "2024-01-15"},
		{Input: "20240115", Kind: Date, Rendered: "20240115"},
		{Input: "01/15/2024", Kind: Date, Rendered: "01/15/2024"},
		{Input: "WIDGET-A", Kind: String, Rendered: "WIDGET-A"},
	}

	for _, tc := range testCases {
		t.Run(tc.Input, func(t *testing.T) {
			v := Infer(tc.Input, nil)
			assertEqual(t, v.Kind(), tc.Kind)
			assertEqual(t, v.String(), tc.Rendered)
		})
	}
}

func TestInferKeepsTypedValue(t *testing.T) {
	v := Infer("01/15/2024", nil)
	d, ok := v.Date()
	assertEqual(t, ok, true)
	assertEqual(t, d.Format("20060102"), "20240115")

	n, ok := Infer("1.50", nil).Number()
	assertEqual(t, ok, true)
	assertEqual(t, n, 1.5)
}
