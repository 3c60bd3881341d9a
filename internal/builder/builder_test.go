package builder

import (
	"errors"
	"testing"
	"time"

	"github.com/ginjaninja78/excel-to-edi/internal/edi"
	"github.com/ginjaninja78/excel-to-edi/internal/fieldmap"
	"github.com/ginjaninja78/excel-to-edi/internal/profile"
	"github.com/ginjaninja78/excel-to-edi/internal/tabular"
)

func assertEqual[V comparable](t *testing.T, val V, expected V) {
	t.Helper()
	if val != expected {
		t.Errorf("expected:\n%#v\n\ngot:\n%#v", expected, val)
	}
}

func builtin(t *testing.T, partner, docType string) *profile.EncodingProfile {
	t.Helper()
	profiles, err := profile.Builtin()
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range profiles {
		if p.Key() == profile.NewKey(partner, docType) {
			return p
		}
	}
	t.Fatalf("no built-in profile %s/%s", partner, docType)
	return nil
}

func genContext() fieldmap.Context {
	return fieldmap.Context{
		Timestamp:    time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC),
		PartnerID:    "RENESAS",
		DocumentType: "PO",
	}
}

// dataset builds a dataset from a header row and string rows; cells are
// inferred like spreadsheet cells.
func dataset(t *testing.T, columns []string, rows ...[]string) *tabular.Dataset {
	t.Helper()
	ds, err := tabular.NewDataset(columns...)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range rows {
		values := make([]tabular.Value, len(r))
		for i, s := range r {
			values[i] = tabular.Infer(s, nil)
		}
		if err := ds.Append(values...); err != nil {
			t.Fatal(err)
		}
	}
	return ds
}

var poColumns = []string{"PO Number", "PO Date", "Department", "Quantity", "Unit Price", "Part Number"}

func TestBuildPurchaseOrder(t *testing.T) {
	p := builtin(t, "RENESAS", "PO")
	ds := dataset(t, poColumns,
		[]string{"PO-1001", "2024-03-01", "", "3", "10", "part-a"},
		[]string{"PO-1001", "2024-03-01", "", "5", "2.5", "part-b"},
		[]string{"PO-1001", "2024-03-01", "", "1", "99.999", "part-c"},
	)

	seq, err := Build(p, ds, genContext())
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, len(seq.Transactions), 1)
	assertEqual(t, seq.DetailCount(), 3)

	txn := seq.Transactions[0]
	assertEqual(t, String(txn.Header[0]), "BEG*00*SA*PO-1001**20240301")

	// REF (no department), N3 and N4 (no address) are conditional.
	tags := ""
	for _, s := range txn.Header {
		tags += s.Tag() + " "
	}
	assertEqual(t, tags, "BEG DTM N1 ")

	assertEqual(t, String(txn.Lines[0].Detail), "PO1*001*3*EA*10.00**BP*PART-A")
	assertEqual(t, String(txn.Lines[1].Detail), "PO1*002*5*EA*2.50**BP*PART-B")
	assertEqual(t, String(txn.Lines[2].Detail), "PO1*003*1*EA*100.00**BP*PART-C")
	assertEqual(t, txn.Lines[2].Row, 2)

	assertEqual(t, len(txn.Summary), 1)
	assertEqual(t, String(txn.Summary[0]), "CTT*3")
}

func TestBuildZeroRows(t *testing.T) {
	p := builtin(t, "RENESAS", "PO")
	ds := dataset(t, poColumns)

	seq, err := Build(p, ds, genContext())
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, len(seq.Transactions), 1)
	assertEqual(t, seq.DetailCount(), 0)

	txn := seq.Transactions[0]
	assertEqual(t, String(txn.Header[0]), "BEG*00*SA*PO20240305140709**20240305")
	assertEqual(t, String(txn.Summary[0]), "CTT*0")

	seq, err = Build(p, nil, genContext())
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, seq.DetailCount(), 0)
}

func TestBuildMissingRequiredField(t *testing.T) {
	p := builtin(t, "RENESAS", "PO")
	ds := dataset(t, poColumns,
		[]string{"PO-1", "", "", "3", "10", "A"},
		[]string{"PO-1", "", "", "", "10", "B"},
	)

	seq, err := Build(p, ds, genContext())
	if seq != nil {
		t.Error("expected no partial sequence")
	}
	var missing *edi.MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFieldError, got %v", err)
	}
	assertEqual(t, missing.Row, 1)
	assertEqual(t, missing.Field, "Quantity")
	assertEqual(t, missing.Segment, "PO1")
	assertEqual(t, missing.Position, 2)
}

func TestBuildGroupsTransactions(t *testing.T) {
	p := builtin(t, "RENESAS", "PO")
	ds := dataset(t, poColumns,
		[]string{"PO-B", "", "", "1", "1", "X1"},
		[]string{"PO-A", "", "", "2", "1", "X2"},
		[]string{"PO-B", "", "", "3", "1", "X3"},
	)

	seq, err := Build(p, ds, genContext())
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, len(seq.Transactions), 2)
	assertEqual(t, seq.Transactions[0].GroupKey, "PO-B")
	assertEqual(t, seq.Transactions[0].DetailCount(), 2)
	assertEqual(t, seq.Transactions[0].Lines[1].Row, 2)
	assertEqual(t, String(seq.Transactions[0].Lines[1].Detail), "PO1*002*3*EA*1.00**BP*X3")
	assertEqual(t, seq.Transactions[1].GroupKey, "PO-A")
	assertEqual(t, String(seq.Transactions[1].Summary[0]), "CTT*1")
	assertEqual(t, seq.DetailCount(), ds.Len())
}

func TestBuildWithoutGroupingColumn(t *testing.T) {
	p := builtin(t, "RENESAS", "PO")
	ds := dataset(t, []string{"Quantity", "Part Number"},
		[]string{"1", "X1"},
		[]string{"2", "X2"},
		[]string{"3", "X3"},
	)

	seq, err := Build(p, ds, genContext())
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, len(seq.Transactions), 1)
	assertEqual(t, seq.Transactions[0].GroupKey, "")
	assertEqual(t, seq.DetailCount(), 3)
	assertEqual(t, String(seq.Transactions[0].Header[0]), "BEG*00*SA*PO20240305140709**20240305")
}

func TestBuildConditionalHeader(t *testing.T) {
	p := builtin(t, "RENESAS", "PO")
	ds := dataset(t, poColumns, []string{"PO-1", "", "Facilities", "1", "1", "X"})

	seq, err := Build(p, ds, genContext())
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, String(seq.Transactions[0].Header[1]), "REF*DP*Facilities")
}

func TestBuildDetailExtras(t *testing.T) {
	p := builtin(t, "OSRAM", "POS")
	ds := dataset(t, []string{"Product Code", "Quantity", "Unit Price"},
		[]string{"4001", "7", "15"},
		[]string{"4002", "2", ""},
	)

	seq, err := Build(p, ds, genContext())
	if err != nil {
		t.Fatal(err)
	}
	txn := seq.Transactions[0]
	assertEqual(t, txn.DetailCount(), 2)
	assertEqual(t, String(txn.Lines[0].Detail), "LIN*1**4001:EN")
	assertEqual(t, len(txn.Lines[0].Extras), 2)
	assertEqual(t, String(txn.Lines[0].Extras[0]), "QTY*21:7")
	assertEqual(t, String(txn.Lines[0].Extras[1]), "PRI*AAA:15.00:CA")
	assertEqual(t, len(txn.Lines[1].Extras), 1)

	assertEqual(t, String(txn.Summary[1]), "CNT*2:2")
	assertEqual(t, len(txn.Segments()), len(txn.Header)+2+3+len(txn.Summary))
}

func TestConditionalWithoutCondition(t *testing.T) {
	note := profile.SegmentTemplate{
		Tag:   "MSG",
		Usage: profile.UsageConditional,
		Elements: []fieldmap.Rule{
			fieldmap.Literal("NOTE"),
			{Field: "Note", Required: true},
		},
	}
	ds := dataset(t, []string{"Note"}, []string{"hello"}, []string{""})

	scope := &fieldmap.Scope{Row: ds.Row(0), HasRow: true, RowIndex: 0}
	seg, ok, err := RenderSegment(&note, scope)
	if err != nil || !ok {
		t.Fatalf("expected the segment, got ok=%v err=%v", ok, err)
	}
	assertEqual(t, String(seg), "MSG*NOTE*hello")

	scope = &fieldmap.Scope{Row: ds.Row(1), HasRow: true, RowIndex: 1}
	_, ok, err = RenderSegment(&note, scope)
	if err != nil || ok {
		t.Errorf("expected the segment to be omitted silently, got ok=%v err=%v", ok, err)
	}
}
