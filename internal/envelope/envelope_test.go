package envelope

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ginjaninja78/excel-to-edi/internal/builder"
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

var genContext = fieldmap.Context{
	Timestamp:    time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC),
	PartnerID:    "RENESAS",
	DocumentType: "PO",
}

func purchaseOrders(t *testing.T, p *profile.EncodingProfile, poNumbers ...string) *builder.Sequence {
	t.Helper()
	ds, err := tabular.NewDataset("PO Number", "Quantity", "Unit Price", "Part Number")
	if err != nil {
		t.Fatal(err)
	}
	for _, po := range poNumbers {
		if err := ds.AppendMap(map[string]tabular.Value{
			"PO Number":   tabular.StringValue(po),
			"Quantity":    tabular.NumberValue(2),
			"Unit Price":  tabular.NumberValue(4.5),
			"Part Number": tabular.StringValue("P-1"),
		}); err != nil {
			t.Fatal(err)
		}
	}
	seq, err := builder.Build(p, ds, genContext)
	if err != nil {
		t.Fatal(err)
	}
	return seq
}

func TestWrapPurchaseOrder(t *testing.T) {
	p := builtin(t, "RENESAS", "PO")
	seq := purchaseOrders(t, p, "PO-1", "PO-1", "PO-1")

	ic, err := Wrap(NewManager(), p, seq, genContext)
	if err != nil {
		t.Fatal(err)
	}

	assertEqual(t, builder.String(ic.Header),
		"ISA*00*          *00*          *ZZ*SENDER         *ZZ*RECEIVER       *240305*1407*U*00401*000000001*0*P*>")
	assertEqual(t, builder.String(ic.Trailer), "IEA*1*000000001")
	assertEqual(t, builder.String(ic.Group.Header), "GS*PO*SENDER*RECEIVER*20240305*1407*1*X*004010")
	assertEqual(t, builder.String(ic.Group.Trailer), "GE*1*1")

	txn := ic.Transactions[0]
	assertEqual(t, builder.String(txn.Header), "ST*850*0001")
	// ST BEG DTM N1 PO1 PO1 PO1 CTT SE
	assertEqual(t, builder.String(txn.Trailer), "SE*9*0001")
	assertEqual(t, ic.DetailCount(), 3)

	segs := ic.Segments()
	assertEqual(t, len(segs), 13)
	assertEqual(t, segs[0].Tag(), "ISA")
	assertEqual(t, segs[len(segs)-1].Tag(), "IEA")

	// The ISA16 element is a syntax character, not data.
	isa16, ok := ic.Header.Element(16)
	assertEqual(t, ok, true)
	assertEqual(t, isa16.Origin().Syntax, true)
}

func TestWrapMultipleTransactions(t *testing.T) {
	p := builtin(t, "RENESAS", "PO")
	seq := purchaseOrders(t, p, "PO-1", "PO-2", "PO-1")

	ic, err := Wrap(NewManager(), p, seq, genContext)
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, len(ic.Transactions), 2)
	assertEqual(t, builder.String(ic.Group.Trailer), "GE*2*1")
	assertEqual(t, builder.String(ic.Transactions[0].Trailer), "SE*8*0001")
	assertEqual(t, builder.String(ic.Transactions[1].Header), "ST*850*0002")
	assertEqual(t, builder.String(ic.Transactions[1].Trailer), "SE*7*0002")
}

func TestHeaderAndTrailerControlNumbersMatch(t *testing.T) {
	p := builtin(t, "RENESAS", "PO")
	m := NewManager()
	for i := 0; i < 3; i++ {
		ic, err := Wrap(m, p, purchaseOrders(t, p, "PO-1"), genContext)
		if err != nil {
			t.Fatal(err)
		}
		assertEqual(t, ic.Header.Value(13), ic.Trailer.Value(2))
		assertEqual(t, ic.Group.Header.Value(6), ic.Group.Trailer.Value(2))
		for _, txn := range ic.Transactions {
			assertEqual(t, txn.Header.Value(2), txn.Trailer.Value(2))
		}
		assertEqual(t, ic.Control, uint64(i+1))
	}
}

func TestWrapWithoutGroupLevel(t *testing.T) {
	p := builtin(t, "OSRAM", "POS")
	ds, err := tabular.NewDataset("Product Code", "Quantity")
	if err != nil {
		t.Fatal(err)
	}
	ds.Append(tabular.StringValue("4001"), tabular.NumberValue(1))
	seq, err := builder.Build(p, ds, genContext)
	if err != nil {
		t.Fatal(err)
	}

	ic, err := Wrap(NewManager(), p, seq, genContext)
	if err != nil {
		t.Fatal(err)
	}
	if ic.Group != nil {
		t.Error("expected no group envelope")
	}
	assertEqual(t, builder.String(ic.Trailer), "UNZ*1*1")
	assertEqual(t, builder.String(ic.Transactions[0].Header), "UNH*1*ORDERS:D:03B:UN:EAN008")
	assertEqual(t, ic.Transactions[0].Trailer.Value(1), itoa(len(ic.Transactions[0].Body)+2))
	_, hasGroup := ic.Controls()[fieldmap.LevelGroup]
	assertEqual(t, hasGroup, false)
}

func itoa(n int) string {
	return tabular.NumberValue(float64(n)).String()
}

func TestAllocateOverflow(t *testing.T) {
	m := NewManager()
	if err := m.Restore(State{"interchange": 98}); err != nil {
		t.Fatal(err)
	}

	n, err := m.Allocate(fieldmap.LevelInterchange, 2)
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, n, uint64(99))

	_, err = m.Allocate(fieldmap.LevelInterchange, 2)
	var overflow *edi.ControlNumberOverflowError
	if !errors.As(err, &overflow) {
		t.Fatalf("expected ControlNumberOverflowError, got %v", err)
	}
	assertEqual(t, overflow.Last, uint64(99))
	assertEqual(t, overflow.Width, 2)
	assertEqual(t, m.Last(fieldmap.LevelInterchange), uint64(99))

	// Other levels are independent.
	n, err = m.Allocate(fieldmap.LevelGroup, 2)
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, n, uint64(1))
}

func TestWrapOverflowFails(t *testing.T) {
	p := builtin(t, "RENESAS", "PO")
	m := NewManager()
	m.Restore(State{"interchange": 999999999})

	_, err := Wrap(m, p, purchaseOrders(t, p, "PO-1"), genContext)
	var overflow *edi.ControlNumberOverflowError
	if !errors.As(err, &overflow) {
		t.Fatalf("expected ControlNumberOverflowError, got %v", err)
	}
	assertEqual(t, overflow.Level, fieldmap.LevelInterchange)
}

func TestRestoreNeverLowers(t *testing.T) {
	m := NewManager()
	m.Restore(State{"transaction": 50})
	m.Restore(State{"transaction": 10})
	assertEqual(t, m.Last(fieldmap.LevelTransaction), uint64(50))

	if err := m.Restore(State{"batch": 1}); err == nil {
		t.Error("expected an unknown level to be rejected")
	}
}

func TestConcurrentAllocationIsUnique(t *testing.T) {
	m := NewManager()
	const workers, each = 16, 200

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[uint64]bool, workers*each)
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				n, err := m.Allocate(fieldmap.LevelTransaction, 9)
				if err != nil {
					t.Error(err)
					return
				}
				mu.Lock()
				if seen[n] {
					t.Errorf("control number %d allocated twice", n)
				}
				seen[n] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assertEqual(t, len(seen), workers*each)
	assertEqual(t, m.Last(fieldmap.LevelTransaction), uint64(workers*each))
}

func TestFileStateStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "control.yaml")
	store := NewFileStateStore(path)

	state, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, len(state), 0)

	m := NewManager()
	m.Allocate(fieldmap.LevelInterchange, 9)
	m.Allocate(fieldmap.LevelInterchange, 9)
	m.Allocate(fieldmap.LevelTransaction, 9)
	if err := store.Save(m.State()); err != nil {
		t.Fatal(err)
	}

	restored := NewManager()
	if err := Restore(restored, store); err != nil {
		t.Fatal(err)
	}
	n, err := restored.Allocate(fieldmap.LevelInterchange, 9)
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, n, uint64(3))
	assertEqual(t, restored.Last(fieldmap.LevelTransaction), uint64(1))
}

func TestCheckpointConcurrent(t *testing.T) {
	store := NewFileStateStore(filepath.Join(t.TempDir(), "control.yaml"))
	m := NewManager()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Allocate(fieldmap.LevelInterchange, 9); err != nil {
				t.Error(err)
				return
			}
			if err := store.Checkpoint(m); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	state, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, state[fieldmap.LevelInterchange], uint64(8))
}
