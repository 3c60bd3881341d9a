package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ginjaninja78/excel-to-edi/internal/edi"
	"github.com/ginjaninja78/excel-to-edi/internal/envelope"
	"github.com/ginjaninja78/excel-to-edi/internal/fieldmap"
	"github.com/ginjaninja78/excel-to-edi/internal/profile"
	"github.com/ginjaninja78/excel-to-edi/internal/registry"
	"github.com/ginjaninja78/excel-to-edi/internal/serializer"
	"github.com/ginjaninja78/excel-to-edi/internal/tabular"
)

func assertEqual[V comparable](t *testing.T, val V, expected V) {
	t.Helper()
	if val != expected {
		t.Errorf("expected:\n%#v\n\ngot:\n%#v", expected, val)
	}
}

var timestamp = time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	profiles, err := profile.Builtin()
	if err != nil {
		t.Fatal(err)
	}
	reg, err := registry.New(profiles...)
	if err != nil {
		t.Fatal(err)
	}
	return New(reg, envelope.NewManager(), opts...)
}

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

var poColumns = []string{"PO Number", "PO Date", "Quantity", "Unit Price", "Part Number"}

func threeRowPO(t *testing.T) *tabular.Dataset {
	return dataset(t, poColumns,
		[]string{"PO-1001", "2024-03-01", "3", "10", "part-a"},
		[]string{"PO-1001", "2024-03-01", "5", "2.5", "part-b"},
		[]string{"PO-1001", "2024-03-01", "1", "99.999", "part-c"},
	)
}

func poRequest(rows *tabular.Dataset) Request {
	return Request{PartnerID: "renesas", DocumentType: "po", Rows: rows, Timestamp: timestamp, RequestedBy: "buyer@example.com"}
}

func TestGeneratePurchaseOrder(t *testing.T) {
	e := newEngine(t)

	doc, err := e.Generate(context.Background(), poRequest(threeRowPO(t)))
	if err != nil {
		t.Fatal(err)
	}

	want := "ISA*00*          *00*          *ZZ*SENDER         *ZZ*RECEIVER       *240305*1407*U*00401*000000001*0*P*>~\n" +
		"GS*PO*SENDER*RECEIVER*20240305*1407*1*X*004010~\n" +
		"ST*850*0001~\n" +
		"BEG*00*SA*PO-1001**20240301~\n" +
		"DTM*002*20240305~\n" +
		"N1*ST*Ship To Location~\n" +
		"PO1*001*3*EA*10.00**BP*PART-A~\n" +
		"PO1*002*5*EA*2.50**BP*PART-B~\n" +
		"PO1*003*1*EA*100.00**BP*PART-C~\n" +
		"CTT*3~\n" +
		"SE*9*0001~\n" +
		"GE*1*1~\n" +
		"IEA*1*000000001~\n"
	assertEqual(t, string(doc.Content), want)

	assertEqual(t, doc.FileName, "RENESAS_PO_20240305_140709.edi")
	assertEqual(t, doc.Profile, "RENESAS/PO")
	assertEqual(t, doc.GenericFallback, false)
	assertEqual(t, doc.Transactions, 1)
	assertEqual(t, doc.DetailSegments, 3)
	assertEqual(t, doc.Segments, 13)
	assertEqual(t, doc.Controls[fieldmap.LevelInterchange], uint64(1))
	if doc.CorrelationID == "" {
		t.Error("expected a generated correlation id")
	}
}

func TestGeneratedDocumentRoundTrip(t *testing.T) {
	e := newEngine(t)
	doc, err := e.Generate(context.Background(), poRequest(threeRowPO(t)))
	if err != nil {
		t.Fatal(err)
	}

	d, ok := serializer.DetectDelimiters(doc.Content)
	if !ok {
		t.Fatal("expected delimiters to be detected from the ISA segment")
	}
	segs, err := serializer.Parse(doc.Content, d)
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, len(segs), doc.Segments)

	byTag := make(map[string]edi.Segment)
	details := 0
	for _, s := range segs {
		byTag[s.Tag()] = s
		if s.Tag() == "PO1" {
			details++
		}
	}
	assertEqual(t, byTag["ISA"].Value(13), byTag["IEA"].Value(2))
	assertEqual(t, byTag["GS"].Value(6), byTag["GE"].Value(2))
	assertEqual(t, byTag["ST"].Value(2), byTag["SE"].Value(2))
	assertEqual(t, byTag["CTT"].Value(1), "3")
	assertEqual(t, details, 3)
	assertEqual(t, byTag["SE"].Value(1), "9")
	assertEqual(t, byTag["BEG"].Value(3), "PO-1001")
}

func TestGenerateZeroRows(t *testing.T) {
	e := newEngine(t)
	doc, err := e.Generate(context.Background(), poRequest(dataset(t, poColumns)))
	if err != nil {
		t.Fatal(err)
	}
	content := string(doc.Content)
	for _, want := range []string{"ST*850*0001~", "CTT*0~", "SE*6*0001~", "GE*1*1~", "IEA*1*000000001~"} {
		if !strings.Contains(content, want) {
			t.Errorf("expected %q in:\n%s", want, content)
		}
	}
	assertEqual(t, doc.DetailSegments, 0)
}

func TestGenerateMissingField(t *testing.T) {
	var states []State
	e := newEngine(t, WithObserver(func(_ string, s State) { states = append(states, s) }))
	rows := dataset(t, poColumns,
		[]string{"PO-1", "", "3", "10", "A"},
		[]string{"PO-1", "", "3", "10", ""},
	)

	doc, err := e.Generate(context.Background(), poRequest(rows))
	if doc != nil {
		t.Error("expected no document")
	}
	var missing *edi.MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFieldError, got %v", err)
	}
	assertEqual(t, missing.Row, 1)
	assertEqual(t, missing.Field, "Part Number")

	var gerr *GenerationError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected GenerationError, got %T", err)
	}
	assertEqual(t, gerr.State, StateBuilding)
	assertEqual(t, gerr.PartnerID, "RENESAS")
	assertEqual(t, Classify(err), KindMissingField)
	assertEqual(t, Classify(err).HTTPStatus(), 422)
	assertEqual(t, states[len(states)-1], StateFailed)

	// Nothing was wrapped, so no control number was consumed.
	assertEqual(t, e.Controls().Last(fieldmap.LevelInterchange), uint64(0))
}

func TestGenerateRejectsUnrepresentableQuantity(t *testing.T) {
	for _, qty := range []string{"NaN", "-Inf", "1e30", "99999999999999999999999"} {
		t.Run(qty, func(t *testing.T) {
			e := newEngine(t)
			rows := dataset(t, poColumns,
				[]string{"PO-1", "2024-03-01", "3", "10", "A"},
				[]string{"PO-1", "2024-03-01", qty, "10", "B"},
			)

			doc, err := e.Generate(context.Background(), poRequest(rows))
			if doc != nil {
				t.Fatalf("expected no document, got:\n%s", doc.Content)
			}
			var serr *edi.SerializationError
			if !errors.As(err, &serr) {
				t.Fatalf("expected SerializationError, got %v", err)
			}
			assertEqual(t, serr.Row, 1)
			assertEqual(t, serr.Field, "Quantity")
			assertEqual(t, serr.Segment, "PO1")
			assertEqual(t, Classify(err), KindSerialization)
		})
	}
}

func TestGenerateWithoutGroupingColumn(t *testing.T) {
	e := newEngine(t)
	rows := dataset(t, []string{"Quantity", "Part Number"},
		[]string{"1", "p1"},
		[]string{"2", "p2"},
		[]string{"3", "p3"},
	)

	doc, err := e.Generate(context.Background(), poRequest(rows))
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, doc.Transactions, 1)
	assertEqual(t, doc.DetailSegments, 3)
	if !strings.Contains(string(doc.Content), "PO1*003*3*EA*0.00**BP*P3~") {
		t.Errorf("unexpected document:\n%s", doc.Content)
	}
}

func TestGenerateUnknownProfile(t *testing.T) {
	e := newEngine(t)
	req := Request{PartnerID: "ACME", DocumentType: "INVOICE", Timestamp: timestamp,
		Rows: dataset(t, []string{"Quantity"}, []string{"2"})}

	_, err := e.Generate(context.Background(), req)
	var notFound *edi.ProfileNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ProfileNotFoundError, got %v", err)
	}
	assertEqual(t, Classify(err).HTTPStatus(), 404)

	req.AllowGeneric = true
	doc, err := e.Generate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, doc.GenericFallback, true)
	content := string(doc.Content)
	for _, want := range []string{"GS*IN*SENDER", "N1*ST*ACME~", "PO1*001*2*EA*0.00**BP*GENERIC001~", "SE*5*0001~"} {
		if !strings.Contains(content, want) {
			t.Errorf("expected %q in:\n%s", want, content)
		}
	}
	assertEqual(t, doc.FileName, "ACME_INVOICE_20240305_140709.edi")
}

func TestControlNumbersAreSequential(t *testing.T) {
	e := newEngine(t)
	for i := 1; i <= 5; i++ {
		doc, err := e.Generate(context.Background(), poRequest(threeRowPO(t)))
		if err != nil {
			t.Fatal(err)
		}
		assertEqual(t, doc.Controls[fieldmap.LevelInterchange], uint64(i))
		assertEqual(t, doc.Controls[fieldmap.LevelGroup], uint64(i))
		assertEqual(t, doc.Controls[fieldmap.LevelTransaction], uint64(i))
	}
}

func TestConcurrentGenerationsNeverShareControlNumbers(t *testing.T) {
	e := newEngine(t)
	const n = 24

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[uint64]bool)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := e.Generate(context.Background(), poRequest(threeRowPO(t)))
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			c := doc.Controls[fieldmap.LevelInterchange]
			if seen[c] {
				t.Errorf("interchange control number %d used twice", c)
			}
			seen[c] = true
		}()
	}
	wg.Wait()
	assertEqual(t, len(seen), n)
}

func TestGenerateStates(t *testing.T) {
	var states []State
	e := newEngine(t, WithObserver(func(_ string, s State) { states = append(states, s) }))
	if _, err := e.Generate(context.Background(), poRequest(threeRowPO(t))); err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, s := range states {
		names = append(names, s.String())
	}
	assertEqual(t, strings.Join(names, ","), "resolving,building,wrapping,serializing,done")
}

func TestCanceledGenerationConsumesControlNumbers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e := newEngine(t, WithObserver(func(_ string, s State) {
		if s == StateSerializing {
			cancel()
		}
	}))

	_, err := e.Generate(ctx, poRequest(threeRowPO(t)))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	assertEqual(t, Classify(err), KindCanceled)
	assertEqual(t, e.Controls().Last(fieldmap.LevelInterchange), uint64(1))

	// The retry gets the next number.
	doc, err := e.Generate(context.Background(), poRequest(threeRowPO(t)))
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, doc.Controls[fieldmap.LevelInterchange], uint64(2))
}

func TestDelimiterCollisionIsRejected(t *testing.T) {
	e := newEngine(t)
	rows := dataset(t, poColumns, []string{"PO-1", "", "1", "1", "A*B"})

	_, err := e.Generate(context.Background(), poRequest(rows))
	var collision *edi.DelimiterCollisionError
	if !errors.As(err, &collision) {
		t.Fatalf("expected DelimiterCollisionError, got %v", err)
	}
	assertEqual(t, collision.Row, 0)
	assertEqual(t, collision.Field, "Part Number")
	assertEqual(t, collision.Segment, "PO1")
	assertEqual(t, Classify(err), KindDelimiterCollision)
}

func TestEDIFACTEscaping(t *testing.T) {
	e := newEngine(t)
	rows := dataset(t, []string{"Product Code", "Quantity", "Buyer"},
		[]string{"4001", "7", "O'Brien"},
	)
	doc, err := e.Generate(context.Background(), Request{PartnerID: "OSRAM", DocumentType: "POS", Rows: rows, Timestamp: timestamp})
	if err != nil {
		t.Fatal(err)
	}
	content := string(doc.Content)
	if !strings.HasPrefix(content, "UNA:+.? '\nUNB+UNOC:3+SENDER:14+RECEIVER:14+240305:1407+1++ORDERS'\n") {
		t.Errorf("unexpected interchange header:\n%s", content)
	}
	for _, want := range []string{"NAD+BY+O?'Brien::91'", "LIN+1++4001:EN'", "QTY+21:7'", "CNT+2:1'", "UNZ+1+1'"} {
		if !strings.Contains(content, want) {
			t.Errorf("expected %q in:\n%s", want, content)
		}
	}
}

func TestInvalidRequest(t *testing.T) {
	e := newEngine(t)
	_, err := e.Generate(context.Background(), Request{PartnerID: "RENESAS", DocumentType: "PO"})
	assertEqual(t, Classify(err), KindInput)
	assertEqual(t, Classify(err).HTTPStatus(), 400)
}

func TestClassifyOverflow(t *testing.T) {
	e := newEngine(t)
	if err := e.Controls().Restore(envelope.State{fieldmap.LevelInterchange: 999999999}); err != nil {
		t.Fatal(err)
	}
	_, err := e.Generate(context.Background(), poRequest(threeRowPO(t)))
	assertEqual(t, Classify(err), KindControlNumberOverflow)
	assertEqual(t, Classify(err).HTTPStatus(), 503)
}
