package converter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ginjaninja78/excel-to-edi/internal/audit"
	"github.com/ginjaninja78/excel-to-edi/internal/config"
	"github.com/ginjaninja78/excel-to-edi/internal/engine"
	"github.com/ginjaninja78/excel-to-edi/internal/envelope"
	"github.com/ginjaninja78/excel-to-edi/internal/fieldmap"
	"github.com/ginjaninja78/excel-to-edi/internal/profile"
	"github.com/ginjaninja78/excel-to-edi/internal/registry"
	"github.com/ginjaninja78/excel-to-edi/pkg/utils"
)

func assertEqual[V comparable](t *testing.T, val V, expected V) {
	t.Helper()
	if val != expected {
		t.Errorf("expected:\n%#v\n\ngot:\n%#v", expected, val)
	}
}

var timestamp = time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

type fixture struct {
	dir   string
	deps  Dependencies
	audit *audit.Log
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	profiles, err := profile.Builtin()
	if err != nil {
		t.Fatal(err)
	}
	reg, err := registry.New(profiles...)
	if err != nil {
		t.Fatal(err)
	}

	files := utils.NewFileManager(
		filepath.Join(dir, "input"),
		filepath.Join(dir, "output"),
		filepath.Join(dir, "input_archive"),
		filepath.Join(dir, "output_archive"),
	)
	if err := files.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	log := audit.New(filepath.Join(dir, "audit"))

	return &fixture{
		dir:   dir,
		audit: log,
		deps: Dependencies{
			Engine: engine.New(reg, envelope.NewManager()),
			Files:  files,
			Audit:  log,
			State:  envelope.NewFileStateStore(filepath.Join(dir, "state", "control.yaml")),
			Now:    func() time.Time { return timestamp },
		},
	}
}

func (f *fixture) input(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, "input", name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

var poJob = &config.Job{
	Name:         "renesas-po",
	PartnerID:    "RENESAS",
	DocumentType: "PO",
	RequestedBy:  "buyer@example.com",
	Input:        config.InputSettings{}.WithDefaults(),
}

const poCSV = "PO Number,PO Date,Quantity,Unit Price,Part Number\n" +
	"PO-1001,2024-03-01,3,10,part-a\n" +
	"PO-1001,2024-03-01,5,2.5,part-b\n"

func TestRun(t *testing.T) {
	f := newFixture(t)
	path := f.input(t, "orders.csv", poCSV)

	result := New(path, poJob, f.deps).Run(context.Background())
	if !result.Success {
		t.Fatalf("expected success, got %v", result.Error)
	}

	assertEqual(t, filepath.Base(result.OutputFile), "RENESAS_PO_20240305_140709.edi")
	assertEqual(t, result.Stats.RowsProcessed, 2)
	assertEqual(t, result.Stats.TransactionsCreated, 1)
	assertEqual(t, result.Stats.DetailSegments, 2)

	content, err := os.ReadFile(result.OutputFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "PO1*002*5*EA*2.50**BP*PART-B~") {
		t.Errorf("unexpected document:\n%s", content)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected the input to be moved to the archive")
	}
	assertEqual(t, result.ArchivePath, filepath.Join(f.dir, "input_archive", "orders.csv"))
	if _, err := os.Stat(filepath.Join(f.dir, "output_archive", "RENESAS_PO_20240305_140709.edi")); err != nil {
		t.Errorf("expected the document to be archived: %v", err)
	}

	state, err := f.deps.State.Load()
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, state[fieldmap.LevelInterchange], uint64(1))

	entries, err := f.audit.Recent("buyer@example.com", 0)
	if err != nil {
		t.Fatal(err)
	}
	var actions []string
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	assertEqual(t, strings.Join(actions, ","), "INPUT_LOADED,PROCESSING_STARTED,EDI_GENERATED")
	assertEqual(t, entries[2].Details["correlation_id"], any(result.CorrelationID))
}

func TestRunMissingField(t *testing.T) {
	f := newFixture(t)
	path := f.input(t, "orders.csv", "PO Number,PO Date,Quantity,Unit Price\nPO-1001,2024-03-01,3,10\n")

	result := New(path, poJob, f.deps).Run(context.Background())
	if result.Success {
		t.Fatal("expected a failure")
	}
	assertEqual(t, ErrorType(result.Error), "missing_field")

	entry := result.ErrorLogEntry(poJob, timestamp)
	assertEqual(t, entry.Field, "Part Number")
	assertEqual(t, entry.PartnerID, "RENESAS")
	assertEqual(t, entry.CorrelationID, result.CorrelationID)

	if _, err := os.Stat(path); err != nil {
		t.Error("expected the input to stay in place after a failure")
	}

	entries, err := f.audit.Recent("buyer@example.com", 0)
	if err != nil {
		t.Fatal(err)
	}
	if last := entries[len(entries)-1]; last.Action != audit.ActionError || last.Details["error_type"] != "missing_field" {
		t.Errorf("expected an ERROR audit entry, got %+v", last)
	}
}

func TestRunUnknownPartner(t *testing.T) {
	f := newFixture(t)
	path := f.input(t, "acme.csv", "Part Number,Quantity\nX-1,2\n")

	job := &config.Job{Name: "acme", PartnerID: "ACME", DocumentType: "INVOICE", RequestedBy: "ops", Input: poJob.Input}
	result := New(path, job, f.deps).Run(context.Background())
	assertEqual(t, ErrorType(result.Error), "profile_not_found")

	job.AllowGeneric = true
	result = New(path, job, f.deps).Run(context.Background())
	if !result.Success {
		t.Fatalf("expected the generic profile to be used, got %v", result.Error)
	}
	assertEqual(t, result.Document.GenericFallback, true)
}

func TestReadInputRejectsUnknownExtension(t *testing.T) {
	_, err := ReadInput("notes.pdf", config.InputSettings{})
	if !errors.Is(err, ErrUnsupportedInput) {
		t.Errorf("expected ErrUnsupportedInput, got %v", err)
	}
	assertEqual(t, ErrorType(err), "input")
}
