package utils

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var now = time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

func TestGenerateOutputFileName(t *testing.T) {
	tests := []struct {
		format string
		params map[string]string
		ext    string
		want   string
	}{
		{"{partner}_{type}_{timestamp}.edi", map[string]string{"partner": "RENESAS", "type": "PO"}, ".edi", "RENESAS_PO_20240305_140709.edi"},
		{"{partner}_{date}_{time}", map[string]string{"partner": "OSRAM"}, "edi", "OSRAM_20240305_140709.edi"},
		{"{partner}_{control}.x12", map[string]string{"partner": "A/B", "control": "42"}, ".edi", "A_B_42.x12"},
	}
	for _, tt := range tests {
		got := GenerateOutputFileName(tt.format, tt.params, now, tt.ext)
		if got != tt.want {
			t.Errorf("GenerateOutputFileName(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}

	withUUID := GenerateOutputFileName("{uuid}.edi", nil, now, "")
	if len(withUUID) != len("00000000-0000-0000-0000-000000000000.edi") {
		t.Errorf("unexpected uuid file name %q", withUUID)
	}
}

func TestWriteAndReadDocument(t *testing.T) {
	dir := t.TempDir()
	fm := NewFileManager(filepath.Join(dir, "in"), filepath.Join(dir, "out"), filepath.Join(dir, "in_archive"), filepath.Join(dir, "out_archive"))

	path, err := fm.WriteDocument("RENESAS_PO.edi", []byte("ISA*00~"))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(path) != fm.OutputDir {
		t.Errorf("document written outside the output directory: %s", path)
	}

	data, err := fm.ReadDocument("RENESAS_PO.edi")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "ISA*00~" {
		t.Errorf("unexpected content %q", data)
	}

	second, err := fm.WriteDocument("RENESAS_PO.edi", []byte("ISA*01~"))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(second) != "RENESAS_PO_2.edi" {
		t.Errorf("expected the second document to get a suffix, got %s", second)
	}

	entries, _ := os.ReadDir(fm.OutputDir)
	if len(entries) != 2 {
		t.Errorf("expected no temporary files left behind, found %d entries", len(entries))
	}

	for _, name := range []string{"", "..", "../secret", "a/b.edi", `a\b.edi`} {
		if _, err := fm.ReadDocument(name); !errors.Is(err, ErrInvalidDocumentName) {
			t.Errorf("ReadDocument(%q): expected ErrInvalidDocumentName, got %v", name, err)
		}
	}
}

func TestDiscoverAndArchive(t *testing.T) {
	dir := t.TempDir()
	fm := NewFileManager(filepath.Join(dir, "in"), filepath.Join(dir, "out"), filepath.Join(dir, "in_archive"), filepath.Join(dir, "out_archive"))
	if err := fm.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"b_orders.xlsx", "a_claims.csv", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(fm.InputDir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := fm.DiscoverInputFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 || !strings.HasSuffix(files[0], "a_claims.csv") {
		t.Fatalf("unexpected discovery result %v", files)
	}

	archived, err := fm.ArchiveInputFile(files[0])
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(files[0]); !os.IsNotExist(err) {
		t.Error("expected the input to be moved")
	}
	if _, err := os.Stat(archived); err != nil {
		t.Errorf("archived file missing: %v", err)
	}
}

func TestDiscoverInputFilesRecursive(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	fm := NewFileManager(in, filepath.Join(in, "out"), filepath.Join(in, "archive"), filepath.Join(dir, "out_archive"))
	if err := fm.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		"top.csv",
		filepath.Join("2024", "march", "orders.XLSX"),
		filepath.Join("2024", "readme.txt"),
		filepath.Join("archive", "old.csv"),
		filepath.Join("out", "stray.csv"),
	} {
		path := filepath.Join(in, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := fm.DiscoverInputFilesRecursive()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(in, "2024", "march", "orders.XLSX"), filepath.Join(in, "top.csv")}
	if len(files) != len(want) {
		t.Fatalf("unexpected discovery result %v", files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("file %d: got %s, want %s", i, files[i], want[i])
		}
	}
}

func TestWriteErrorLog(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteErrorLog(nil, dir, now)
	if err != nil || path != "" {
		t.Fatalf("expected no log for no entries, got %q, %v", path, err)
	}

	path, err = WriteErrorLog([]ErrorLogEntry{{
		Timestamp:    now,
		FileName:     "orders.xlsx",
		PartnerID:    "RENESAS",
		DocumentType: "PO",
		ErrorType:    "missing_field",
		ErrorMessage: `row 4: missing required field "Quantity"`,
		Row:          3,
		Field:        "Quantity",
		Segment:      "PO1",
		Position:     2,
	}}, dir, now)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Total Errors: 1", "RENESAS/PO", "Segment:        PO102", "Field:          Quantity", "Row:            4"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("error log does not contain %q:\n%s", want, data)
		}
	}
}
