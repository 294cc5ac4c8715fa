package bib

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// writeStubConverter writes an executable shell script standing in for the
// external converter.
func writeStubConverter(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub converter requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "converter")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConvertSuccess(t *testing.T) {
	converter := NewConverter(writeStubConverter(t, "cat >/dev/null\nprintf 'converted'"))

	got, err := converter.Convert("@misc{x}", BibToCSL)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if got != "converted" {
		t.Errorf("Convert: got %q, want %q", got, "converted")
	}
}

func TestConvertFailureCarriesInput(t *testing.T) {
	converter := NewConverter(writeStubConverter(t, "echo 'bad entry' >&2\nexit 1"))

	_, err := converter.Convert("@misc{broken", BibToCSL)
	if err == nil {
		t.Fatal("expected error")
	}
	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("expected ConversionError, got %T", err)
	}
	if convErr.Input != "@misc{broken" {
		t.Errorf("Input: got %q", convErr.Input)
	}
	if !strings.Contains(err.Error(), "@misc{broken") {
		t.Error("error message does not carry the offending input")
	}
	if !strings.Contains(convErr.Reason, "bad entry") {
		t.Errorf("Reason: got %q, want converter stderr", convErr.Reason)
	}
}

func TestConvertUnknownDirection(t *testing.T) {
	converter := NewConverter(writeStubConverter(t, "exit 0"))

	_, err := converter.Convert("x", Direction("sideways"))
	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("expected ConversionError, got %v", err)
	}
}

func TestParseRecords(t *testing.T) {
	converter := NewConverter(writeStubConverter(t,
		`cat >/dev/null
printf '[{"id":"one","title":"T1"},{"id":"two","title":"T2"}]'`))

	records, err := converter.ParseRecords("@misc{one}\n@misc{two}")
	if err != nil {
		t.Fatalf("ParseRecords: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].ID() != "one" || records[1].ID() != "two" {
		t.Errorf("record ids: %q, %q", records[0].ID(), records[1].ID())
	}
}

func TestParseRecordsUnparsableOutput(t *testing.T) {
	converter := NewConverter(writeStubConverter(t, "cat >/dev/null\nprintf 'not json'"))

	_, err := converter.ParseRecords("@misc{x}")
	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("expected ConversionError, got %v", err)
	}
	if !strings.Contains(convErr.Reason, "unparsable") {
		t.Errorf("Reason: got %q", convErr.Reason)
	}
}

func TestRenderRecordsSortsByID(t *testing.T) {
	// The stub echoes its input, so the rendered output exposes the
	// serialization order.
	converter := NewConverter(writeStubConverter(t, "cat"))

	out, err := converter.RenderRecords([]Record{
		{"id": "zebra"},
		{"id": "aardvark"},
	})
	if err != nil {
		t.Fatalf("RenderRecords: %v", err)
	}
	if strings.Index(out, "aardvark") > strings.Index(out, "zebra") {
		t.Errorf("records not sorted by id: %s", out)
	}
}
