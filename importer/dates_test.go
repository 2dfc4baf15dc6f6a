package importer

import (
	"strings"
	"testing"
	"time"
)

func TestDetectLayout(t *testing.T) {
	layout, err := DetectLayout([]string{"Team", "Employee Name", "Questions", "3-Mar-2025", "4/Mar/2025", "Notes"})
	if err != nil {
		t.Fatalf("DetectLayout: %v", err)
	}
	if layout.TeamCol != 0 || layout.EmployeeCol != 1 || layout.QuestionCol != 2 {
		t.Fatalf("unexpected named columns: %+v", layout)
	}
	if len(layout.DateCols) != 2 {
		t.Fatalf("expected 2 date columns, got %d", len(layout.DateCols))
	}
	// "Notes" is neither a named column nor date-shaped.
	for _, dc := range layout.DateCols {
		if dc.Header == "Notes" {
			t.Fatal("Notes should not be a date column")
		}
	}
}

func TestDetectLayoutMissingColumns(t *testing.T) {
	_, err := DetectLayout([]string{"Employee", "3-Mar-2025"})
	if err == nil {
		t.Fatal("expected an error for missing columns")
	}
	if !strings.Contains(err.Error(), "Team") || !strings.Contains(err.Error(), "Question") {
		t.Fatalf("error should name the missing columns, got %q", err)
	}

	_, err = DetectLayout([]string{"Team", "Employee", "Question"})
	if err == nil || !strings.Contains(err.Error(), "no date columns") {
		t.Fatalf("expected no-date-columns error, got %v", err)
	}
}

func TestIsDateHeader(t *testing.T) {
	for _, h := range []string{"3-Mar-2025", "12/March/2024", "3 Mar", " 7.Jan.2025", "3-Mar extra"} {
		if !IsDateHeader(h) {
			t.Fatalf("%q should be a date header", h)
		}
	}
	for _, h := range []string{"Team", "Mar-3", "2025-03-03", "question 1"} {
		if IsDateHeader(h) {
			t.Fatalf("%q should not be a date header", h)
		}
	}
}

func TestParseHeaderDate(t *testing.T) {
	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

	got, ok := ParseHeaderDate("3-Mar-2025", now)
	if !ok || !got.Equal(time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("full date: got %v ok=%v", got, ok)
	}

	// Yearless headers assume the import year.
	got, ok = ParseHeaderDate("4 Mar", now)
	if !ok || got.Year() != 2025 || got.Month() != time.March || got.Day() != 4 {
		t.Fatalf("yearless date: got %v ok=%v", got, ok)
	}

	// Unparseable headers fall back to the import day and report it.
	got, ok = ParseHeaderDate("not a date", now)
	if ok {
		t.Fatal("garbage header should report fallback")
	}
	if !got.Equal(time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("fallback should be the import day, got %v", got)
	}
}
