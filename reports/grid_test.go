package reports

import (
	"testing"
)

// Mon 3-Mar-2025 through Sun 9-Mar-2025.
var (
	gridFrom = day(2025, 3, 3)
	gridTo   = day(2025, 3, 9)
)

func sampleRecords() []StatusRecord {
	return []StatusRecord{
		{
			Team: "Alpha", User: "Asha", Date: day(2025, 3, 3),
			Answers: []Answer{
				{Question: "What did you do?", Value: "built parser"},
				{Question: "Status?", Value: "Green"},
			},
		},
		{
			Team: "Alpha", User: "Asha", Date: day(2025, 3, 4),
			IsLeave: true, LeaveReason: "Sick Leave",
		},
		{
			Team: "Alpha", User: "Ben", Date: day(2025, 3, 3),
			Answers: []Answer{{Question: "What did you do?", Value: "wrote tests"}},
		},
		{
			Team: "Beta", User: "Chitra", Date: day(2025, 3, 5),
			Answers: []Answer{{Question: "Status?", Value: "red"}},
		},
	}
}

func TestRowsRunLengthSuppression(t *testing.T) {
	grid := BuildGrid(sampleRecords(), gridFrom, gridTo)
	rows := grid.Rows()

	// Asha has 2 questions, Ben 1, Chitra 1.
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}

	if rows[0].Team != "Alpha" || rows[0].User != "Asha" {
		t.Fatalf("first row should carry both labels: %+v", rows[0])
	}
	if rows[1].Team != "" || rows[1].User != "" {
		t.Fatalf("second question row should suppress labels: %+v", rows[1])
	}
	if rows[2].Team != "" || rows[2].User != "Ben" {
		t.Fatalf("new user in same team shows user only: %+v", rows[2])
	}
	if rows[3].Team != "Beta" || rows[3].User != "Chitra" {
		t.Fatalf("new team shows both labels: %+v", rows[3])
	}
}

func TestRowsLeaveFillsEveryQuestionRow(t *testing.T) {
	grid := BuildGrid(sampleRecords(), gridFrom, gridTo)
	rows := grid.Rows()

	// 4-Mar is index 1 in the date range.
	for _, ri := range []int{0, 1} {
		c := rows[ri].Cells[1]
		if !c.Leave || c.Value != "Sick Leave" {
			t.Fatalf("row %d leave cell = %+v", ri, c)
		}
	}
}

func TestLeaveSpansCoverUserBlock(t *testing.T) {
	grid := BuildGrid(sampleRecords(), gridFrom, gridTo)
	spans := grid.LeaveSpans()

	if len(spans) != 1 {
		t.Fatalf("expected 1 span (only Asha has >1 question rows), got %d", len(spans))
	}
	span := spans[0]
	if span.DateIndex != 1 || span.FirstRow != 0 || span.LastRow != 1 {
		t.Fatalf("unexpected span: %+v", span)
	}
}

func TestCellClassification(t *testing.T) {
	grid := BuildGrid(sampleRecords(), gridFrom, gridTo)
	rows := grid.Rows()

	// "Green" answer is colored regardless of case.
	if rows[1].Cells[0].Color != "green" {
		t.Fatalf("green cell = %+v", rows[1].Cells[0])
	}
	if rows[3].Cells[2].Color != "red" {
		t.Fatalf("red cell = %+v", rows[3].Cells[2])
	}

	// 8-Mar and 9-Mar are the weekend (indexes 5 and 6).
	for _, di := range []int{5, 6} {
		if !rows[0].Cells[di].Weekend {
			t.Fatalf("date index %d should be a weekend", di)
		}
	}
	if rows[0].Cells[0].Weekend {
		t.Fatal("Monday should not be a weekend")
	}
}

func TestBuildGridFiltersOutOfRangeRecords(t *testing.T) {
	records := append(sampleRecords(), StatusRecord{
		Team: "Alpha", User: "Asha", Date: day(2025, 3, 20),
		Answers: []Answer{{Question: "What did you do?", Value: "out of range"}},
	})

	grid := BuildGrid(records, gridFrom, gridTo)
	for _, row := range grid.Rows() {
		for _, c := range row.Cells {
			if c.Value == "out of range" {
				t.Fatal("record outside the range leaked into the grid")
			}
		}
	}
}

func TestRowsLeaveOnlyUserStillRendered(t *testing.T) {
	records := []StatusRecord{
		{Team: "Alpha", User: "Dev", Date: day(2025, 3, 3), IsLeave: true},
	}
	grid := BuildGrid(records, gridFrom, gridTo)
	rows := grid.Rows()

	if len(rows) != 1 {
		t.Fatalf("leave-only user needs one row, got %d", len(rows))
	}
	c := rows[0].Cells[0]
	if !c.Leave || c.Value != "Leave" {
		t.Fatalf("missing reason should default to %q, got %+v", "Leave", c)
	}
}

func TestEncodeXLSXProducesWorkbook(t *testing.T) {
	grid := BuildGrid(sampleRecords(), gridFrom, gridTo)

	payload, err := EncodeXLSX(grid)
	if err != nil {
		t.Fatalf("EncodeXLSX: %v", err)
	}
	if len(payload) == 0 {
		t.Fatal("empty workbook payload")
	}
	// xlsx files are zip archives.
	if payload[0] != 'P' || payload[1] != 'K' {
		t.Fatalf("payload does not look like a zip: % x", payload[:4])
	}
}

func TestAnswerColor(t *testing.T) {
	if AnswerColor(" RED ") != "red" || AnswerColor("Amber") != "amber" {
		t.Fatal("classification should trim and lowercase")
	}
	if AnswerColor("reddish") != "" {
		t.Fatal("only exact RAG words classify")
	}
}
