// Package importer turns loosely-structured status spreadsheets into
// normalized day entries. Sheets follow a run-length convention: Team,
// Employee and Question cells are sparse, and a value applies to every
// following row until the column supplies a new one. The remaining columns
// are answer-date columns recognized by header shape.
package importer

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoValidRecords signals a pipeline-level failure: not a single row
// survived parsing. Individual bad rows are only per-row diagnostics.
var ErrNoValidRecords = errors.New("no valid records found in sheet")

// Sheet is a decoded tabular upload: one header row plus data rows.
type Sheet struct {
	Headers []string   `json:"headers" validate:"required,min=1"`
	Rows    [][]string `json:"rows" validate:"required,min=1"`
}

// FlatRecord is one (team, employee, question, date, answer) observation
// after carry-forward expansion, before day grouping.
type FlatRecord struct {
	Team     string
	Employee string
	Question string
	Date     time.Time
	Answer   string
	IsLeave  bool

	// DateFallback marks answers whose column header could not be parsed as
	// a real date and fell back to the import time.
	DateFallback bool
}

// QA is a question/answer pair inside a day entry.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// DayEntry is the grouped unit the reconciliation engine consumes: one
// (team, employee, date) with either a leave reason or a response list.
type DayEntry struct {
	Team     string    `json:"team"`
	Employee string    `json:"employee"`
	Date     time.Time `json:"date"`

	IsLeave     bool   `json:"is_leave"`
	LeaveReason string `json:"leave_reason,omitempty"`
	Responses   []QA   `json:"responses,omitempty"`

	DateFallback bool `json:"-"`
}

// RowError is a structured per-row diagnostic; it never aborts the pipeline.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Result is the full outcome of parsing one sheet.
type Result struct {
	Entries   []DayEntry `json:"entries"`
	RowErrors []RowError `json:"row_errors,omitempty"`

	// LeaveDominated counts day entries whose content answers were discarded
	// because a leave indicator appeared on the same day.
	LeaveDominated int `json:"leave_dominated"`
	// DateFallbacks counts answer cells filed under the import time because
	// their column header would not parse as a date.
	DateFallbacks int `json:"date_fallbacks"`
}

// leave vocabulary, matched case-insensitively on the trimmed answer.
var leaveVocabulary = map[string]struct{}{
	"leave":            {},
	"absent":           {},
	"sick leave":       {},
	"off":              {},
	"optional holiday": {},
}

// IsLeaveIndicator reports whether an answer cell marks the day as leave.
func IsLeaveIndicator(answer string) bool {
	_, ok := leaveVocabulary[strings.ToLower(strings.TrimSpace(answer))]
	return ok
}

// carryContext threads the three "current" pointers through the row fold.
// It is a value type: each row derives a new context instead of mutating
// shared state.
type carryContext struct {
	team     string
	employee string
	question string
}

func (ctx carryContext) advance(team, employee, question string) carryContext {
	if v := strings.TrimSpace(team); v != "" {
		ctx.team = v
		// A new team resets nothing below it; sheets repeat the employee and
		// question cells whenever they change.
	}
	if v := strings.TrimSpace(employee); v != "" {
		ctx.employee = v
	}
	if v := strings.TrimSpace(question); v != "" {
		ctx.question = v
	}
	return ctx
}

func (ctx carryContext) missing() []string {
	var fields []string
	if ctx.team == "" {
		fields = append(fields, "team")
	}
	if ctx.employee == "" {
		fields = append(fields, "employee")
	}
	if ctx.question == "" {
		fields = append(fields, "question")
	}
	return fields
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func rowEmpty(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Flatten folds the ordered rows into flat records, carrying team, employee
// and question forward across sparse cells. Rows that still lack one of the
// three pointers are collected as row errors and skipped.
func Flatten(sheet *Sheet, now time.Time) ([]FlatRecord, []RowError, error) {
	layout, err := DetectLayout(sheet.Headers)
	if err != nil {
		return nil, nil, err
	}

	var (
		records []FlatRecord
		rowErrs []RowError
		ctx     carryContext
	)

	for i, row := range sheet.Rows {
		if rowEmpty(row) {
			continue
		}
		// Row numbers are 1-based and account for the header row.
		rowNum := i + 2

		ctx = ctx.advance(
			cell(row, layout.TeamCol),
			cell(row, layout.EmployeeCol),
			cell(row, layout.QuestionCol),
		)

		if missing := ctx.missing(); len(missing) > 0 {
			rowErrs = append(rowErrs, RowError{
				Row:    rowNum,
				Reason: fmt.Sprintf("missing %s", strings.Join(missing, ", ")),
			})
			continue
		}

		for _, dc := range layout.DateCols {
			answer := strings.TrimSpace(cell(row, dc.Index))
			if answer == "" {
				continue
			}
			date, parsed := ParseHeaderDate(dc.Header, now)
			records = append(records, FlatRecord{
				Team:         ctx.team,
				Employee:     ctx.employee,
				Question:     ctx.question,
				Date:         date,
				Answer:       answer,
				IsLeave:      IsLeaveIndicator(answer),
				DateFallback: !parsed,
			})
		}
	}

	return records, rowErrs, nil
}

// GroupByDay merges flat records into one entry per (team, employee, date),
// in first-seen order. If any record for a day is a leave indicator the whole
// day becomes a leave entry and its content answers are discarded.
func GroupByDay(records []FlatRecord) ([]DayEntry, int) {
	type dayKey struct {
		team     string
		employee string
		date     time.Time
	}

	index := make(map[dayKey]int)
	var entries []DayEntry
	dominated := 0

	for _, rec := range records {
		key := dayKey{rec.Team, rec.Employee, rec.Date}
		at, ok := index[key]
		if !ok {
			index[key] = len(entries)
			entries = append(entries, DayEntry{
				Team:         rec.Team,
				Employee:     rec.Employee,
				Date:         rec.Date,
				DateFallback: rec.DateFallback,
			})
			at = len(entries) - 1
		}
		entry := &entries[at]
		entry.DateFallback = entry.DateFallback || rec.DateFallback

		if rec.IsLeave {
			if !entry.IsLeave && len(entry.Responses) > 0 {
				dominated++
			}
			entry.IsLeave = true
			entry.LeaveReason = rec.Answer
			entry.Responses = nil
			continue
		}
		if entry.IsLeave {
			// Leave dominates: later content answers for the day are dropped.
			dominated++
			continue
		}
		entry.Responses = append(entry.Responses, QA{
			Question: rec.Question,
			Answer:   rec.Answer,
		})
	}

	return entries, dominated
}

// Process runs the whole parse: flatten, group, tally diagnostics. It fails
// only when the sheet layout is unusable or no valid entry was produced.
func Process(sheet *Sheet, now time.Time) (*Result, error) {
	records, rowErrs, err := Flatten(sheet, now)
	if err != nil {
		return nil, err
	}

	entries, dominated := GroupByDay(records)

	fallbacks := 0
	for _, rec := range records {
		if rec.DateFallback {
			fallbacks++
		}
	}

	result := &Result{
		Entries:        entries,
		RowErrors:      rowErrs,
		LeaveDominated: dominated,
		DateFallbacks:  fallbacks,
	}
	if len(entries) == 0 {
		return result, ErrNoValidRecords
	}
	return result, nil
}
