package importer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Layout maps the sheet's named columns to indexes. DateCols holds every
// header that looks like an answer-date column.
type Layout struct {
	TeamCol     int
	EmployeeCol int
	QuestionCol int
	DateCols    []DateColumn
}

// DateColumn is one answer-date column with its raw header text.
type DateColumn struct {
	Index  int
	Header string
}

// Header shape for a date column: digit(s), a separator, then a month-like
// token. Structural match only; real parsing happens in ParseHeaderDate.
var dateHeaderPattern = regexp.MustCompile(`^\s*\d{1,2}\s*[-/. ]\s*[A-Za-z]{3,}`)

// IsDateHeader reports whether a header cell is treated as a date column.
func IsDateHeader(header string) bool {
	return dateHeaderPattern.MatchString(header)
}

// DetectLayout resolves the Team/Employee/Question columns by name and
// collects the date columns by shape.
func DetectLayout(headers []string) (Layout, error) {
	layout := Layout{TeamCol: -1, EmployeeCol: -1, QuestionCol: -1}

	for i, h := range headers {
		name := strings.ToLower(strings.TrimSpace(h))
		switch name {
		case "team":
			layout.TeamCol = i
		case "employee", "employee name", "name":
			layout.EmployeeCol = i
		case "question", "questions":
			layout.QuestionCol = i
		default:
			if IsDateHeader(h) {
				layout.DateCols = append(layout.DateCols, DateColumn{Index: i, Header: h})
			}
		}
	}

	var missing []string
	if layout.TeamCol < 0 {
		missing = append(missing, "Team")
	}
	if layout.EmployeeCol < 0 {
		missing = append(missing, "Employee")
	}
	if layout.QuestionCol < 0 {
		missing = append(missing, "Question")
	}
	if len(missing) > 0 {
		return layout, fmt.Errorf("sheet is missing required columns: %s", strings.Join(missing, ", "))
	}
	if len(layout.DateCols) == 0 {
		return layout, errors.New("sheet has no date columns")
	}
	return layout, nil
}

// Header date layouts tried in order. Yearless forms default to the current
// year of the import.
var headerDateLayouts = []string{
	"2-Jan-2006",
	"2-Jan-06",
	"2/Jan/2006",
	"2.Jan.2006",
	"2 Jan 2006",
	"2-January-2006",
	"2 January 2006",
}

var yearlessDateLayouts = []string{
	"2-Jan",
	"2/Jan",
	"2.Jan",
	"2 Jan",
	"2-January",
	"2 January",
}

// ParseHeaderDate converts a date-column header into the start of its
// calendar day. Conversion is best-effort: yearless headers assume the
// current year, and anything unparseable falls back to "now" so a bad cell
// never hard-fails the import. The second return value is false on fallback.
func ParseHeaderDate(header string, now time.Time) (time.Time, bool) {
	raw := strings.TrimSpace(header)

	for _, layout := range headerDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return dayOf(t), true
		}
	}
	for _, layout := range yearlessDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return dayOf(now), false
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
