// Package reports pivots status records into a team → user → question × date
// grid and encodes it as a styled Excel workbook.
package reports

import (
	"errors"
	"fmt"
	"time"
)

const (
	dateParam  = "2006-01-02"
	monthParam = "2006-01"
)

// ResolveDateRange turns the query filters into an inclusive day range.
// Precedence when several are given:
//
//	start+end > start-only (through today) > end-only (from the 1st of that
//	month) > explicit month > current month.
func ResolveDateRange(start, end, month string, now time.Time) (time.Time, time.Time, error) {
	var zero time.Time

	parseDay := func(s string) (time.Time, error) {
		t, err := time.Parse(dateParam, s)
		if err != nil {
			return zero, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
		}
		return t, nil
	}

	today := dayOf(now)

	switch {
	case start != "" && end != "":
		from, err := parseDay(start)
		if err != nil {
			return zero, zero, err
		}
		to, err := parseDay(end)
		if err != nil {
			return zero, zero, err
		}
		if to.Before(from) {
			return zero, zero, errors.New("end date is before start date")
		}
		return dayOf(from), dayOf(to), nil

	case start != "":
		from, err := parseDay(start)
		if err != nil {
			return zero, zero, err
		}
		from = dayOf(from)
		if today.Before(from) {
			return zero, zero, errors.New("start date is in the future")
		}
		return from, today, nil

	case end != "":
		to, err := parseDay(end)
		if err != nil {
			return zero, zero, err
		}
		to = dayOf(to)
		from := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
		return from, to, nil

	case month != "":
		m, err := time.Parse(monthParam, month)
		if err != nil {
			return zero, zero, fmt.Errorf("invalid month %q (want YYYY-MM)", month)
		}
		from := time.Date(m.Year(), m.Month(), 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 1, -1)
		return from, to, nil
	}

	// Default: current month to date.
	from := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	return from, today, nil
}

// DatesBetween expands an inclusive day range into its calendar days.
func DatesBetween(from, to time.Time) []time.Time {
	var dates []time.Time
	for d := dayOf(from); !d.After(dayOf(to)); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
