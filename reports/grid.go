package reports

import (
	"sort"
	"strings"
	"time"
)

// Answer is one question/answer pair from a status record.
type Answer struct {
	Question string
	Value    string
}

// StatusRecord is the export engine's input: one reconciled day entry with
// its team and user already resolved to display names.
type StatusRecord struct {
	Team        string
	User        string
	Date        time.Time
	IsLeave     bool
	LeaveReason string
	Answers     []Answer
}

// Cell is one date cell of the rendered grid with its display classification.
type Cell struct {
	Value   string
	Leave   bool
	Weekend bool
	Color   string // "", "red", "green" or "amber"
}

// RenderedRow is one output row. Team and User are blank on every row but
// the first of their group (run-length suppression, the inverse of the
// import's carry-forward expansion).
type RenderedRow struct {
	Team     string
	User     string
	Question string
	Cells    []Cell
}

// userBlock groups one user's question rows so the encoder can merge leave
// cells vertically across them.
type userBlock struct {
	Team      string
	User      string
	Questions []string
	answers   map[string]map[time.Time]string
	leaves    map[time.Time]string
}

// Grid is the pivoted report: one block per (team, user), one row per
// question inside a block, one column per day in the range.
type Grid struct {
	Dates  []time.Time
	blocks []userBlock
}

// AnswerColor classifies literal RAG answers for conditional styling.
func AnswerColor(answer string) string {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "red":
		return "red"
	case "green":
		return "green"
	case "amber":
		return "amber"
	}
	return ""
}

// IsWeekend reports whether the day gets the neutral weekend shading.
func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// BuildGrid pivots records into the grid for the inclusive [from, to] range.
// Teams and users are ordered by name; a user's questions keep their
// first-seen order across the date-ordered records.
func BuildGrid(records []StatusRecord, from, to time.Time) *Grid {
	grid := &Grid{Dates: DatesBetween(from, to)}

	type userKey struct{ team, user string }
	blockAt := make(map[userKey]int)

	sorted := make([]StatusRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Team != sorted[j].Team {
			return sorted[i].Team < sorted[j].Team
		}
		if sorted[i].User != sorted[j].User {
			return sorted[i].User < sorted[j].User
		}
		return sorted[i].Date.Before(sorted[j].Date)
	})

	for _, rec := range sorted {
		day := dayOf(rec.Date)
		if day.Before(dayOf(from)) || day.After(dayOf(to)) {
			continue
		}

		key := userKey{rec.Team, rec.User}
		at, ok := blockAt[key]
		if !ok {
			blockAt[key] = len(grid.blocks)
			grid.blocks = append(grid.blocks, userBlock{
				Team:    rec.Team,
				User:    rec.User,
				answers: make(map[string]map[time.Time]string),
				leaves:  make(map[time.Time]string),
			})
			at = len(grid.blocks) - 1
		}
		block := &grid.blocks[at]

		if rec.IsLeave {
			reason := rec.LeaveReason
			if reason == "" {
				reason = "Leave"
			}
			block.leaves[day] = reason
			continue
		}
		for _, ans := range rec.Answers {
			byDate, ok := block.answers[ans.Question]
			if !ok {
				byDate = make(map[time.Time]string)
				block.answers[ans.Question] = byDate
				block.Questions = append(block.Questions, ans.Question)
			}
			byDate[day] = ans.Value
		}
	}

	return grid
}

// Rows renders the grid with run-length label suppression. The leave reason
// spans every question row of the user for that date.
func (g *Grid) Rows() []RenderedRow {
	var rows []RenderedRow
	prevTeam := ""

	for _, block := range g.blocks {
		questions := block.Questions
		if len(questions) == 0 {
			// A user with only leave entries still needs one row to carry them.
			questions = []string{""}
		}

		for qi, question := range questions {
			row := RenderedRow{Question: question}
			if qi == 0 {
				row.User = block.User
				if block.Team != prevTeam {
					row.Team = block.Team
					prevTeam = block.Team
				}
			}

			for _, date := range g.Dates {
				c := Cell{Weekend: IsWeekend(date)}
				if reason, onLeave := block.leaves[date]; onLeave {
					c.Value = reason
					c.Leave = true
				} else if byDate, ok := block.answers[question]; ok {
					c.Value = byDate[date]
					c.Color = AnswerColor(c.Value)
				}
				row.Cells = append(row.Cells, c)
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// LeaveSpans lists the vertical merge ranges for leave cells: for each user
// block with more than one question row, every leave date spans the block.
// Row indexes are offsets into Rows(); the encoder adds its own header
// offset.
type LeaveSpan struct {
	DateIndex int
	FirstRow  int
	LastRow   int
}

func (g *Grid) LeaveSpans() []LeaveSpan {
	var spans []LeaveSpan
	rowCursor := 0

	for _, block := range g.blocks {
		height := len(block.Questions)
		if height == 0 {
			height = 1
		}
		if height > 1 {
			for di, date := range g.Dates {
				if _, onLeave := block.leaves[date]; onLeave {
					spans = append(spans, LeaveSpan{
						DateIndex: di,
						FirstRow:  rowCursor,
						LastRow:   rowCursor + height - 1,
					})
				}
			}
		}
		rowCursor += height
	}
	return spans
}
