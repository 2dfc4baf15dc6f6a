package reports

import (
	"bytes"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Status Report"

// Workbook cell styling. Weekend shading is a neutral fill; literal RAG
// answers get semantic fills; leave text keeps its own font color even on
// weekend columns.
type styleSet struct {
	header       int
	label        int
	weekend      int
	red          int
	green        int
	amber        int
	leave        int
	leaveWeekend int
}

func buildStyles(f *excelize.File) (styleSet, error) {
	var s styleSet
	var err error

	if s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	}); err != nil {
		return s, err
	}
	if s.label, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	}); err != nil {
		return s, err
	}
	if s.weekend, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9D9D9"}},
	}); err != nil {
		return s, err
	}
	if s.red, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FFC7CE"}},
		Font: &excelize.Font{Color: "9C0006"},
	}); err != nil {
		return s, err
	}
	if s.green, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#C6EFCE"}},
		Font: &excelize.Font{Color: "006100"},
	}); err != nil {
		return s, err
	}
	if s.amber, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FFEB9C"}},
		Font: &excelize.Font{Color: "9C6500"},
	}); err != nil {
		return s, err
	}
	if s.leave, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "7030A0", Italic: true},
	}); err != nil {
		return s, err
	}
	if s.leaveWeekend, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9D9D9"}},
		Font: &excelize.Font{Color: "7030A0", Italic: true},
	}); err != nil {
		return s, err
	}
	return s, nil
}

func (s styleSet) forCell(c Cell) int {
	switch {
	case c.Leave && c.Weekend:
		return s.leaveWeekend
	case c.Leave:
		return s.leave
	case c.Color == "red":
		return s.red
	case c.Color == "green":
		return s.green
	case c.Color == "amber":
		return s.amber
	case c.Weekend:
		return s.weekend
	}
	return 0
}

// EncodeXLSX renders the grid into a downloadable workbook.
func EncodeXLSX(grid *Grid) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	styles, err := buildStyles(f)
	if err != nil {
		return nil, err
	}

	// Header row: three identity columns then one per date.
	headers := []string{"Team", "Employee", "Question"}
	for _, d := range grid.Dates {
		headers = append(headers, d.Format("02-Jan-2006"))
	}
	for col, h := range headers {
		cellRef, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStr(sheetName, cellRef, h); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheetName, cellRef, cellRef, styles.header); err != nil {
			return nil, err
		}
	}

	rows := grid.Rows()
	for ri, row := range rows {
		excelRow := ri + 2

		for col, label := range []string{row.Team, row.User, row.Question} {
			if label == "" {
				continue
			}
			cellRef, err := excelize.CoordinatesToCellName(col+1, excelRow)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellStr(sheetName, cellRef, label); err != nil {
				return nil, err
			}
			if col < 2 {
				if err := f.SetCellStyle(sheetName, cellRef, cellRef, styles.label); err != nil {
					return nil, err
				}
			}
		}

		for ci, c := range row.Cells {
			cellRef, err := excelize.CoordinatesToCellName(ci+4, excelRow)
			if err != nil {
				return nil, err
			}
			if c.Value != "" {
				if err := f.SetCellStr(sheetName, cellRef, c.Value); err != nil {
					return nil, err
				}
			}
			if style := styles.forCell(c); style != 0 {
				if err := f.SetCellStyle(sheetName, cellRef, cellRef, style); err != nil {
					return nil, err
				}
			}
		}
	}

	// Leave reasons span every question row of the user for that date.
	for _, span := range grid.LeaveSpans() {
		first, err := excelize.CoordinatesToCellName(span.DateIndex+4, span.FirstRow+2)
		if err != nil {
			return nil, err
		}
		last, err := excelize.CoordinatesToCellName(span.DateIndex+4, span.LastRow+2)
		if err != nil {
			return nil, err
		}
		if err := f.MergeCell(sheetName, first, last); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
