package importer

import (
	"errors"
	"io"

	"github.com/xuri/excelize/v2"
)

// DecodeWorkbook reads the first sheet of an uploaded .xlsx workbook into a
// Sheet: first row as headers, remaining rows as data.
func DecodeWorkbook(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, errors.New("sheet must have a header row and at least one data row")
	}

	return &Sheet{Headers: rows[0], Rows: rows[1:]}, nil
}
