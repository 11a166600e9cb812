package parser

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ReadWorkbook reads one sheet of an xlsx workbook with raw cell values so
// date cells arrive as serial numbers.
func ReadWorkbook(r io.Reader, sheet string) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("parser: open workbook: %w", err)
	}
	defer f.Close()

	name, err := pickSheet(f.GetSheetList(), sheet)
	if err != nil {
		return Table{}, err
	}
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return Table{}, fmt.Errorf("parser: read sheet %s: %w", name, err)
	}
	return Table{Sheet: name, Rows: rows}, nil
}

func pickSheet(sheets []string, requested string) (string, error) {
	if len(sheets) == 0 {
		return "", ErrEmptyFile
	}
	if requested != "" {
		for _, s := range sheets {
			if s == requested {
				return s, nil
			}
		}
		return "", fmt.Errorf("%w: %s", ErrSheetNotFound, requested)
	}
	for _, s := range sheets {
		if s == PreferredSheet {
			return s, nil
		}
	}
	return sheets[0], nil
}
