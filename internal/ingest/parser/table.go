package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// PreferredSheet is read when a workbook contains it and no sheet is requested.
const PreferredSheet = "All_15min"

// Table is the raw cell grid of one file.
type Table struct {
	Sheet string
	Rows  [][]string
}

// Options tune how a file is read.
type Options struct {
	// Sheet selects a workbook sheet by name.
	Sheet string
}

// Supported reports whether the extension of name can be read.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", ".tsv", ".xlsx", ".xlsm":
		return true
	default:
		return false
	}
}

// Read dispatches on the file extension.
func Read(name string, r io.Reader, opts Options) (Table, error) {
	var (
		table Table
		err   error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", ".tsv":
		table, err = ReadDelimited(r)
	case ".xlsx", ".xlsm":
		table, err = ReadWorkbook(r, opts.Sheet)
	default:
		return Table{}, fmt.Errorf("%w: %s", ErrUnsupportedExtension, filepath.Ext(name))
	}
	if err != nil {
		return Table{}, err
	}
	if len(table.Rows) == 0 {
		return Table{}, ErrEmptyFile
	}
	return table, nil
}
