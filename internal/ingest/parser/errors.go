package parser

import "errors"

var (
	// ErrUnsupportedExtension is returned for files that are neither delimited text nor xlsx.
	ErrUnsupportedExtension = errors.New("parser: unsupported extension")
	// ErrEmptyFile is returned when a file has no rows.
	ErrEmptyFile = errors.New("parser: empty file")
	// ErrSheetNotFound is returned when a requested sheet does not exist.
	ErrSheetNotFound = errors.New("parser: sheet not found")
)
