package ingest

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidTimestamp is returned when a row timestamp cannot be normalized.
	ErrInvalidTimestamp = errors.New("ingest: invalid timestamp")
	// ErrNoValidData is returned when a file yields no usable sample.
	ErrNoValidData = errors.New("ingest: no valid data")
	// ErrInvalidInterval is returned when a bucket width is not positive.
	ErrInvalidInterval = errors.New("ingest: invalid interval")
	// ErrUnknownKind is returned for a source kind without a row mapper.
	ErrUnknownKind = errors.New("ingest: unknown source kind")
)

// MissingColumnsError lists the required logical columns a file lacks.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("ingest: missing columns: %s", strings.Join(e.Columns, ", "))
}
