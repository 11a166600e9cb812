package history

import "errors"

var (
	// ErrNoDataInRange is returned when no table holds a bucket in the range.
	ErrNoDataInRange = errors.New("history: no data in range")
	// ErrInvalidQuery is returned for an empty or inverted range.
	ErrInvalidQuery = errors.New("history: invalid query")
)
