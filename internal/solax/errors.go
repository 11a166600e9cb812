package solax

import "errors"

var (
	// ErrNotConfigured is returned when token id or wifi serial is missing.
	ErrNotConfigured = errors.New("solax: credentials not configured")
	// ErrNoResult is returned when the API answers without a realtime result.
	ErrNoResult = errors.New("solax: no realtime result")
)
