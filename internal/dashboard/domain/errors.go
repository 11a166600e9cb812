package dashboard

import "errors"

var (
	// ErrSkipped means a provider is not configured for this request.
	ErrSkipped = errors.New("dashboard: provider skipped")
	// ErrProviderUnavailable wraps transport and subprocess failures.
	ErrProviderUnavailable = errors.New("dashboard: provider unavailable")
	// ErrInvalidPayload means a provider answered with a malformed payload.
	ErrInvalidPayload = errors.New("dashboard: invalid payload")
	// ErrNoData means a provider had nothing for the requested range.
	ErrNoData = errors.New("dashboard: no data")
)
