package domain

import "errors"

// Error kinds surfaced by the backtester, the benchmark aligner and the
// price feeds. Callers match them with errors.Is; the wrapped message carries
// the detail.
var (
	// ErrInvalidParameter reports a non-positive window or a malformed series.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInsufficientData reports fewer observations than the window needs.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrMissingColumn reports input data without a required price column.
	ErrMissingColumn = errors.New("missing column")

	// ErrAlignment reports a benchmark that lacks reference dates.
	ErrAlignment = errors.New("alignment error")
)
