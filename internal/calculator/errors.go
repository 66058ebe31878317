package calculator

import "errors"

var (
	// ErrInsufficientData is returned when there is not enough data for a computation,
	// e.g. an empty series or fewer than two extrema.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidNumeric is returned when a non-numeric value enters a computation.
	ErrInvalidNumeric = errors.New("invalid numeric value")
	// ErrConfiguration is returned for malformed computation parameters.
	ErrConfiguration = errors.New("invalid configuration")
)
