package market

import "errors"

var (
	// ErrInvalidInput marks a raw bar that is missing a field or carries a non-numeric,
	// non-finite or negative value
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientData marks a series shorter than an operation's minimum window
	ErrInsufficientData = errors.New("insufficient data")
)
