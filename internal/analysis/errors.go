package analysis

import "errors"

// Sentinel errors returned by the statistics engine. Callers match them
// with errors.Is after unwrapping.
var (
	// ErrInsufficientData indicates fewer than the required number of
	// observations for a computation (two prices for one return, two
	// returns for any sample statistic).
	ErrInsufficientData = errors.New("insufficient data")

	// ErrWeightMismatch indicates an invalid portfolio weight vector:
	// ticker set differs from the returns table, a negative weight, or a
	// sum outside the accepted tolerance.
	ErrWeightMismatch = errors.New("weight mismatch")
)
