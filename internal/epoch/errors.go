package epoch

import "errors"

var (
	// ErrMinEpochReached is returned when attempting to get the previous
	// epoch from the minimum possible epoch value.
	ErrMinEpochReached = errors.New("minimum epoch reached")

	// ErrMaxEpochReached is returned when attempting to get the next epoch
	// from the maximum possible epoch value.
	ErrMaxEpochReached = errors.New("maximum epoch reached")
)
