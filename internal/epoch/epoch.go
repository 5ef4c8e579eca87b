// Package epoch defines the challenge-round clock of the protocol. Each
// epoch the randomness beacon is refreshed and a new set of storage
// challenges is issued; a challenge unanswered by the end of its epoch is
// missed.
package epoch

import "time"

// Epoch represents a challenge round.
type Epoch uint32

const (
	// MinEpoch is the first epoch of the protocol.
	MinEpoch Epoch = 0

	// MaxEpoch is the last representable epoch.
	MaxEpoch Epoch = ^Epoch(0)

	// Duration is the wall-clock length of one epoch. Challenge deadlines
	// are expressed in epochs, not wall-clock time; the duration only
	// matters to hosts driving ScheduleEpoch off a timer.
	Duration = time.Hour
)

// Next returns the following epoch.
func (e Epoch) Next() (Epoch, error) {
	if e == MaxEpoch {
		return e, ErrMaxEpochReached
	}
	return e + 1, nil
}

// Previous returns the preceding epoch.
func (e Epoch) Previous() (Epoch, error) {
	if e == MinEpoch {
		return e, ErrMinEpochReached
	}
	return e - 1, nil
}

// Deadline returns the epoch at whose boundary a challenge issued in e
// expires. Challenges must be answered within their own epoch.
func (e Epoch) Deadline() Epoch {
	return e
}
