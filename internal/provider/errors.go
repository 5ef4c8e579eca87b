package provider

import "errors"

var (
	// ErrInsufficientStake is returned when a registration's stake is below
	// the protocol minimum. Fully recoverable by supplying more stake.
	ErrInsufficientStake = errors.New("provider: stake below protocol minimum")

	// ErrInvalidKey is returned when a registration presents an empty or
	// all-zero public key.
	ErrInvalidKey = errors.New("provider: invalid public key")

	// ErrAlreadyRegistered is returned when registering an already known key.
	ErrAlreadyRegistered = errors.New("provider: already registered")

	// ErrNotRegistered is returned for operations on an unknown provider.
	ErrNotRegistered = errors.New("provider: not registered")

	// ErrAlreadyAssigned is returned when assigning a file a provider
	// already holds.
	ErrAlreadyAssigned = errors.New("provider: file already assigned")

	// ErrUnknownAssignment is returned for operations on a (provider, file)
	// pair with no active assignment.
	ErrUnknownAssignment = errors.New("provider: no such assignment")

	// ErrAssignmentsActive is returned when a provider attempts a voluntary
	// exit while still holding active assignments.
	ErrAssignmentsActive = errors.New("provider: assignments still active")
)
