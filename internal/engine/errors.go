package engine

import (
	"errors"

	"github.com/stornetlabs/stornet/internal/beacon"
	"github.com/stornetlabs/stornet/internal/prover"
	"github.com/stornetlabs/stornet/internal/provider"
)

// The engine's callers see one error surface. Errors originating in inner
// packages are re-exported here so hosts do not import them directly.
var (
	// ErrSeedNotReady rejects scheduling for an epoch whose randomness has
	// not been finalized. Retry after finalization.
	ErrSeedNotReady = beacon.ErrSeedNotReady

	// ErrInsufficientStake rejects a registration below the minimum stake.
	ErrInsufficientStake = provider.ErrInsufficientStake

	// ErrDataUnavailable means proof construction could not obtain chunk
	// bytes. Recoverable by retry; distinct from a failed verification.
	ErrDataUnavailable = prover.ErrDataUnavailable

	// ErrDuplicateChallenge rejects an operation replaying an already
	// answered challenge key.
	ErrDuplicateChallenge = errors.New("engine: challenge already resolved")

	// ErrPartialProof rejects a submission that does not cover exactly the
	// challenged index set. Scored as a miss.
	ErrPartialProof = errors.New("engine: submission does not cover challenged indices")

	// ErrInvalidProof rejects a submission whose trace does not reconstruct
	// the committed root. Scored as a miss.
	ErrInvalidProof = errors.New("engine: proof does not verify against committed root")

	// ErrUnknownChallenge rejects a submission for a key with no open
	// challenge: never issued, already missed, or past its deadline.
	ErrUnknownChallenge = errors.New("engine: no open challenge for key")

	// ErrEpochRegression rejects scheduling an epoch at or before one
	// already scheduled.
	ErrEpochRegression = errors.New("engine: epoch already scheduled")
)
