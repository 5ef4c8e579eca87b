// Package proof verifies challenge submissions. Verification is a pure
// function of the challenge and the submission: no hidden state, no side
// effects, deterministic. Persisting the outcome is the engine's job.
package proof

import (
	"github.com/stornetlabs/stornet/internal/challenge"
)

// Item is one proven chunk: its index, its bytes and the inclusion trace
// reconstructing the challenged root.
type Item struct {
	Index uint32
	Chunk []byte
	Trace [][]byte
}

// Submission is a provider's answer to one challenge. It is transient:
// validated, scored, discarded.
type Submission struct {
	Challenge challenge.Key
	Items     []Item
}

// Verdict is the outcome of verifying one submission.
type Verdict uint8

const (
	Accept Verdict = iota
	// RejectPartialProof: the submitted index set does not exactly equal
	// the required one. Partial proofs earn no partial credit.
	RejectPartialProof
	// RejectInvalidProof: some chunk failed trace verification. One bad
	// chunk rejects the whole submission.
	RejectInvalidProof
	// RejectResolved: the challenge already reached a terminal state.
	RejectResolved
	// RejectExpired: the challenge's deadline epoch has passed.
	RejectExpired
)

func (v Verdict) String() string {
	switch v {
	case Accept:
		return "accept"
	case RejectPartialProof:
		return "reject:partial-proof"
	case RejectInvalidProof:
		return "reject:invalid-proof"
	case RejectResolved:
		return "reject:resolved"
	case RejectExpired:
		return "reject:expired"
	default:
		return "unknown"
	}
}
