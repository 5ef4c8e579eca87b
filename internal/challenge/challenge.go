// Package challenge derives and tracks per-epoch storage challenges. Which
// chunks a provider must prove is a deterministic function of the epoch
// seed, the provider and the file, unpredictable before the seed finalizes.
package challenge

import (
	"github.com/stornetlabs/stornet/internal/crypto"
	"github.com/stornetlabs/stornet/internal/epoch"
)

// State is the lifecycle of a challenge. Answered and Missed are terminal.
type State uint8

const (
	Open State = iota
	Answered
	Missed
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Answered:
		return "answered"
	case Missed:
		return "missed"
	default:
		return "unknown"
	}
}

// Key uniquely identifies a challenge. Every mutation in the engine is keyed
// on it, which is what makes per-epoch operations commute.
type Key struct {
	Provider crypto.ProviderPublicKey
	FileID   crypto.Hash
	Epoch    epoch.Epoch
}

// Challenge is one storage challenge: the provider must prove possession of
// the selected chunks of the file, against the root captured at issuance,
// before the deadline epoch ends.
type Challenge struct {
	Key        Key
	Root       crypto.Hash
	ChunkCount uint32
	Indices    []uint32
	Deadline   epoch.Epoch
	State      State
}

// Resolved reports whether the challenge reached a terminal state.
func (c *Challenge) Resolved() bool {
	return c.State != Open
}
