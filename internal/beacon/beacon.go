// Package beacon supplies the per-epoch random seeds that make storage
// challenges unpredictable. Seeds are bound to the consensus layer through a
// verifiable random function: any party can check that a published seed was
// honestly derived for its epoch, and nobody can compute an epoch's seed
// before the consensus layer finalizes that epoch's randomness input.
package beacon

import (
	"encoding/binary"
	"errors"

	"github.com/stornetlabs/stornet/internal/crypto"
	"github.com/stornetlabs/stornet/internal/epoch"
)

// ErrSeedNotReady signals that randomness for the target epoch has not been
// finalized yet. Callers must defer scheduling, not retry in a tight loop.
var ErrSeedNotReady = errors.New("beacon: randomness for epoch not yet finalized")

// RandomSeed is the published randomness for one epoch, immutable once
// finalized. Proof binds Value to the beacon authority so every party can
// recheck the seed independently.
type RandomSeed struct {
	Epoch     epoch.Epoch
	Value     crypto.Hash
	Proof     crypto.Ed25519Signature
	Authority crypto.Ed25519PublicKey
}

// Beacon is the randomness capability the scheduler consumes. Production
// implementations plug in a real VRF source over consensus state; tests use
// the deterministic stub.
type Beacon interface {
	// CurrentSeed returns the seed for the given epoch, or ErrSeedNotReady
	// while the epoch's randomness input is not yet finalized.
	CurrentSeed(e epoch.Epoch) (RandomSeed, error)

	// VerifySeed re-derives the VRF check for a published seed.
	VerifySeed(seed RandomSeed) bool
}

// seedMessage is the VRF input for an epoch. The domain tag keeps beacon
// signatures disjoint from any other signing done with the same key.
func seedMessage(e epoch.Epoch) []byte {
	msg := make([]byte, 0, 24)
	msg = append(msg, []byte("stornet/beacon/v1")...)
	var epochBytes [4]byte
	binary.LittleEndian.PutUint32(epochBytes[:], uint32(e))
	return append(msg, epochBytes[:]...)
}
