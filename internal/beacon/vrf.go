package beacon

import (
	"sync"

	"github.com/stornetlabs/stornet/internal/crypto"
	"github.com/stornetlabs/stornet/internal/crypto/ed25519"
	"github.com/stornetlabs/stornet/internal/epoch"
)

// VRFBeacon derives epoch seeds from deterministic ed25519 signatures of the
// beacon authority: the seed value is the hash of the signature over the
// epoch's VRF input. The signature is the proof; verification needs only the
// authority's public key. Seeds are withheld until the consensus layer
// reports the epoch's randomness input finalized, mirroring the one-epoch-ago
// rule of relay-chain randomness.
type VRFBeacon struct {
	mu        sync.RWMutex
	key       ed25519.PrivateKey
	authority crypto.Ed25519PublicKey
	finalized epoch.Epoch
	hasFinal  bool
}

func NewVRFBeacon(key ed25519.PrivateKey) *VRFBeacon {
	var authority crypto.Ed25519PublicKey
	copy(authority[:], key.Public().(ed25519.PublicKey))
	return &VRFBeacon{key: key, authority: authority}
}

// Finalize records that the consensus layer has finalized the randomness
// input for epochs up to and including e. Finalization never regresses.
func (b *VRFBeacon) Finalize(e epoch.Epoch) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasFinal || e > b.finalized {
		b.finalized = e
		b.hasFinal = true
	}
}

func (b *VRFBeacon) CurrentSeed(e epoch.Epoch) (RandomSeed, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.hasFinal || e > b.finalized {
		return RandomSeed{}, ErrSeedNotReady
	}

	sig := ed25519.Sign(b.key, seedMessage(e))

	var proof crypto.Ed25519Signature
	copy(proof[:], sig)

	return RandomSeed{
		Epoch:     e,
		Value:     crypto.HashData(sig),
		Proof:     proof,
		Authority: b.authority,
	}, nil
}

func (b *VRFBeacon) VerifySeed(seed RandomSeed) bool {
	if seed.Value != crypto.HashData(seed.Proof[:]) {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(seed.Authority[:]), seedMessage(seed.Epoch), seed.Proof[:])
}
