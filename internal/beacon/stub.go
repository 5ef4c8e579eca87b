package beacon

import (
	"github.com/stornetlabs/stornet/internal/crypto"
	"github.com/stornetlabs/stornet/internal/epoch"
)

// StubBeacon is a deterministic beacon for tests: the seed for an epoch is a
// pure function of the epoch number. Epochs beyond Finalized are Pending.
type StubBeacon struct {
	Finalized epoch.Epoch
}

func NewStubBeacon(finalized epoch.Epoch) *StubBeacon {
	return &StubBeacon{Finalized: finalized}
}

func (b *StubBeacon) CurrentSeed(e epoch.Epoch) (RandomSeed, error) {
	if e > b.Finalized {
		return RandomSeed{}, ErrSeedNotReady
	}
	return RandomSeed{
		Epoch: e,
		Value: crypto.HashData(seedMessage(e)),
	}, nil
}

func (b *StubBeacon) VerifySeed(seed RandomSeed) bool {
	return seed.Value == crypto.HashData(seedMessage(seed.Epoch))
}
