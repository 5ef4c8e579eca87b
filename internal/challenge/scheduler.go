package challenge

import (
	"github.com/stornetlabs/stornet/internal/beacon"
	"github.com/stornetlabs/stornet/internal/crypto"
)

// AssignmentInfo is the scheduler's view of one active (provider, file)
// pair: the commitment it will be challenged against.
type AssignmentInfo struct {
	Provider   crypto.ProviderPublicKey
	FileID     crypto.Hash
	Root       crypto.Hash
	ChunkCount uint32
}

// Scheduler turns an epoch seed and the active assignment set into the
// epoch's challenges. It is pure; deduplication against already issued
// challenges and persistence are the engine's concern.
type Scheduler struct {
	sampleSize uint32
}

// NewScheduler creates a scheduler sampling k chunks per challenge.
func NewScheduler(sampleSize uint32) *Scheduler {
	return &Scheduler{sampleSize: sampleSize}
}

// ScheduleEpoch derives one challenge per assignment for the seed's epoch.
// A file with no chunks yields no challenge; there is nothing to prove and
// the provider is not penalized for it. The challenge captures the root at
// issuance, so a proof built against any later root cannot satisfy it.
func (s *Scheduler) ScheduleEpoch(seed beacon.RandomSeed, assignments []AssignmentInfo) []Challenge {
	challenges := make([]Challenge, 0, len(assignments))
	for _, a := range assignments {
		if a.ChunkCount == 0 {
			continue
		}

		challenges = append(challenges, Challenge{
			Key: Key{
				Provider: a.Provider,
				FileID:   a.FileID,
				Epoch:    seed.Epoch,
			},
			Root:       a.Root,
			ChunkCount: a.ChunkCount,
			Indices:    IndexSelect(seed.Value, a.Provider, a.FileID, a.ChunkCount, s.sampleSize),
			Deadline:   seed.Epoch.Deadline(),
			State:      Open,
		})
	}
	return challenges
}
