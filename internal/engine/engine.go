// Package engine is the serialized core of the proof-of-storage protocol.
// Challenge scheduling, proof verification and outcome application run
// under one lock, with every mutation keyed on (provider, file, epoch) so
// operations within an epoch commute to a unique final state. Proof
// construction stays outside: providers build submissions concurrently
// through the gateway and only the finished submission enters here.
package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/stornetlabs/stornet/internal/beacon"
	"github.com/stornetlabs/stornet/internal/challenge"
	"github.com/stornetlabs/stornet/internal/commitment"
	"github.com/stornetlabs/stornet/internal/crypto"
	"github.com/stornetlabs/stornet/internal/epoch"
	"github.com/stornetlabs/stornet/internal/proof"
	"github.com/stornetlabs/stornet/internal/provider"
	"github.com/stornetlabs/stornet/internal/store"
	"github.com/stornetlabs/stornet/pkg/db"
	"github.com/stornetlabs/stornet/pkg/log"
)

// Config carries the protocol knobs.
type Config struct {
	// SampleSize is the number of chunks sampled per challenge.
	SampleSize uint32
	// Provider holds the stake, slashing and reputation policy.
	Provider provider.Params
}

func DefaultConfig() Config {
	return Config{
		SampleSize: 8,
		Provider:   provider.DefaultParams(),
	}
}

// Engine owns all mutable protocol state. All exported methods serialize on
// one mutex; none of them block on I/O beyond the local store.
type Engine struct {
	mu sync.Mutex

	cfg       Config
	beacon    beacon.Beacon
	registry  *provider.Registry
	scheduler *challenge.Scheduler
	verifier  *proof.Verifier

	commitments *store.Commitments
	challenges  *store.Challenges
	providers   *store.Providers
	seeds       *store.Seeds

	// current is the epoch most recently scheduled. Deadline checks on
	// submissions use it as the clock.
	current   epoch.Epoch
	scheduled bool
}

func New(cfg Config, b beacon.Beacon, kv db.KVStore) *Engine {
	return &Engine{
		cfg:         cfg,
		beacon:      b,
		registry:    provider.NewRegistry(cfg.Provider),
		scheduler:   challenge.NewScheduler(cfg.SampleSize),
		verifier:    proof.NewVerifier(),
		commitments: store.NewCommitments(kv),
		challenges:  store.NewChallenges(kv),
		providers:   store.NewProviders(kv),
		seeds:       store.NewSeeds(kv),
	}
}

// LoadState rebuilds the in-memory state from the durable records: the
// registry from the provider records, and the epoch watermark from the
// newest stored seed, so discard and monotonicity rules survive a restart.
// Call once at startup, before any other operation.
func (e *Engine) LoadState() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	records, err := e.providers.All()
	if err != nil {
		return err
	}
	for _, rec := range records {
		e.registry.Restore(rec.Snapshot())
	}

	seed, err := e.seeds.Latest()
	switch {
	case errors.Is(err, store.ErrSeedNotFound):
	case err != nil:
		return err
	default:
		e.current = seed.Epoch
		e.scheduled = true
	}

	if len(records) > 0 || e.scheduled {
		log.Engine.Info().
			Int("providers", len(records)).
			Uint32("epoch", uint32(e.current)).
			Msg("state restored")
	}
	return nil
}

// persistProvider writes the registry's current record for a key through to
// the store, or removes the record when the provider is gone. Callers hold
// the lock.
func (e *Engine) persistProvider(key crypto.ProviderPublicKey) error {
	p, ok := e.registry.Provider(key)
	if !ok {
		return e.providers.Delete(key)
	}
	return e.providers.Put(store.NewProviderRecord(p))
}

// RegisterProvider admits a provider with the given stake. Nothing is
// mutated on rejection.
func (e *Engine) RegisterProvider(key crypto.ProviderPublicKey, stake uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.registry.Register(key, stake); err != nil {
		return err
	}
	if err := e.persistProvider(key); err != nil {
		return err
	}
	log.Engine.Info().
		Stringer("provider", key).
		Uint64("stake", stake).
		Msg("provider registered")
	return nil
}

// DeregisterProvider performs a voluntary exit. Refused while the provider
// still holds assignments.
func (e *Engine) DeregisterProvider(key crypto.ProviderPublicKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.registry.Deregister(key); err != nil {
		return err
	}
	return e.providers.Delete(key)
}

// CommitFile chunks the data, builds its commitment and persists it. The
// returned commitment carries the file id used by every later operation.
func (e *Engine) CommitFile(bucket crypto.Hash, data []byte) (commitment.FileCommitment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fc := commitment.Build(bucket, data)
	if err := e.commitments.Put(fc); err != nil {
		return commitment.FileCommitment{}, err
	}
	log.Engine.Info().
		Stringer("file", fc.FileID).
		Uint32("chunks", fc.ChunkCount).
		Msg("file committed")
	return fc, nil
}

// ReplaceRoot supersedes a file's committed root with an authorized update.
// Open challenges against the old root are discarded, not scored: the
// provider can no longer produce a passing proof for them.
func (e *Engine) ReplaceRoot(fileID crypto.Hash, next commitment.FileCommitment) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.commitments.Replace(fileID, next); err != nil {
		return err
	}
	return e.discardOpen(func(c challenge.Challenge) bool {
		return c.Key.FileID == fileID
	})
}

// AssignFile gives a provider responsibility for a committed file.
func (e *Engine) AssignFile(key crypto.ProviderPublicKey, fileID crypto.Hash) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.commitments.Get(fileID); err != nil {
		return err
	}
	if err := e.registry.Assign(key, fileID); err != nil {
		return err
	}
	return e.persistProvider(key)
}

// RevokeAssignment removes an assignment and discards its in-flight
// challenges rather than scoring them.
func (e *Engine) RevokeAssignment(key crypto.ProviderPublicKey, fileID crypto.Hash) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.registry.Revoke(key, fileID); err != nil {
		return err
	}
	if err := e.persistProvider(key); err != nil {
		return err
	}
	return e.discardOpen(func(c challenge.Challenge) bool {
		return c.Key.Provider == key && c.Key.FileID == fileID
	})
}

// ScheduleEpoch runs the epoch boundary: challenges still open from earlier
// epochs are expired as missed, then one challenge per active assignment is
// derived from the epoch's seed and persisted. Scheduling is rejected when
// the seed is not finalized, and an epoch cannot be scheduled twice. A
// challenge key that already exists in the store is left untouched, which
// makes a crash-interrupted boundary safe to re-run.
func (e *Engine) ScheduleEpoch(target epoch.Epoch) ([]challenge.Challenge, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.scheduled && target <= e.current {
		return nil, fmt.Errorf("%w: epoch %d, already at %d", ErrEpochRegression, target, e.current)
	}

	seed, err := e.beacon.CurrentSeed(target)
	if err != nil {
		return nil, err
	}

	if err := e.expireBefore(target); err != nil {
		return nil, err
	}
	if err := e.seeds.Put(seed); err != nil {
		return nil, err
	}
	e.current = target
	e.scheduled = true

	refs := e.registry.ActiveAssignments()
	infos := make([]challenge.AssignmentInfo, 0, len(refs))
	for _, ref := range refs {
		fc, err := e.commitments.Get(ref.FileID)
		if err != nil {
			if errors.Is(err, store.ErrCommitmentNotFound) {
				log.Engine.Warn().
					Stringer("file", ref.FileID).
					Msg("assignment without commitment, skipping")
				continue
			}
			return nil, err
		}
		infos = append(infos, challenge.AssignmentInfo{
			Provider:   ref.Provider,
			FileID:     ref.FileID,
			Root:       fc.Root,
			ChunkCount: fc.ChunkCount,
		})
	}

	var issued []challenge.Challenge
	for _, c := range e.scheduler.ScheduleEpoch(seed, infos) {
		if _, err := e.challenges.Get(c.Key); err == nil {
			continue
		} else if !errors.Is(err, store.ErrChallengeNotFound) {
			return nil, err
		}
		if err := e.challenges.Put(c); err != nil {
			return nil, err
		}
		issued = append(issued, c)
	}

	log.Engine.Info().
		Uint32("epoch", uint32(target)).
		Int("issued", len(issued)).
		Msg("epoch scheduled")
	return issued, nil
}

// SubmitProof verifies a submission against its open challenge and applies
// the outcome. An accepted proof resolves the challenge as answered and
// credits the provider. A partial or invalid proof resolves it as missed
// and debits the provider; the returned error tells the submitter why.
// Submissions for resolved or expired challenges mutate nothing.
func (e *Engine) SubmitProof(sub proof.Submission) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.challenges.Get(sub.Challenge)
	if err != nil {
		if errors.Is(err, store.ErrChallengeNotFound) {
			return ErrUnknownChallenge
		}
		return err
	}

	switch c.State {
	case challenge.Answered:
		// Replay of a success. Caller error, nothing to score.
		return ErrDuplicateChallenge
	case challenge.Missed:
		return ErrUnknownChallenge
	}

	verdict := e.verifier.Verify(&c, sub, e.current)
	log.Engine.Debug().
		Stringer("provider", c.Key.Provider).
		Stringer("file", c.Key.FileID).
		Uint32("epoch", uint32(c.Key.Epoch)).
		Stringer("verdict", verdict).
		Msg("proof verified")

	switch verdict {
	case proof.Accept:
		c.State = challenge.Answered
		if err := e.challenges.Put(c); err != nil {
			return err
		}
		if err := e.registry.RecordAnswered(c.Key.Provider, c.Key.FileID, c.Key.Epoch); err != nil {
			return err
		}
		return e.persistProvider(c.Key.Provider)

	case proof.RejectExpired:
		// Past the deadline but not yet swept: the miss transition happens
		// here, exactly once. The late submitter learns the challenge is
		// gone, not that its proof was wrong.
		if err := e.scoreMiss(c); err != nil {
			return err
		}
		return ErrUnknownChallenge

	case proof.RejectPartialProof:
		if err := e.scoreMiss(c); err != nil {
			return err
		}
		return ErrPartialProof

	case proof.RejectInvalidProof:
		if err := e.scoreMiss(c); err != nil {
			return err
		}
		return ErrInvalidProof

	default:
		return ErrDuplicateChallenge
	}
}

// ExpireEpoch sweeps challenges still open from epochs before the given one
// and scores each as missed. ScheduleEpoch runs the same sweep; this is for
// hosts that want expiry without issuing the next epoch.
func (e *Engine) ExpireEpoch(target epoch.Epoch) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.expireBefore(target)
}

// TakeReleasedFiles drains the pool of files released by revocation or
// deregistration, for the host to reassign.
func (e *Engine) TakeReleasedFiles() []crypto.Hash {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.TakeReleased()
}

// Provider returns a snapshot of a provider record.
func (e *Engine) Provider(key crypto.ProviderPublicKey) (provider.StorageProvider, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Provider(key)
}

// Commitment returns the current commitment for a file.
func (e *Engine) Commitment(fileID crypto.Hash) (commitment.FileCommitment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.commitments.Get(fileID)
}

// RootHistory returns the superseded roots for a file, oldest first.
func (e *Engine) RootHistory(fileID crypto.Hash) ([]crypto.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.commitments.History(fileID)
}

// Seed returns the randomness used when the given epoch was scheduled.
// Auditors re-derive the epoch's challenges from it after verifying its
// proof against the beacon authority.
func (e *Engine) Seed(target epoch.Epoch) (beacon.RandomSeed, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seeds.Get(target)
}

// Challenge returns the stored challenge for a key.
func (e *Engine) Challenge(key challenge.Key) (challenge.Challenge, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.challenges.Get(key)
	if errors.Is(err, store.ErrChallengeNotFound) {
		return challenge.Challenge{}, ErrUnknownChallenge
	}
	return c, err
}

// expireBefore scores every still-open challenge from epochs strictly
// before target as missed. Callers hold the lock.
func (e *Engine) expireBefore(target epoch.Epoch) error {
	open, err := e.challenges.OpenBefore(target)
	if err != nil {
		return err
	}
	for _, c := range open {
		if err := e.scoreMiss(c); err != nil {
			return err
		}
	}
	return nil
}

// scoreMiss resolves one open challenge as missed and applies the registry
// consequences: streak increment, reputation debit, and past the threshold
// revocation, slashing and possibly deregistration. Consequences cascade to
// the provider's other open challenges by discarding them, never by scoring
// them twice. Callers hold the lock.
func (e *Engine) scoreMiss(c challenge.Challenge) error {
	c.State = challenge.Missed
	if err := e.challenges.Put(c); err != nil {
		return err
	}

	outcome, err := e.registry.RecordMissed(c.Key.Provider, c.Key.FileID)
	if err != nil {
		// The assignment is already gone; the challenge record still had
		// to reach its terminal state, but there is nothing to debit.
		if errors.Is(err, provider.ErrNotRegistered) || errors.Is(err, provider.ErrUnknownAssignment) {
			return nil
		}
		return err
	}
	if err := e.persistProvider(c.Key.Provider); err != nil {
		return err
	}

	evt := log.Engine.Info().
		Stringer("provider", c.Key.Provider).
		Stringer("file", c.Key.FileID).
		Uint32("epoch", uint32(c.Key.Epoch)).
		Uint32("misses", outcome.ConsecutiveMisses)
	switch {
	case outcome.Deregistered:
		evt.Uint64("slashed", outcome.Slashed).Msg("provider slashed out of the network")
	case outcome.AssignmentRevoked:
		evt.Uint64("slashed", outcome.Slashed).Msg("assignment revoked for repeated misses")
	default:
		evt.Msg("challenge missed")
	}

	if outcome.Deregistered {
		return e.discardOpen(func(other challenge.Challenge) bool {
			return other.Key.Provider == c.Key.Provider
		})
	}
	if outcome.AssignmentRevoked {
		return e.discardOpen(func(other challenge.Challenge) bool {
			return other.Key.Provider == c.Key.Provider && other.Key.FileID == c.Key.FileID
		})
	}
	return nil
}

// discardOpen deletes open challenges matching the filter without scoring
// them. Callers hold the lock.
func (e *Engine) discardOpen(match func(challenge.Challenge) bool) error {
	if !e.scheduled {
		return nil
	}
	limit := e.current
	if next, err := limit.Next(); err == nil {
		limit = next
	}

	open, err := e.challenges.OpenBefore(limit)
	if err != nil {
		return err
	}
	for _, c := range open {
		if !match(c) {
			continue
		}
		if err := e.challenges.Delete(c.Key); err != nil {
			return err
		}
	}
	return nil
}
