// Package provider tracks registered storage providers: their stake, their
// reputation and the files assigned to them. The registry is a plain keyed
// store owned by the engine; all mutation flows through the engine's outcome
// path, which keeps a single point of truth for stake and reputation.
package provider

import (
	"bytes"
	"sort"

	"github.com/stornetlabs/stornet/internal/crypto"
	"github.com/stornetlabs/stornet/internal/crypto/ed25519"
	"github.com/stornetlabs/stornet/internal/epoch"
)

// Status is the provider's standing on the network.
type Status uint8

const (
	// Active providers answer their challenges.
	Active Status = iota
	// Probation marks a provider with at least one assignment currently on
	// a miss streak. Cleared when every streak resets.
	Probation
	// Revoked is terminal: stake exhausted, provider removed.
	Revoked
)

// Params are the slashing and reputation policy knobs. The exact numbers
// are deployment policy, not protocol constants.
type Params struct {
	// MinStake is the smallest stake accepted at registration. A provider
	// slashed below it is deregistered.
	MinStake uint64
	// MissThreshold is the consecutive-miss count past which an assignment
	// is revoked and the provider slashed.
	MissThreshold uint32
	// SlashNumerator/SlashDenominator define the proportional slash applied
	// when an assignment is revoked for misses.
	SlashNumerator   uint64
	SlashDenominator uint64
	// ReputationGain is credited per answered challenge; ReputationLoss is
	// debited per miss. Loss exceeds gain so reputation recovers slowly.
	ReputationGain int64
	ReputationLoss int64
	MaxReputation  int64
}

func DefaultParams() Params {
	return Params{
		MinStake:         1000,
		MissThreshold:    3,
		SlashNumerator:   1,
		SlashDenominator: 4,
		ReputationGain:   1,
		ReputationLoss:   5,
		MaxReputation:    100,
	}
}

// Assignment is one (provider, file) storage obligation.
type Assignment struct {
	FileID            crypto.Hash
	ConsecutiveMisses uint32
	LastProofEpoch    epoch.Epoch
	HasProven         bool
}

// StorageProvider is the registry record for one provider.
type StorageProvider struct {
	Key         crypto.ProviderPublicKey
	Stake       uint64
	Reputation  int64
	Status      Status
	Assignments map[crypto.Hash]*Assignment
}

// AssignmentRef names one active (provider, file) pair.
type AssignmentRef struct {
	Provider crypto.ProviderPublicKey
	FileID   crypto.Hash
}

// Registry is the keyed provider store. It is not safe for concurrent use;
// the engine serializes access.
type Registry struct {
	params    Params
	providers map[crypto.ProviderPublicKey]*StorageProvider

	// released holds files whose assignments were revoked or whose provider
	// was deregistered, awaiting reassignment. Each file appears once.
	released    []crypto.Hash
	releasedSet map[crypto.Hash]struct{}
}

func NewRegistry(params Params) *Registry {
	return &Registry{
		params:      params,
		providers:   make(map[crypto.ProviderPublicKey]*StorageProvider),
		releasedSet: make(map[crypto.Hash]struct{}),
	}
}

// Register adds a provider with the given stake. No state is mutated on
// rejection.
func (r *Registry) Register(key crypto.ProviderPublicKey, stake uint64) error {
	if ed25519.IsEmpty(key[:]) {
		return ErrInvalidKey
	}
	if _, ok := r.providers[key]; ok {
		return ErrAlreadyRegistered
	}
	if stake < r.params.MinStake {
		return ErrInsufficientStake
	}

	r.providers[key] = &StorageProvider{
		Key:         key,
		Stake:       stake,
		Status:      Active,
		Assignments: make(map[crypto.Hash]*Assignment),
	}
	return nil
}

// Restore installs a snapshot, replacing any existing record. Used when
// rebuilding the registry from the durable store at startup.
func (r *Registry) Restore(p StorageProvider) {
	installed := p
	installed.Assignments = make(map[crypto.Hash]*Assignment, len(p.Assignments))
	for id, a := range p.Assignments {
		copied := *a
		installed.Assignments[id] = &copied
	}
	r.providers[p.Key] = &installed
}

// Deregister performs a voluntary exit. Exit is refused while the provider
// still holds assignments; revoke or reassign them first.
func (r *Registry) Deregister(key crypto.ProviderPublicKey) error {
	p, ok := r.providers[key]
	if !ok {
		return ErrNotRegistered
	}
	if len(p.Assignments) > 0 {
		return ErrAssignmentsActive
	}
	delete(r.providers, key)
	return nil
}

// Assign gives the provider responsibility for a file.
func (r *Registry) Assign(key crypto.ProviderPublicKey, fileID crypto.Hash) error {
	p, ok := r.providers[key]
	if !ok {
		return ErrNotRegistered
	}
	if _, ok := p.Assignments[fileID]; ok {
		return ErrAlreadyAssigned
	}

	p.Assignments[fileID] = &Assignment{FileID: fileID}
	delete(r.releasedSet, fileID)
	r.released = removeFile(r.released, fileID)
	return nil
}

// Revoke removes an assignment and releases the file into the reassignment
// pool.
func (r *Registry) Revoke(key crypto.ProviderPublicKey, fileID crypto.Hash) error {
	p, ok := r.providers[key]
	if !ok {
		return ErrNotRegistered
	}
	if _, ok := p.Assignments[fileID]; !ok {
		return ErrUnknownAssignment
	}

	delete(p.Assignments, fileID)
	r.releaseFile(fileID)
	r.refreshStatus(p)
	return nil
}

// Provider returns a read-only view of a provider record.
func (r *Registry) Provider(key crypto.ProviderPublicKey) (StorageProvider, bool) {
	p, ok := r.providers[key]
	if !ok {
		return StorageProvider{}, false
	}

	view := *p
	view.Assignments = make(map[crypto.Hash]*Assignment, len(p.Assignments))
	for id, a := range p.Assignments {
		copied := *a
		view.Assignments[id] = &copied
	}
	return view, true
}

// Assignment returns a read-only view of one assignment record.
func (r *Registry) Assignment(key crypto.ProviderPublicKey, fileID crypto.Hash) (Assignment, bool) {
	p, ok := r.providers[key]
	if !ok {
		return Assignment{}, false
	}
	a, ok := p.Assignments[fileID]
	if !ok {
		return Assignment{}, false
	}
	return *a, true
}

// ActiveAssignments snapshots every (provider, file) pair, ordered by
// provider key then file id. Challenge derivation is keyed per pair, but a
// deterministic order keeps whole-epoch runs reproducible across
// implementations regardless of map iteration.
func (r *Registry) ActiveAssignments() []AssignmentRef {
	var refs []AssignmentRef
	for key, p := range r.providers {
		for fileID := range p.Assignments {
			refs = append(refs, AssignmentRef{Provider: key, FileID: fileID})
		}
	}

	sort.Slice(refs, func(i, j int) bool {
		if c := bytes.Compare(refs[i].Provider[:], refs[j].Provider[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(refs[i].FileID[:], refs[j].FileID[:]) < 0
	})
	return refs
}

// TakeReleased drains the reassignment pool.
func (r *Registry) TakeReleased() []crypto.Hash {
	released := r.released
	r.released = nil
	r.releasedSet = make(map[crypto.Hash]struct{})
	return released
}

// RecordAnswered credits a successfully answered challenge: the miss streak
// resets and reputation recovers by the configured gain.
func (r *Registry) RecordAnswered(key crypto.ProviderPublicKey, fileID crypto.Hash, e epoch.Epoch) error {
	p, ok := r.providers[key]
	if !ok {
		return ErrNotRegistered
	}
	a, ok := p.Assignments[fileID]
	if !ok {
		return ErrUnknownAssignment
	}

	a.ConsecutiveMisses = 0
	a.LastProofEpoch = e
	a.HasProven = true

	p.Reputation += r.params.ReputationGain
	if p.Reputation > r.params.MaxReputation {
		p.Reputation = r.params.MaxReputation
	}
	r.refreshStatus(p)
	return nil
}

// MissOutcome reports the consequences of one recorded miss.
type MissOutcome struct {
	ConsecutiveMisses uint32
	AssignmentRevoked bool
	Slashed           uint64
	Deregistered      bool
}

// RecordMissed debits a missed challenge. Reputation loss is immediate and
// larger than the per-answer gain. Once the streak exceeds the threshold the
// assignment is revoked and a proportional slash applied; a provider slashed
// below the minimum stake is deregistered and every file it held is released
// for reassignment.
func (r *Registry) RecordMissed(key crypto.ProviderPublicKey, fileID crypto.Hash) (MissOutcome, error) {
	p, ok := r.providers[key]
	if !ok {
		return MissOutcome{}, ErrNotRegistered
	}
	a, ok := p.Assignments[fileID]
	if !ok {
		return MissOutcome{}, ErrUnknownAssignment
	}

	a.ConsecutiveMisses++
	p.Reputation -= r.params.ReputationLoss
	if p.Reputation < 0 {
		p.Reputation = 0
	}

	outcome := MissOutcome{ConsecutiveMisses: a.ConsecutiveMisses}

	if a.ConsecutiveMisses > r.params.MissThreshold {
		outcome.AssignmentRevoked = true
		outcome.Slashed = p.Stake * r.params.SlashNumerator / r.params.SlashDenominator
		p.Stake -= outcome.Slashed

		delete(p.Assignments, fileID)
		r.releaseFile(fileID)

		if p.Stake < r.params.MinStake {
			outcome.Deregistered = true
			p.Status = Revoked
			for id := range p.Assignments {
				r.releaseFile(id)
			}
			delete(r.providers, key)
			return outcome, nil
		}
	}

	r.refreshStatus(p)
	return outcome, nil
}

// refreshStatus derives the provider's standing from its miss streaks.
func (r *Registry) refreshStatus(p *StorageProvider) {
	for _, a := range p.Assignments {
		if a.ConsecutiveMisses > 0 {
			p.Status = Probation
			return
		}
	}
	p.Status = Active
}

func (r *Registry) releaseFile(fileID crypto.Hash) {
	if _, ok := r.releasedSet[fileID]; ok {
		return
	}
	r.releasedSet[fileID] = struct{}{}
	r.released = append(r.released, fileID)
}

func removeFile(files []crypto.Hash, fileID crypto.Hash) []crypto.Hash {
	for i, id := range files {
		if id == fileID {
			return append(files[:i], files[i+1:]...)
		}
	}
	return files
}
