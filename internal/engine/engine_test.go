package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stornetlabs/stornet/internal/beacon"
	"github.com/stornetlabs/stornet/internal/challenge"
	"github.com/stornetlabs/stornet/internal/commitment"
	"github.com/stornetlabs/stornet/internal/crypto"
	"github.com/stornetlabs/stornet/internal/epoch"
	"github.com/stornetlabs/stornet/internal/proof"
	"github.com/stornetlabs/stornet/internal/prover"
	"github.com/stornetlabs/stornet/internal/provider"
	"github.com/stornetlabs/stornet/internal/store"
	"github.com/stornetlabs/stornet/internal/testutils"
	"github.com/stornetlabs/stornet/pkg/db/pebble"
	"github.com/stornetlabs/stornet/pkg/gateway"
)

// fixture wires an engine against an in-memory store and gateway, with one
// registered provider holding one committed, assigned file.
type fixture struct {
	engine   *Engine
	svc      *gateway.MemoryStore
	provider crypto.ProviderPublicKey
	file     commitment.FileCommitment
}

func newFixture(t *testing.T, finalized epoch.Epoch) *fixture {
	t.Helper()

	kv, err := pebble.NewKVStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	eng := New(DefaultConfig(), beacon.NewStubBeacon(finalized), kv)
	svc := gateway.NewMemoryStore()

	data := testutils.RandomBytes(t, 10*commitment.ChunkSize)
	fc, err := eng.CommitFile(testutils.RandomHash(t), data)
	require.NoError(t, err)
	require.NoError(t, prover.StoreFile(context.Background(), svc, fc.FileID, data))

	key := testutils.RandomProviderPublicKey(t)
	require.NoError(t, eng.RegisterProvider(key, 2000))
	require.NoError(t, eng.AssignFile(key, fc.FileID))

	return &fixture{engine: eng, svc: svc, provider: key, file: fc}
}

func (f *fixture) schedule(t *testing.T, e epoch.Epoch) challenge.Challenge {
	t.Helper()
	issued, err := f.engine.ScheduleEpoch(e)
	require.NoError(t, err)
	require.Len(t, issued, 1)
	return issued[0]
}

func (f *fixture) submission(t *testing.T, chal challenge.Challenge) proof.Submission {
	t.Helper()
	sub, err := prover.BuildSubmission(context.Background(), f.svc, chal)
	require.NoError(t, err)
	return sub
}

func (f *fixture) reputation(t *testing.T) int64 {
	t.Helper()
	p, ok := f.engine.Provider(f.provider)
	require.True(t, ok)
	return p.Reputation
}

func TestScheduleEpochSeedNotReady(t *testing.T) {
	f := newFixture(t, 3)
	_, err := f.engine.ScheduleEpoch(4)
	assert.ErrorIs(t, err, ErrSeedNotReady)

	_, err = f.engine.ScheduleEpoch(3)
	assert.NoError(t, err)
}

func TestScheduleEpochRegression(t *testing.T) {
	f := newFixture(t, 10)
	f.schedule(t, 5)

	_, err := f.engine.ScheduleEpoch(5)
	assert.ErrorIs(t, err, ErrEpochRegression)
	_, err = f.engine.ScheduleEpoch(4)
	assert.ErrorIs(t, err, ErrEpochRegression)
}

func TestRegisterProviderInsufficientStake(t *testing.T) {
	f := newFixture(t, 1)
	key := testutils.RandomProviderPublicKey(t)

	err := f.engine.RegisterProvider(key, 999)
	assert.ErrorIs(t, err, ErrInsufficientStake)
	_, ok := f.engine.Provider(key)
	assert.False(t, ok)
}

func TestAssignFileUnknownCommitment(t *testing.T) {
	f := newFixture(t, 1)
	err := f.engine.AssignFile(f.provider, testutils.RandomHash(t))
	assert.ErrorIs(t, err, store.ErrCommitmentNotFound)
}

func TestAcceptedProof(t *testing.T) {
	f := newFixture(t, 10)
	chal := f.schedule(t, 1)

	require.Len(t, chal.Indices, int(DefaultConfig().SampleSize))
	for _, idx := range chal.Indices {
		assert.Less(t, idx, chal.ChunkCount)
	}

	sub := f.submission(t, chal)
	require.NoError(t, f.engine.SubmitProof(sub))

	stored, err := f.engine.Challenge(chal.Key)
	require.NoError(t, err)
	assert.Equal(t, challenge.Answered, stored.State)
	assert.Equal(t, int64(1), f.reputation(t))

	// Replaying the accepted submission is caller error, not a second
	// credit.
	err = f.engine.SubmitProof(sub)
	assert.ErrorIs(t, err, ErrDuplicateChallenge)
	assert.Equal(t, int64(1), f.reputation(t))
}

func TestUnknownChallenge(t *testing.T) {
	f := newFixture(t, 1)
	err := f.engine.SubmitProof(proof.Submission{Challenge: challenge.Key{
		Provider: f.provider,
		FileID:   f.file.FileID,
		Epoch:    1,
	}})
	assert.ErrorIs(t, err, ErrUnknownChallenge)
}

func TestPartialProofScoredAsMiss(t *testing.T) {
	f := newFixture(t, 10)
	chal := f.schedule(t, 1)

	sub := f.submission(t, chal)
	sub.Items = sub.Items[:len(sub.Items)-1]

	err := f.engine.SubmitProof(sub)
	assert.ErrorIs(t, err, ErrPartialProof)

	stored, err := f.engine.Challenge(chal.Key)
	require.NoError(t, err)
	assert.Equal(t, challenge.Missed, stored.State)
	assert.Equal(t, int64(0), f.reputation(t))

	p, ok := f.engine.Provider(f.provider)
	require.True(t, ok)
	assert.Equal(t, provider.Probation, p.Status)
}

func TestInvalidProofScoredAsMiss(t *testing.T) {
	f := newFixture(t, 10)
	chal := f.schedule(t, 1)

	sub := f.submission(t, chal)
	sub.Items[0].Chunk = testutils.RandomBytes(t, commitment.ChunkSize)

	err := f.engine.SubmitProof(sub)
	assert.ErrorIs(t, err, ErrInvalidProof)

	stored, err := f.engine.Challenge(chal.Key)
	require.NoError(t, err)
	assert.Equal(t, challenge.Missed, stored.State)
}

func TestMissTransitionHappensOnce(t *testing.T) {
	f := newFixture(t, 10)
	chal := f.schedule(t, 1)
	sub := f.submission(t, chal)

	// The boundary for epoch 2 expires epoch 1's unanswered challenge.
	f.schedule(t, 2)

	stored, err := f.engine.Challenge(chal.Key)
	require.NoError(t, err)
	assert.Equal(t, challenge.Missed, stored.State)
	debited := f.reputation(t)

	// A late submission after the transition is rejected without a second
	// debit, and without being mistaken for a bad proof.
	err = f.engine.SubmitProof(sub)
	assert.ErrorIs(t, err, ErrUnknownChallenge)
	assert.Equal(t, debited, f.reputation(t))

	p, ok := f.engine.Provider(f.provider)
	require.True(t, ok)
	a, ok := p.Assignments[f.file.FileID]
	require.True(t, ok)
	assert.Equal(t, uint32(1), a.ConsecutiveMisses)
}

func TestAnswerResetsMissStreak(t *testing.T) {
	f := newFixture(t, 10)
	f.schedule(t, 1)
	chal := f.schedule(t, 2) // expires epoch 1 as a miss

	require.NoError(t, f.engine.SubmitProof(f.submission(t, chal)))

	p, ok := f.engine.Provider(f.provider)
	require.True(t, ok)
	a, ok := p.Assignments[f.file.FileID]
	require.True(t, ok)
	assert.Equal(t, uint32(0), a.ConsecutiveMisses)
	assert.True(t, a.HasProven)
	assert.Equal(t, provider.Active, p.Status)
}

func TestMissThresholdRevokesAndSlashes(t *testing.T) {
	f := newFixture(t, 10)

	// DefaultConfig misses past 3 revoke the assignment. Epoch boundaries
	// 2..5 expire epochs 1..4 unanswered.
	for e := epoch.Epoch(1); e <= 4; e++ {
		f.schedule(t, e)
	}
	_, err := f.engine.ScheduleEpoch(5)
	require.NoError(t, err)

	p, ok := f.engine.Provider(f.provider)
	require.True(t, ok)
	assert.NotContains(t, p.Assignments, f.file.FileID)
	assert.Equal(t, uint64(1500), p.Stake) // 2000 slashed by a quarter

	released := f.engine.TakeReleasedFiles()
	assert.Equal(t, []crypto.Hash{f.file.FileID}, released)
	assert.Empty(t, f.engine.TakeReleasedFiles())
}

func TestSlashBelowMinStakeDeregisters(t *testing.T) {
	f := newFixture(t, 10)

	// A second provider staked just above the minimum: one quarter slash
	// lands it below MinStake and out of the network.
	key := testutils.RandomProviderPublicKey(t)
	require.NoError(t, f.engine.RegisterProvider(key, 1000))
	require.NoError(t, f.engine.AssignFile(key, f.file.FileID))

	for e := epoch.Epoch(1); e <= 5; e++ {
		_, err := f.engine.ScheduleEpoch(e)
		require.NoError(t, err)
	}

	_, ok := f.engine.Provider(key)
	assert.False(t, ok)
	assert.Contains(t, f.engine.TakeReleasedFiles(), f.file.FileID)
}

func TestRevokeAssignmentDiscardsChallenge(t *testing.T) {
	f := newFixture(t, 10)
	chal := f.schedule(t, 1)

	require.NoError(t, f.engine.RevokeAssignment(f.provider, f.file.FileID))

	// Discarded, not scored: the record is gone and reputation untouched.
	_, err := f.engine.Challenge(chal.Key)
	assert.ErrorIs(t, err, ErrUnknownChallenge)
	assert.Equal(t, int64(0), f.reputation(t))

	// The next boundary must not resurrect it as a miss.
	f2, err := f.engine.ScheduleEpoch(2)
	require.NoError(t, err)
	assert.Empty(t, f2)
	assert.Equal(t, int64(0), f.reputation(t))

	assert.Equal(t, []crypto.Hash{f.file.FileID}, f.engine.TakeReleasedFiles())
}

func TestReplaceRootDiscardsOpenChallenges(t *testing.T) {
	f := newFixture(t, 10)
	chal := f.schedule(t, 1)

	next := commitment.Build(testutils.RandomHash(t), testutils.RandomBytes(t, 6*commitment.ChunkSize))
	require.NoError(t, f.engine.ReplaceRoot(f.file.FileID, next))

	_, err := f.engine.Challenge(chal.Key)
	assert.ErrorIs(t, err, ErrUnknownChallenge)

	current, err := f.engine.Commitment(f.file.FileID)
	require.NoError(t, err)
	assert.Equal(t, next.Root, current.Root)
	assert.Equal(t, f.file.FileID, current.FileID)

	history, err := f.engine.RootHistory(f.file.FileID)
	require.NoError(t, err)
	assert.Equal(t, []crypto.Hash{f.file.Root}, history)

	// Challenges issued after the replacement target the new root.
	chal2 := f.schedule(t, 2)
	assert.Equal(t, next.Root, chal2.Root)
	assert.Equal(t, next.ChunkCount, chal2.ChunkCount)
}

func TestDeregisterRefusedWithAssignments(t *testing.T) {
	f := newFixture(t, 1)
	err := f.engine.DeregisterProvider(f.provider)
	assert.ErrorIs(t, err, provider.ErrAssignmentsActive)

	require.NoError(t, f.engine.RevokeAssignment(f.provider, f.file.FileID))
	assert.NoError(t, f.engine.DeregisterProvider(f.provider))
}

func TestLoadStateRestoresRegistry(t *testing.T) {
	kv, err := pebble.NewKVStore()
	require.NoError(t, err)

	eng := New(DefaultConfig(), beacon.NewStubBeacon(10), kv)
	data := testutils.RandomBytes(t, 10*commitment.ChunkSize)
	fc, err := eng.CommitFile(testutils.RandomHash(t), data)
	require.NoError(t, err)

	key := testutils.RandomProviderPublicKey(t)
	require.NoError(t, eng.RegisterProvider(key, 2000))
	require.NoError(t, eng.AssignFile(key, fc.FileID))

	// A fresh engine over the same store sees the provider and its
	// assignment after LoadState, and schedules against it.
	reborn := New(DefaultConfig(), beacon.NewStubBeacon(10), kv)
	require.NoError(t, reborn.LoadState())

	p, ok := reborn.Provider(key)
	require.True(t, ok)
	assert.Equal(t, uint64(2000), p.Stake)
	assert.Contains(t, p.Assignments, fc.FileID)

	issued, err := reborn.ScheduleEpoch(1)
	require.NoError(t, err)
	assert.Len(t, issued, 1)
}

func TestLoadStateRestoresEpochWatermark(t *testing.T) {
	kv, err := pebble.NewKVStore()
	require.NoError(t, err)

	eng := New(DefaultConfig(), beacon.NewStubBeacon(10), kv)
	_, err = eng.ScheduleEpoch(5)
	require.NoError(t, err)

	reborn := New(DefaultConfig(), beacon.NewStubBeacon(10), kv)
	require.NoError(t, reborn.LoadState())

	// An epoch at or before the pre-restart watermark stays rejected.
	_, err = reborn.ScheduleEpoch(3)
	assert.ErrorIs(t, err, ErrEpochRegression)
	_, err = reborn.ScheduleEpoch(5)
	assert.ErrorIs(t, err, ErrEpochRegression)
	_, err = reborn.ScheduleEpoch(6)
	assert.NoError(t, err)
}

func TestRevokeAfterRestartDiscardsChallenge(t *testing.T) {
	kv, err := pebble.NewKVStore()
	require.NoError(t, err)

	eng := New(DefaultConfig(), beacon.NewStubBeacon(10), kv)
	data := testutils.RandomBytes(t, 10*commitment.ChunkSize)
	fc, err := eng.CommitFile(testutils.RandomHash(t), data)
	require.NoError(t, err)
	key := testutils.RandomProviderPublicKey(t)
	require.NoError(t, eng.RegisterProvider(key, 2000))
	require.NoError(t, eng.AssignFile(key, fc.FileID))
	issued, err := eng.ScheduleEpoch(1)
	require.NoError(t, err)
	require.Len(t, issued, 1)

	reborn := New(DefaultConfig(), beacon.NewStubBeacon(10), kv)
	require.NoError(t, reborn.LoadState())
	require.NoError(t, reborn.RevokeAssignment(key, fc.FileID))

	// Discarded, not left open to be scored by the next boundary's sweep.
	_, err = reborn.Challenge(issued[0].Key)
	assert.ErrorIs(t, err, ErrUnknownChallenge)

	next, err := reborn.ScheduleEpoch(2)
	require.NoError(t, err)
	assert.Empty(t, next)

	p, ok := reborn.Provider(key)
	require.True(t, ok)
	assert.Equal(t, int64(0), p.Reputation)
	assert.Equal(t, provider.Active, p.Status)
}

func TestSeedRetainedForAudit(t *testing.T) {
	f := newFixture(t, 10)
	f.schedule(t, 3)

	seed, err := f.engine.Seed(3)
	require.NoError(t, err)
	assert.Equal(t, epoch.Epoch(3), seed.Epoch)
	assert.False(t, seed.Value.IsZero())

	_, err = f.engine.Seed(2)
	assert.ErrorIs(t, err, store.ErrSeedNotFound)
}

func TestChallengeDerivationDeterministic(t *testing.T) {
	kv1, err := pebble.NewKVStore()
	require.NoError(t, err)
	kv2, err := pebble.NewKVStore()
	require.NoError(t, err)

	data := testutils.RandomBytes(t, 20*commitment.ChunkSize)
	bucket := testutils.RandomHash(t)
	key := testutils.RandomProviderPublicKey(t)

	var issued [2][]challenge.Challenge
	for i, kv := range []*pebble.KVStore{kv1, kv2} {
		eng := New(DefaultConfig(), beacon.NewStubBeacon(10), kv)
		fc, err := eng.CommitFile(bucket, data)
		require.NoError(t, err)
		require.NoError(t, eng.RegisterProvider(key, 2000))
		require.NoError(t, eng.AssignFile(key, fc.FileID))

		issued[i], err = eng.ScheduleEpoch(3)
		require.NoError(t, err)
	}

	assert.Equal(t, issued[0], issued[1])
}
