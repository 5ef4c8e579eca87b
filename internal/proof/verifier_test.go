package proof

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stornetlabs/stornet/internal/challenge"
	"github.com/stornetlabs/stornet/internal/crypto"
	"github.com/stornetlabs/stornet/internal/merkle"
	"github.com/stornetlabs/stornet/internal/testutils"
)

// fixture builds a 10-chunk file, a 3-index challenge over it, and the full
// valid submission.
type fixture struct {
	chunks [][]byte
	chal   *challenge.Challenge
	sub    Submission
}

func newFixture(t *testing.T) *fixture {
	chunks := testutils.RandomChunks(t, 10, 64)
	root := merkle.ComputeRoot(chunks, crypto.HashData)

	key := challenge.Key{
		Provider: testutils.RandomProviderPublicKey(t),
		FileID:   testutils.RandomHash(t),
		Epoch:    5,
	}
	chal := &challenge.Challenge{
		Key:        key,
		Root:       root,
		ChunkCount: 10,
		Indices:    challenge.IndexSelect(testutils.RandomHash(t), key.Provider, key.FileID, 10, 3),
		Deadline:   5,
		State:      challenge.Open,
	}
	require.Len(t, chal.Indices, 3)

	sub := Submission{Challenge: key}
	for _, idx := range chal.Indices {
		sub.Items = append(sub.Items, Item{
			Index: idx,
			Chunk: chunks[idx],
			Trace: merkle.ComputeTrace(chunks, int(idx), crypto.HashData),
		})
	}
	return &fixture{chunks: chunks, chal: chal, sub: sub}
}

func TestVerifier_Accept(t *testing.T) {
	f := newFixture(t)
	v := NewVerifier()
	assert.Equal(t, Accept, v.Verify(f.chal, f.sub, 5))
}

func TestVerifier_AcceptAnyItemOrder(t *testing.T) {
	f := newFixture(t)
	v := NewVerifier()

	reversed := Submission{Challenge: f.sub.Challenge}
	for i := len(f.sub.Items) - 1; i >= 0; i-- {
		reversed.Items = append(reversed.Items, f.sub.Items[i])
	}
	assert.Equal(t, Accept, v.Verify(f.chal, reversed, 5))
}

func TestVerifier_RejectPartialProof(t *testing.T) {
	f := newFixture(t)
	v := NewVerifier()

	t.Run("missing item", func(t *testing.T) {
		partial := Submission{Challenge: f.sub.Challenge, Items: f.sub.Items[:2]}
		assert.Equal(t, RejectPartialProof, v.Verify(f.chal, partial, 5))
	})

	t.Run("extraneous item", func(t *testing.T) {
		extra := uint32(0)
		for contains(f.chal.Indices, extra) {
			extra++
		}
		super := Submission{Challenge: f.sub.Challenge}
		super.Items = append(super.Items, f.sub.Items...)
		super.Items = append(super.Items, Item{
			Index: extra,
			Chunk: f.chunks[extra],
			Trace: merkle.ComputeTrace(f.chunks, int(extra), crypto.HashData),
		})
		assert.Equal(t, RejectPartialProof, v.Verify(f.chal, super, 5))
	})

	t.Run("duplicated item", func(t *testing.T) {
		dup := Submission{Challenge: f.sub.Challenge}
		dup.Items = append(dup.Items, f.sub.Items[:2]...)
		dup.Items = append(dup.Items, f.sub.Items[1])
		assert.Equal(t, RejectPartialProof, v.Verify(f.chal, dup, 5))
	})

	t.Run("empty submission", func(t *testing.T) {
		assert.Equal(t, RejectPartialProof, v.Verify(f.chal, Submission{Challenge: f.sub.Challenge}, 5))
	})
}

func TestVerifier_RejectInvalidProof(t *testing.T) {
	f := newFixture(t)
	v := NewVerifier()

	t.Run("single flipped chunk byte rejects the whole submission", func(t *testing.T) {
		tampered := Submission{Challenge: f.sub.Challenge}
		tampered.Items = append(tampered.Items, f.sub.Items...)
		chunk := append([]byte{}, tampered.Items[1].Chunk...)
		chunk[5] ^= 0x01
		tampered.Items[1].Chunk = chunk
		assert.Equal(t, RejectInvalidProof, v.Verify(f.chal, tampered, 5))
	})

	t.Run("trace against a different root", func(t *testing.T) {
		// Same indices and chunk bytes, but the file was re-committed with
		// one chunk changed: the stale challenge root must win.
		altered := append([][]byte{}, f.chunks...)
		altered[0] = testutils.RandomBytes(t, 64)

		stale := Submission{Challenge: f.sub.Challenge}
		for _, idx := range f.chal.Indices {
			stale.Items = append(stale.Items, Item{
				Index: idx,
				Chunk: altered[idx],
				Trace: merkle.ComputeTrace(altered, int(idx), crypto.HashData),
			})
		}
		assert.Equal(t, RejectInvalidProof, v.Verify(f.chal, stale, 5))
	})
}

func TestVerifier_RejectResolvedAndExpired(t *testing.T) {
	v := NewVerifier()

	t.Run("already answered", func(t *testing.T) {
		f := newFixture(t)
		f.chal.State = challenge.Answered
		assert.Equal(t, RejectResolved, v.Verify(f.chal, f.sub, 5))
	})

	t.Run("already missed", func(t *testing.T) {
		f := newFixture(t)
		f.chal.State = challenge.Missed
		assert.Equal(t, RejectResolved, v.Verify(f.chal, f.sub, 5))
	})

	t.Run("past deadline", func(t *testing.T) {
		f := newFixture(t)
		assert.Equal(t, RejectExpired, v.Verify(f.chal, f.sub, 6))
	})
}

func contains(indices []uint32, idx uint32) bool {
	for _, i := range indices {
		if i == idx {
			return true
		}
	}
	return false
}
