package challenge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stornetlabs/stornet/internal/testutils"
)

func TestIndexSelect_Deterministic(t *testing.T) {
	seed := testutils.RandomHash(t)
	provider := testutils.RandomProviderPublicKey(t)
	fileID := testutils.RandomHash(t)

	first := IndexSelect(seed, provider, fileID, 1000, 8)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, IndexSelect(seed, provider, fileID, 1000, 8),
			"recomputation from identical inputs must agree")
	}
}

func TestIndexSelect_RangeAndUniqueness(t *testing.T) {
	seed := testutils.RandomHash(t)
	provider := testutils.RandomProviderPublicKey(t)
	fileID := testutils.RandomHash(t)

	indices := IndexSelect(seed, provider, fileID, 100, 10)
	require.Len(t, indices, 10)

	seen := make(map[uint32]struct{})
	var prev uint32
	for i, idx := range indices {
		assert.Less(t, idx, uint32(100))
		_, dup := seen[idx]
		assert.False(t, dup, "index %d selected twice", idx)
		seen[idx] = struct{}{}
		if i > 0 {
			assert.Greater(t, idx, prev, "indices must be sorted ascending")
		}
		prev = idx
	}
}

func TestIndexSelect_SmallFiles(t *testing.T) {
	seed := testutils.RandomHash(t)
	provider := testutils.RandomProviderPublicKey(t)
	fileID := testutils.RandomHash(t)

	t.Run("zero chunks selects nothing", func(t *testing.T) {
		assert.Nil(t, IndexSelect(seed, provider, fileID, 0, 8))
	})

	t.Run("chunk count below k selects all", func(t *testing.T) {
		assert.Equal(t, []uint32{0, 1, 2}, IndexSelect(seed, provider, fileID, 3, 8))
	})

	t.Run("chunk count equal to k selects all", func(t *testing.T) {
		assert.Equal(t, []uint32{0, 1, 2, 3, 4, 5, 6, 7}, IndexSelect(seed, provider, fileID, 8, 8))
	})
}

func TestIndexSelect_InputSensitivity(t *testing.T) {
	seed := testutils.RandomHash(t)
	provider := testutils.RandomProviderPublicKey(t)
	fileID := testutils.RandomHash(t)
	base := IndexSelect(seed, provider, fileID, 1<<16, 8)

	t.Run("different seed", func(t *testing.T) {
		other := IndexSelect(testutils.RandomHash(t), provider, fileID, 1<<16, 8)
		assert.NotEqual(t, base, other)
	})

	t.Run("different provider", func(t *testing.T) {
		other := IndexSelect(seed, testutils.RandomProviderPublicKey(t), fileID, 1<<16, 8)
		assert.NotEqual(t, base, other)
	})

	t.Run("different file", func(t *testing.T) {
		other := IndexSelect(seed, provider, testutils.RandomHash(t), 1<<16, 8)
		assert.NotEqual(t, base, other)
	})
}
