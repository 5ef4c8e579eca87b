package merkle

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stornetlabs/stornet/internal/crypto"
)

func makeChunks(n int) [][]byte {
	chunks := make([][]byte, n)
	for i := range chunks {
		chunks[i] = []byte(fmt.Sprintf("chunk-%03d-payload", i))
	}
	return chunks
}

func TestComputeRoot(t *testing.T) {
	t.Run("empty chunk list commits to zero hash", func(t *testing.T) {
		root := ComputeRoot(nil, crypto.HashData)
		assert.Equal(t, crypto.Hash{}, root)
	})

	t.Run("single chunk root is the chunk hash", func(t *testing.T) {
		chunk := []byte("only chunk")
		root := ComputeRoot([][]byte{chunk}, crypto.HashData)
		assert.Equal(t, crypto.HashData(chunk), root)
	})

	t.Run("two chunks combine under branch preimage", func(t *testing.T) {
		chunks := makeChunks(2)
		left := crypto.HashData(chunks[0])
		right := crypto.HashData(chunks[1])
		expected := crypto.HashData(append([]byte("node"), append(left[:], right[:]...)...))
		assert.Equal(t, expected, ComputeRoot(chunks, crypto.HashData))
	})

	t.Run("root is order sensitive", func(t *testing.T) {
		chunks := makeChunks(4)
		root := ComputeRoot(chunks, crypto.HashData)
		swapped := [][]byte{chunks[1], chunks[0], chunks[2], chunks[3]}
		assert.NotEqual(t, root, ComputeRoot(swapped, crypto.HashData))
	})
}

func TestTraceRoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 7, 8, 10, 33} {
		t.Run(fmt.Sprintf("count_%d", n), func(t *testing.T) {
			chunks := makeChunks(n)
			root := ComputeRoot(chunks, crypto.HashData)
			for i := 0; i < n; i++ {
				trace := ComputeTrace(chunks, i, crypto.HashData)
				require.True(t, VerifyTrace(root, i, n, chunks[i], trace, crypto.HashData),
					"trace for chunk %d of %d must verify", i, n)
			}
		})
	}
}

func TestVerifyTrace_Rejects(t *testing.T) {
	chunks := makeChunks(10)
	root := ComputeRoot(chunks, crypto.HashData)

	t.Run("flipped chunk byte", func(t *testing.T) {
		trace := ComputeTrace(chunks, 4, crypto.HashData)
		tampered := append([]byte{}, chunks[4]...)
		tampered[0] ^= 0x01
		assert.False(t, VerifyTrace(root, 4, 10, tampered, trace, crypto.HashData))
	})

	t.Run("flipped trace byte", func(t *testing.T) {
		trace := ComputeTrace(chunks, 4, crypto.HashData)
		trace[1][7] ^= 0x01
		assert.False(t, VerifyTrace(root, 4, 10, chunks[4], trace, crypto.HashData))
	})

	t.Run("wrong index", func(t *testing.T) {
		trace := ComputeTrace(chunks, 4, crypto.HashData)
		assert.False(t, VerifyTrace(root, 5, 10, chunks[4], trace, crypto.HashData))
	})

	t.Run("index out of range", func(t *testing.T) {
		trace := ComputeTrace(chunks, 4, crypto.HashData)
		assert.False(t, VerifyTrace(root, 10, 10, chunks[4], trace, crypto.HashData))
		assert.False(t, VerifyTrace(root, -1, 10, chunks[4], trace, crypto.HashData))
	})

	t.Run("truncated trace", func(t *testing.T) {
		trace := ComputeTrace(chunks, 4, crypto.HashData)
		assert.False(t, VerifyTrace(root, 4, 10, chunks[4], trace[:len(trace)-1], crypto.HashData))
	})

	t.Run("oversized trace", func(t *testing.T) {
		trace := ComputeTrace(chunks, 4, crypto.HashData)
		extra := append(trace, make([]byte, crypto.HashSize))
		assert.False(t, VerifyTrace(root, 4, 10, chunks[4], extra, crypto.HashData))
	})

	t.Run("wrong root", func(t *testing.T) {
		trace := ComputeTrace(chunks, 4, crypto.HashData)
		other := crypto.HashData([]byte("other root"))
		assert.False(t, VerifyTrace(other, 4, 10, chunks[4], trace, crypto.HashData))
	})
}
