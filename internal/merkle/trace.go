package merkle

import (
	"bytes"

	"github.com/stornetlabs/stornet/internal/crypto"
)

// ComputeTrace computes the inclusion trace for the chunk at the given
// index: the sibling node hashes on the path from the root down to the
// chunk, ordered top-down. A single-chunk file has an empty trace.
func ComputeTrace(chunks [][]byte, index int, hashFunc func([]byte) crypto.Hash) [][]byte {
	if len(chunks) <= 1 {
		return [][]byte{}
	}

	mid := len(chunks) / 2
	if index < mid {
		sibling := ComputeNode(chunks[mid:], hashFunc)
		return append([][]byte{sibling}, ComputeTrace(chunks[:mid], index, hashFunc)...)
	}

	sibling := ComputeNode(chunks[:mid], hashFunc)
	return append([][]byte{sibling}, ComputeTrace(chunks[mid:], index-mid, hashFunc)...)
}

// VerifyTrace checks that chunk sits at index in a file of count chunks
// committed to by root, by recomputing the root from the chunk and its
// trace. The split point at each level is determined by count, so the
// verifier needs no part of the file beyond the single chunk.
func VerifyTrace(root crypto.Hash, index, count int, chunk []byte, trace [][]byte, hashFunc func([]byte) crypto.Hash) bool {
	if count <= 0 || index < 0 || index >= count {
		return false
	}

	recomputed, ok := reconstructNode(chunk, index, count, trace, hashFunc)
	if !ok {
		return false
	}

	return bytes.Equal(recomputed, root[:])
}

// reconstructNode rebuilds the node hash of the subtree of count chunks
// containing the chunk at index, consuming the trace top-down.
func reconstructNode(chunk []byte, index, count int, trace [][]byte, hashFunc func([]byte) crypto.Hash) ([]byte, bool) {
	if count == 1 {
		// The trace must be exhausted exactly at the leaf.
		if len(trace) != 0 {
			return nil, false
		}
		return hashToBlob(hashFunc(chunk)), true
	}

	if len(trace) == 0 || len(trace[0]) != crypto.HashSize {
		return nil, false
	}

	mid := count / 2
	sibling := trace[0]
	if index < mid {
		inner, ok := reconstructNode(chunk, index, mid, trace[1:], hashFunc)
		if !ok {
			return nil, false
		}
		return hashToBlob(hashFunc(branchPreimage(inner, sibling))), true
	}

	inner, ok := reconstructNode(chunk, index-mid, count-mid, trace[1:], hashFunc)
	if !ok {
		return nil, false
	}
	return hashToBlob(hashFunc(branchPreimage(sibling, inner))), true
}
