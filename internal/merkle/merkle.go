// Package merkle implements the chunk commitment scheme: a binary merkle
// tree over a file's fixed-size chunks. The root commits to the whole file;
// an inclusion trace (the sibling node hashes on the path from one chunk to
// the root) proves that a single chunk belongs to the committed file.
package merkle

import (
	"github.com/stornetlabs/stornet/internal/crypto"
)

// ComputeNode computes the merkle node for a given sequence of chunks.
func ComputeNode(chunks [][]byte, hashFunc func([]byte) crypto.Hash) []byte {
	if len(chunks) == 0 {
		return []byte{}
	}

	// A single chunk is a leaf: its node is the chunk hash.
	if len(chunks) == 1 {
		return hashToBlob(hashFunc(chunks[0]))
	}

	mid := len(chunks) / 2
	left := ComputeNode(chunks[:mid], hashFunc)
	right := ComputeNode(chunks[mid:], hashFunc)

	return hashToBlob(hashFunc(branchPreimage(left, right)))
}

// ComputeRoot computes the commitment root over a file's chunks. An empty
// chunk sequence commits to the zero hash.
func ComputeRoot(chunks [][]byte, hashFunc func([]byte) crypto.Hash) crypto.Hash {
	node := ComputeNode(chunks, hashFunc)
	if len(node) == 0 {
		return crypto.Hash{}
	}

	var root crypto.Hash
	copy(root[:], node)
	return root
}

func branchPreimage(left, right []byte) []byte {
	return append([]byte("node"), append(left, right...)...)
}

func hashToBlob(hash crypto.Hash) []byte {
	return hash[:]
}
