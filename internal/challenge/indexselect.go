package challenge

import (
	"encoding/binary"
	"sort"

	"github.com/stornetlabs/stornet/internal/crypto"
)

// IndexSelect derives the chunk indices a provider must prove for a file in
// one epoch: k indices in [0, chunkCount) without replacement, returned in
// ascending order. The selection is a partial Fisher-Yates shuffle driven by
// a hash counter stream keyed on (seed value, provider, file), so two
// independent implementations always agree and nobody can predict the
// indices before the epoch seed is finalized. If the file has at most k
// chunks, every index is selected.
func IndexSelect(seedValue crypto.Hash, providerKey crypto.ProviderPublicKey, fileID crypto.Hash, chunkCount, k uint32) []uint32 {
	if chunkCount == 0 {
		return nil
	}

	indices := make([]uint32, chunkCount)
	for i := range indices {
		indices[i] = uint32(i)
	}
	if chunkCount <= k {
		return indices
	}

	streamKey := crypto.HashConcat(seedValue[:], providerKey[:], fileID[:])
	for i := uint32(0); i < k; i++ {
		j := i + uint32(drawUint64(streamKey, uint64(i))%uint64(chunkCount-i))
		indices[i], indices[j] = indices[j], indices[i]
	}

	selected := indices[:k]
	sort.Slice(selected, func(a, b int) bool { return selected[a] < selected[b] })
	return selected
}

// drawUint64 is the counter-mode hash stream behind IndexSelect. The
// construction is part of the protocol: changing it changes every derived
// challenge.
func drawUint64(key crypto.Hash, counter uint64) uint64 {
	var counterBytes [8]byte
	binary.LittleEndian.PutUint64(counterBytes[:], counter)
	digest := crypto.HashConcat(key[:], counterBytes[:])
	return binary.LittleEndian.Uint64(digest[:8])
}
