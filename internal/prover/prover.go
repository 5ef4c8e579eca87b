// Package prover builds proof submissions on behalf of a storage provider.
// This is the off-path half of the protocol: fetching chunk bytes through
// the gateway and assembling inclusion traces happens concurrently across
// providers, is freely retryable, and shares no state with the serialized
// verification core. Only the finished Submission crosses back into it.
package prover

import (
	"context"
	"errors"
	"fmt"

	"github.com/stornetlabs/stornet/internal/challenge"
	"github.com/stornetlabs/stornet/internal/commitment"
	"github.com/stornetlabs/stornet/internal/crypto"
	"github.com/stornetlabs/stornet/internal/merkle"
	"github.com/stornetlabs/stornet/internal/proof"
	"github.com/stornetlabs/stornet/pkg/gateway"
)

var (
	// ErrDataUnavailable means the gateway could not supply bytes for some
	// chunk. Expected and recoverable at this layer: retry, or repair the
	// local store. Never to be conflated with a failed verification.
	ErrDataUnavailable = errors.New("prover: chunk bytes unavailable")

	// ErrFingerprintMismatch means the locally held chunks no longer hash
	// to the challenged root. A proof is impossible; the data is stale or
	// corrupt.
	ErrFingerprintMismatch = errors.New("prover: stored chunks do not match challenged root")
)

// StoreFile uploads every chunk of a file to the data service under its
// canonical chunk location.
func StoreFile(ctx context.Context, svc gateway.Service, fileID crypto.Hash, data []byte) error {
	for i, chunk := range commitment.Chunk(data) {
		location := string(commitment.ChunkLocation(fileID, uint32(i)))
		if _, err := svc.Upload(ctx, location, chunk); err != nil {
			return fmt.Errorf("upload chunk %d: %w", i, err)
		}
	}
	return nil
}

// BuildSubmission fetches the file's chunks through the gateway and
// assembles the inclusion traces for the challenged indices. The whole file
// is needed: sibling nodes in a trace are computed from the chunks not
// being proven.
func BuildSubmission(ctx context.Context, svc gateway.Service, chal challenge.Challenge) (proof.Submission, error) {
	locations := make([][]byte, chal.ChunkCount)
	for i := range locations {
		locations[i] = commitment.ChunkLocation(chal.Key.FileID, uint32(i))
	}

	chunks, err := svc.Read(ctx, locations)
	if err != nil {
		return proof.Submission{}, fmt.Errorf("read chunks: %w", err)
	}
	if len(chunks) != len(locations) {
		return proof.Submission{}, fmt.Errorf("%w: got %d of %d chunks", ErrDataUnavailable, len(chunks), len(locations))
	}
	for i, chunk := range chunks {
		if len(chunk) == 0 {
			return proof.Submission{}, fmt.Errorf("%w: chunk %d", ErrDataUnavailable, i)
		}
	}

	// Refuse to build a proof that cannot verify: the stored chunks must
	// still hash to the root the challenge was issued against.
	if merkle.ComputeRoot(chunks, crypto.HashData) != chal.Root {
		return proof.Submission{}, ErrFingerprintMismatch
	}

	sub := proof.Submission{Challenge: chal.Key}
	for _, idx := range chal.Indices {
		sub.Items = append(sub.Items, proof.Item{
			Index: idx,
			Chunk: chunks[idx],
			Trace: merkle.ComputeTrace(chunks, int(idx), crypto.HashData),
		})
	}
	return sub, nil
}
