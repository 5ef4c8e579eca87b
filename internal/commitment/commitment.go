// Package commitment tracks the merkle commitments storage providers are
// challenged against. A file is split into fixed-size chunks; the chunk
// merkle root is the file's fingerprint on the network. Roots are immutable
// once committed, except for a full replacement on an authorized update.
package commitment

import (
	"encoding/binary"

	"github.com/stornetlabs/stornet/internal/crypto"
	"github.com/stornetlabs/stornet/internal/merkle"
)

// ChunkSize is the fixed size in bytes of a file chunk, the unit committed
// to and proven against. The last chunk of a file may be shorter.
const ChunkSize = 1024

// FileCommitment is the on-network record of a stored file.
type FileCommitment struct {
	FileID     crypto.Hash
	Bucket     crypto.Hash
	Root       crypto.Hash
	ChunkCount uint32
	Size       uint64
}

// Chunk splits data into ChunkSize chunks. The final chunk carries the
// remainder and may be shorter than ChunkSize.
func Chunk(data []byte) [][]byte {
	if len(data) == 0 {
		return nil
	}

	chunks := make([][]byte, 0, (len(data)+ChunkSize-1)/ChunkSize)
	for len(data) > ChunkSize {
		chunks = append(chunks, data[:ChunkSize])
		data = data[ChunkSize:]
	}
	return append(chunks, data)
}

// Build computes the commitment for a file's content within a bucket.
func Build(bucket crypto.Hash, data []byte) FileCommitment {
	chunks := Chunk(data)
	root := merkle.ComputeRoot(chunks, crypto.HashData)
	size := uint64(len(data))

	return FileCommitment{
		FileID:     ComputeFileID(bucket, size, root),
		Bucket:     bucket,
		Root:       root,
		ChunkCount: uint32(len(chunks)),
		Size:       size,
	}
}

// ComputeFileID derives the canonical file identifier from the owning
// bucket, the file size and the chunk merkle root.
func ComputeFileID(bucket crypto.Hash, size uint64, root crypto.Hash) crypto.Hash {
	sizeBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(sizeBytes, size)
	return crypto.HashConcat(bucket[:], sizeBytes, root[:])
}

// VerifyInclusion checks that chunk sits at index under the commitment's
// root. This is the sole proof-checking entry point; the hashing and tree
// layout stay swappable behind it.
func (c FileCommitment) VerifyInclusion(index uint32, chunk []byte, trace [][]byte) bool {
	return merkle.VerifyTrace(c.Root, int(index), int(c.ChunkCount), chunk, trace, crypto.HashData)
}

// ChunkLocation is the storage-backend address of one chunk of a file,
// used by provers to fetch chunk bytes through the gateway.
func ChunkLocation(fileID crypto.Hash, index uint32) []byte {
	loc := make([]byte, crypto.HashSize+4)
	copy(loc, fileID[:])
	binary.BigEndian.PutUint32(loc[crypto.HashSize:], index)
	return loc
}
