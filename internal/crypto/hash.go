package crypto

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

type Hash [HashSize]byte

// HashData hashes the input data using blake2b-256, the protocol hash.
func HashData(data []byte) Hash {
	hash := blake2b.Sum256(data)
	return hash
}

// HashConcat hashes the concatenation of the given byte slices.
func HashConcat(parts ...[]byte) Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err)
	}
	for _, p := range parts {
		h.Write(p)
	}
	var result Hash
	copy(result[:], h.Sum(nil))
	return result
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}
