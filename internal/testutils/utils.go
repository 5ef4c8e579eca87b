package testutils

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stornetlabs/stornet/internal/crypto"
)

func RandomHash(t *testing.T) crypto.Hash {
	hash := make([]byte, crypto.HashSize)
	_, err := rand.Read(hash)
	require.NoError(t, err)
	return crypto.Hash(hash)
}

func RandomProviderPublicKey(t *testing.T) crypto.ProviderPublicKey {
	key := make([]byte, crypto.Ed25519PublicSize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return crypto.ProviderPublicKey(key)
}

func RandomBytes(t *testing.T, size int) []byte {
	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoError(t, err)
	return data
}

// RandomChunks returns n random chunks of the given size.
func RandomChunks(t *testing.T, n, size int) [][]byte {
	chunks := make([][]byte, n)
	for i := range chunks {
		chunks[i] = RandomBytes(t, size)
	}
	return chunks
}
