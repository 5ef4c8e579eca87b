package gateway

import (
	"context"
	"encoding/hex"
	"sync"

	"github.com/stornetlabs/stornet/internal/crypto"
	"github.com/stornetlabs/stornet/pkg/log"
)

// Service is the storage backend behind the gateway. Upload returns the
// canonical location the data landed under. Read is batch and positional:
// the returned slice is aligned with the requested locations, and a location
// that cannot be retrieved yields an empty entry at its position rather than
// failing the batch. Callers treat an empty entry as "proof unobtainable",
// not as a protocol error.
type Service interface {
	Upload(ctx context.Context, location string, data []byte) (string, error)
	Read(ctx context.Context, locations [][]byte) ([][]byte, error)
}

// MemoryStore is an in-process Service keeping chunks in a map. Providers
// embed it in tests and the single-process demo; a production data service
// implements Service over its own backend.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Upload stores data under the requested location and additionally under
// its content address, which is returned as the canonical location.
func (m *MemoryStore) Upload(_ context.Context, location string, data []byte) (string, error) {
	stored := make([]byte, len(data))
	copy(stored, data)

	contentHash := crypto.HashData(data)
	canonical := hex.EncodeToString(contentHash[:])

	m.mu.Lock()
	defer m.mu.Unlock()
	if location != "" {
		m.blobs[location] = stored
	}
	m.blobs[canonical] = stored

	log.Gateway.Debug().
		Str("location", location).
		Str("canonical", canonical).
		Int("size", len(data)).
		Msg("stored blob")

	return canonical, nil
}

// Read fetches each location; unknown locations produce empty entries.
func (m *MemoryStore) Read(_ context.Context, locations [][]byte) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data := make([][]byte, len(locations))
	for i, loc := range locations {
		blob, ok := m.blobs[string(loc)]
		if !ok {
			data[i] = nil
			continue
		}
		out := make([]byte, len(blob))
		copy(out, blob)
		data[i] = out
	}
	return data, nil
}
