package store

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ChainSafe/gossamer/pkg/scale"

	"github.com/stornetlabs/stornet/internal/beacon"
	"github.com/stornetlabs/stornet/internal/epoch"
	"github.com/stornetlabs/stornet/pkg/db"
	"github.com/stornetlabs/stornet/pkg/db/pebble"
)

// ErrSeedNotFound is returned when no seed is stored for an epoch.
var ErrSeedNotFound = errors.New("store: seed not found")

// Seeds retains the randomness used at each scheduled epoch boundary, so an
// auditor can re-derive any epoch's challenges from the stored seed and its
// proof long after the beacon has moved on.
type Seeds struct {
	db.KVStore
}

func NewSeeds(kv db.KVStore) *Seeds {
	return &Seeds{KVStore: kv}
}

func (s *Seeds) Put(seed beacon.RandomSeed) error {
	bytes, err := scale.Marshal(seed)
	if err != nil {
		return fmt.Errorf("marshal seed: %w", err)
	}
	if err := s.KVStore.Put(makeSeedKey(seed.Epoch), bytes); err != nil {
		return fmt.Errorf("put seed: %w", err)
	}
	return nil
}

func (s *Seeds) Get(e epoch.Epoch) (beacon.RandomSeed, error) {
	bytes, err := s.KVStore.Get(makeSeedKey(e))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return beacon.RandomSeed{}, ErrSeedNotFound
		}
		return beacon.RandomSeed{}, fmt.Errorf("get seed: %w", err)
	}

	var seed beacon.RandomSeed
	if err := scale.Unmarshal(bytes, &seed); err != nil {
		return beacon.RandomSeed{}, fmt.Errorf("unmarshal seed: %w", err)
	}
	return seed, nil
}

// Latest returns the seed of the highest scheduled epoch. Epochs lead the
// key in big-endian, so the last entry under the prefix is the newest.
func (s *Seeds) Latest() (beacon.RandomSeed, error) {
	iter, err := s.NewIterator([]byte{prefixSeed}, []byte{prefixSeed + 1})
	if err != nil {
		return beacon.RandomSeed{}, fmt.Errorf("create seed iterator: %w", err)
	}
	defer iter.Close()

	var last []byte
	for iter.Next() {
		bytes, err := iter.Value()
		if err != nil {
			return beacon.RandomSeed{}, fmt.Errorf("read seed value: %w", err)
		}
		last = bytes
	}
	if last == nil {
		return beacon.RandomSeed{}, ErrSeedNotFound
	}

	var seed beacon.RandomSeed
	if err := scale.Unmarshal(last, &seed); err != nil {
		return beacon.RandomSeed{}, fmt.Errorf("unmarshal seed: %w", err)
	}
	return seed, nil
}

func makeSeedKey(e epoch.Epoch) []byte {
	var id [4]byte
	binary.BigEndian.PutUint32(id[:], uint32(e))
	return makeKey(prefixSeed, id[:])
}
