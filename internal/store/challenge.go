package store

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ChainSafe/gossamer/pkg/scale"

	"github.com/stornetlabs/stornet/internal/challenge"
	"github.com/stornetlabs/stornet/internal/epoch"
	"github.com/stornetlabs/stornet/pkg/db"
	"github.com/stornetlabs/stornet/pkg/db/pebble"
)

// ErrChallengeNotFound is returned when no challenge exists for a key.
var ErrChallengeNotFound = errors.New("store: challenge not found")

// Challenges persists challenge records keyed by (epoch, provider, file).
// The epoch leads the key in big-endian so an iterator over an epoch range
// sees exactly that range's challenges.
type Challenges struct {
	db.KVStore
}

func NewChallenges(kv db.KVStore) *Challenges {
	return &Challenges{KVStore: kv}
}

func (s *Challenges) Put(c challenge.Challenge) error {
	bytes, err := scale.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}
	if err := s.KVStore.Put(makeChallengeKey(c.Key), bytes); err != nil {
		return fmt.Errorf("put challenge: %w", err)
	}
	return nil
}

func (s *Challenges) Get(key challenge.Key) (challenge.Challenge, error) {
	bytes, err := s.KVStore.Get(makeChallengeKey(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return challenge.Challenge{}, ErrChallengeNotFound
		}
		return challenge.Challenge{}, fmt.Errorf("get challenge: %w", err)
	}

	var c challenge.Challenge
	if err := scale.Unmarshal(bytes, &c); err != nil {
		return challenge.Challenge{}, fmt.Errorf("unmarshal challenge: %w", err)
	}
	return c, nil
}

// ForEpoch retrieves all challenges issued in one epoch.
func (s *Challenges) ForEpoch(e epoch.Epoch) ([]challenge.Challenge, error) {
	return s.scanEpochs(uint64(e), uint64(e)+1)
}

// OpenBefore retrieves every still-open challenge from epochs strictly
// before e. Used by the expiry sweep at each epoch boundary.
func (s *Challenges) OpenBefore(e epoch.Epoch) ([]challenge.Challenge, error) {
	all, err := s.scanEpochs(0, uint64(e))
	if err != nil {
		return nil, err
	}

	var open []challenge.Challenge
	for _, c := range all {
		if !c.Resolved() {
			open = append(open, c)
		}
	}
	return open, nil
}

// scanEpochs iterates challenges in [from, to). Bounds are 64-bit so the
// half-open range can reach past the last epoch without wrapping.
func (s *Challenges) scanEpochs(from, to uint64) ([]challenge.Challenge, error) {
	if from >= to {
		return nil, nil
	}

	startKey := make([]byte, 5)
	startKey[0] = prefixChallenge
	binary.BigEndian.PutUint32(startKey[1:], uint32(from))

	// An upper bound past the last epoch ends at the next prefix instead.
	var endKey []byte
	if to > uint64(epoch.MaxEpoch) {
		endKey = []byte{prefixChallenge + 1}
	} else {
		endKey = make([]byte, 5)
		endKey[0] = prefixChallenge
		binary.BigEndian.PutUint32(endKey[1:], uint32(to))
	}

	iter, err := s.NewIterator(startKey, endKey)
	if err != nil {
		return nil, fmt.Errorf("create challenge iterator: %w", err)
	}
	defer iter.Close()

	var challenges []challenge.Challenge
	for iter.Next() {
		bytes, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("read challenge value: %w", err)
		}
		var c challenge.Challenge
		if err := scale.Unmarshal(bytes, &c); err != nil {
			return nil, fmt.Errorf("unmarshal challenge: %w", err)
		}
		challenges = append(challenges, c)
	}
	return challenges, nil
}

func (s *Challenges) Delete(key challenge.Key) error {
	if err := s.KVStore.Delete(makeChallengeKey(key)); err != nil {
		return fmt.Errorf("delete challenge: %w", err)
	}
	return nil
}

// makeChallengeKey lays out prefix ++ epoch (big-endian) ++ provider ++ file.
func makeChallengeKey(key challenge.Key) []byte {
	out := make([]byte, 0, 1+4+len(key.Provider)+len(key.FileID))
	out = append(out, prefixChallenge)

	var epochBytes [4]byte
	binary.BigEndian.PutUint32(epochBytes[:], uint32(key.Epoch))
	out = append(out, epochBytes[:]...)
	out = append(out, key.Provider[:]...)
	return append(out, key.FileID[:]...)
}
