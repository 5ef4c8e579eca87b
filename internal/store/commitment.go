package store

import (
	"errors"
	"fmt"

	"github.com/ChainSafe/gossamer/pkg/scale"

	"github.com/stornetlabs/stornet/internal/commitment"
	"github.com/stornetlabs/stornet/internal/crypto"
	"github.com/stornetlabs/stornet/pkg/db"
	"github.com/stornetlabs/stornet/pkg/db/pebble"
	"github.com/stornetlabs/stornet/pkg/log"
)

// ErrCommitmentNotFound is returned when no commitment exists for a file.
var ErrCommitmentNotFound = errors.New("store: commitment not found")

// Commitments persists file commitments. The current root is authoritative
// for proofs; superseded roots are retained for audit only and never
// validate a proof again.
type Commitments struct {
	db.KVStore
}

func NewCommitments(kv db.KVStore) *Commitments {
	return &Commitments{KVStore: kv}
}

// Put stores the commitment for a new file.
func (s *Commitments) Put(c commitment.FileCommitment) error {
	bytes, err := scale.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal commitment: %w", err)
	}
	if err := s.KVStore.Put(makeKey(prefixCommitment, c.FileID[:]), bytes); err != nil {
		return fmt.Errorf("put commitment: %w", err)
	}
	return nil
}

// Get retrieves the current commitment for a file.
func (s *Commitments) Get(fileID crypto.Hash) (commitment.FileCommitment, error) {
	bytes, err := s.KVStore.Get(makeKey(prefixCommitment, fileID[:]))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return commitment.FileCommitment{}, ErrCommitmentNotFound
		}
		return commitment.FileCommitment{}, fmt.Errorf("get commitment: %w", err)
	}

	var c commitment.FileCommitment
	if err := scale.Unmarshal(bytes, &c); err != nil {
		return commitment.FileCommitment{}, fmt.Errorf("unmarshal commitment: %w", err)
	}
	return c, nil
}

// Replace supersedes the stored root for a file with an authorized update.
// The old root moves into the audit history; the new commitment keeps the
// file identifier.
func (s *Commitments) Replace(fileID crypto.Hash, next commitment.FileCommitment) error {
	current, err := s.Get(fileID)
	if err != nil {
		return err
	}

	history, err := s.History(fileID)
	if err != nil {
		return err
	}
	history = append(history, current.Root)

	historyBytes, err := scale.Marshal(history)
	if err != nil {
		return fmt.Errorf("marshal root history: %w", err)
	}

	next.FileID = fileID
	nextBytes, err := scale.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal commitment: %w", err)
	}

	batch := s.NewBatch()
	defer batch.Close()
	if err := batch.Put(makeKey(prefixCommitmentHistory, fileID[:]), historyBytes); err != nil {
		return fmt.Errorf("put root history: %w", err)
	}
	if err := batch.Put(makeKey(prefixCommitment, fileID[:]), nextBytes); err != nil {
		return fmt.Errorf("put commitment: %w", err)
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit commitment replacement: %w", err)
	}

	log.Store.Info().
		Stringer("file", fileID).
		Stringer("root", next.Root).
		Int("superseded", len(history)).
		Msg("commitment root replaced")
	return nil
}

// History returns the superseded roots for a file, oldest first.
func (s *Commitments) History(fileID crypto.Hash) ([]crypto.Hash, error) {
	bytes, err := s.KVStore.Get(makeKey(prefixCommitmentHistory, fileID[:]))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get root history: %w", err)
	}

	var history []crypto.Hash
	if err := scale.Unmarshal(bytes, &history); err != nil {
		return nil, fmt.Errorf("unmarshal root history: %w", err)
	}
	return history, nil
}
