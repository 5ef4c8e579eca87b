package store

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/ChainSafe/gossamer/pkg/scale"

	"github.com/stornetlabs/stornet/internal/crypto"
	"github.com/stornetlabs/stornet/internal/epoch"
	"github.com/stornetlabs/stornet/internal/provider"
	"github.com/stornetlabs/stornet/pkg/db"
	"github.com/stornetlabs/stornet/pkg/db/pebble"
	"github.com/stornetlabs/stornet/pkg/log"
)

// ErrProviderNotFound is returned when no record exists for a provider key.
var ErrProviderNotFound = errors.New("store: provider not found")

// AssignmentRecord is the durable form of one storage obligation.
type AssignmentRecord struct {
	FileID            crypto.Hash
	ConsecutiveMisses uint32
	LastProofEpoch    epoch.Epoch
	HasProven         bool
}

// ProviderRecord is the durable snapshot of a provider. Assignments are a
// sorted slice rather than a map: SCALE has no map encoding and the record
// bytes must be deterministic.
type ProviderRecord struct {
	Key         crypto.ProviderPublicKey
	Stake       uint64
	Reputation  int64
	Status      provider.Status
	Assignments []AssignmentRecord
}

// NewProviderRecord flattens a registry snapshot into its durable form.
func NewProviderRecord(p provider.StorageProvider) ProviderRecord {
	rec := ProviderRecord{
		Key:        p.Key,
		Stake:      p.Stake,
		Reputation: p.Reputation,
		Status:     p.Status,
	}
	for _, a := range p.Assignments {
		rec.Assignments = append(rec.Assignments, AssignmentRecord{
			FileID:            a.FileID,
			ConsecutiveMisses: a.ConsecutiveMisses,
			LastProofEpoch:    a.LastProofEpoch,
			HasProven:         a.HasProven,
		})
	}
	sort.Slice(rec.Assignments, func(i, j int) bool {
		return bytes.Compare(rec.Assignments[i].FileID[:], rec.Assignments[j].FileID[:]) < 0
	})
	return rec
}

// Snapshot rebuilds the registry view from the durable form.
func (r ProviderRecord) Snapshot() provider.StorageProvider {
	p := provider.StorageProvider{
		Key:         r.Key,
		Stake:       r.Stake,
		Reputation:  r.Reputation,
		Status:      r.Status,
		Assignments: make(map[crypto.Hash]*provider.Assignment, len(r.Assignments)),
	}
	for _, a := range r.Assignments {
		p.Assignments[a.FileID] = &provider.Assignment{
			FileID:            a.FileID,
			ConsecutiveMisses: a.ConsecutiveMisses,
			LastProofEpoch:    a.LastProofEpoch,
			HasProven:         a.HasProven,
		}
	}
	return p
}

// Providers persists provider records keyed by public key.
type Providers struct {
	db.KVStore
}

func NewProviders(kv db.KVStore) *Providers {
	return &Providers{KVStore: kv}
}

func (s *Providers) Put(rec ProviderRecord) error {
	bytes, err := scale.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal provider: %w", err)
	}
	if err := s.KVStore.Put(makeKey(prefixProvider, rec.Key[:]), bytes); err != nil {
		return fmt.Errorf("put provider: %w", err)
	}
	return nil
}

func (s *Providers) Get(key crypto.ProviderPublicKey) (ProviderRecord, error) {
	bytes, err := s.KVStore.Get(makeKey(prefixProvider, key[:]))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return ProviderRecord{}, ErrProviderNotFound
		}
		return ProviderRecord{}, fmt.Errorf("get provider: %w", err)
	}

	var rec ProviderRecord
	if err := scale.Unmarshal(bytes, &rec); err != nil {
		return ProviderRecord{}, fmt.Errorf("unmarshal provider: %w", err)
	}
	return rec, nil
}

func (s *Providers) Delete(key crypto.ProviderPublicKey) error {
	if err := s.KVStore.Delete(makeKey(prefixProvider, key[:])); err != nil {
		return fmt.Errorf("delete provider: %w", err)
	}
	return nil
}

// All returns every stored provider record, ordered by key.
func (s *Providers) All() ([]ProviderRecord, error) {
	iter, err := s.NewIterator([]byte{prefixProvider}, []byte{prefixProvider + 1})
	if err != nil {
		return nil, fmt.Errorf("create provider iterator: %w", err)
	}
	defer iter.Close()

	var records []ProviderRecord
	for iter.Next() {
		bytes, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("read provider value: %w", err)
		}
		var rec ProviderRecord
		if err := scale.Unmarshal(bytes, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal provider: %w", err)
		}
		records = append(records, rec)
	}

	log.Store.Debug().Int("providers", len(records)).Msg("scanned provider records")
	return records, nil
}
