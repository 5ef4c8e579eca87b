// Package store persists the engine's durable records: file commitments,
// their superseded-root history, challenges, provider records and epoch
// seeds. Records are SCALE-encoded and keyed under one byte prefix per
// record family.
package store

// Prefix constants for all record families
const (
	prefixCommitment byte = iota + 1
	prefixCommitmentHistory
	prefixChallenge
	prefixProvider
	prefixSeed
)

// makeKey creates a key from a prefix and an identifier
func makeKey(prefix byte, id []byte) []byte {
	key := make([]byte, 1+len(id))
	key[0] = prefix
	copy(key[1:], id)
	return key
}
