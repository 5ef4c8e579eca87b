package crypto

const (
	// HashSize is the size in bytes of the protocol hash (blake2b-256).
	HashSize = 32

	Ed25519PublicSize    = 32
	Ed25519PrivateSize   = 64
	Ed25519SignatureSize = 64
)
