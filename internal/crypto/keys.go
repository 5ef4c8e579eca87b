package crypto

import "encoding/hex"

type Ed25519Signature [Ed25519SignatureSize]byte
type Ed25519PublicKey [Ed25519PublicSize]byte

// ProviderPublicKey identifies a registered storage provider. It doubles as
// the provider's ed25519 verification key.
type ProviderPublicKey [Ed25519PublicSize]byte

func (k ProviderPublicKey) String() string {
	return hex.EncodeToString(k[:])
}
