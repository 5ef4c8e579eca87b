package proof

import (
	"github.com/stornetlabs/stornet/internal/challenge"
	"github.com/stornetlabs/stornet/internal/crypto"
	"github.com/stornetlabs/stornet/internal/epoch"
	"github.com/stornetlabs/stornet/internal/merkle"
)

// Verifier checks submissions against challenges. Stateless.
type Verifier struct{}

func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify checks, in order: the challenge is still open and within its
// deadline; the submission covers exactly the required index set; every
// chunk's trace reconstructs the root captured when the challenge was
// issued. The hash and tree layout are the ones the commitment root was
// built with, so a proof against any other root, including a later
// replacement of the same file, cannot pass.
func (v *Verifier) Verify(c *challenge.Challenge, sub Submission, now epoch.Epoch) Verdict {
	if c.Resolved() {
		return RejectResolved
	}
	if now > c.Deadline {
		return RejectExpired
	}

	if !coversExactly(c.Indices, sub.Items) {
		return RejectPartialProof
	}

	for _, item := range sub.Items {
		if !merkle.VerifyTrace(c.Root, int(item.Index), int(c.ChunkCount), item.Chunk, item.Trace, crypto.HashData) {
			return RejectInvalidProof
		}
	}

	return Accept
}

// coversExactly reports whether the submitted items prove exactly the
// required indices: no subset, no superset, no duplicates.
func coversExactly(required []uint32, items []Item) bool {
	if len(items) != len(required) {
		return false
	}

	pending := make(map[uint32]struct{}, len(required))
	for _, idx := range required {
		pending[idx] = struct{}{}
	}
	for _, item := range items {
		if _, ok := pending[item.Index]; !ok {
			return false
		}
		delete(pending, item.Index)
	}
	return len(pending) == 0
}
