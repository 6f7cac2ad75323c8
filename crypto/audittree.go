package crypto

import (
	"crypto/sha256"

	"gitlab.com/NebulousLabs/errors"
	"gitlab.com/NebulousLabs/fastrand"
	"gitlab.com/NebulousLabs/merkletree"
)

// ChallengeSize is the length in bytes of a single audit challenge nonce.
const ChallengeSize = 32

// AuditTree is the Merkle tree built over HMAC(challenge, shardBytes)
// leaves, padded to the next power of two, whose root the bridge stores for
// later proof-of-retrievability challenges.
type AuditTree struct {
	challenges [][]byte
	root       []byte
}

// NewChallenges generates n random 32-byte audit challenge nonces.
func NewChallenges(n int) [][]byte {
	challenges := make([][]byte, n)
	for i := range challenges {
		challenges[i] = fastrand.Bytes(ChallengeSize)
	}
	return challenges
}

// NewAuditTree builds the audit tree for a shard's bytes and challenges.
// Leaves are HMAC(challenge, shardBytes); the leaf set is padded with
// all-zero leaves up to the next power of two before the root is computed,
// matching the padding convention the merkletree package expects.
func NewAuditTree(shardBytes []byte, challenges [][]byte) (*AuditTree, error) {
	if len(challenges) == 0 {
		return nil, errors.New("audit tree requires at least one challenge")
	}
	leaves := make([][]byte, len(challenges))
	for i, challenge := range challenges {
		leaf := HMACSHA256(challenge, shardBytes)
		leaves[i] = leaf.Bytes()
	}
	padded := padToPowerOfTwo(leaves)

	tree := merkletree.New(sha256.New())
	for _, leaf := range padded {
		tree.Push(leaf)
	}
	root := tree.Root()
	return &AuditTree{challenges: challenges, root: root}, nil
}

// Root returns the tree's Merkle root.
func (t *AuditTree) Root() []byte {
	return t.root
}

// Challenges returns the challenge nonces the tree was built from.
func (t *AuditTree) Challenges() [][]byte {
	return t.challenges
}

func padToPowerOfTwo(leaves [][]byte) [][]byte {
	n := len(leaves)
	p := 1
	for p < n {
		p *= 2
	}
	if p == n {
		return leaves
	}
	padded := make([][]byte, p)
	copy(padded, leaves)
	zero := make([]byte, HashSize)
	for i := n; i < p; i++ {
		padded[i] = zero
	}
	return padded
}
