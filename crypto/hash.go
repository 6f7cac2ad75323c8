// Package crypto provides the hash, key, and audit-tree primitives shared by
// every other package in the module: content hashing, address/nodeID
// derivation, secp256k1 signing, and the per-shard audit Merkle tree.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160"
)

// HashSize is the length in bytes of a SHA256 digest.
const HashSize = sha256.Size

// Hash is a SHA256 digest.
type Hash [HashSize]byte

// SHA256 returns the SHA256 digest of data.
func SHA256(data []byte) Hash {
	return Hash(sha256.Sum256(data))
}

// RIPEMD160 returns the RIPEMD160 digest of data.
func RIPEMD160(data []byte) []byte {
	h := ripemd160.New()
	h.Write(data) //nolint:errcheck // ripemd160.digest.Write never errors
	return h.Sum(nil)
}

// Hash160 computes RIPEMD160(SHA256(data)), the digest used throughout the
// spec for addresses and nodeIDs.
func Hash160(data []byte) []byte {
	sum := SHA256(data)
	return RIPEMD160(sum[:])
}

// HMACSHA256 computes HMAC-SHA256(key, data), used to build audit-tree
// leaves from a shard's challenges.
func HMACSHA256(key, data []byte) Hash {
	mac := hmac.New(sha256.New, key)
	mac.Write(data) //nolint:errcheck // hmac.Write never errors
	return Hash(mac.Sum(nil))
}

// Bytes returns h as a byte slice.
func (h Hash) Bytes() []byte {
	return h[:]
}

// String returns the hex encoding of h.
func (h Hash) String() string {
	const hextable = "0123456789abcdef"
	buf := make([]byte, len(h)*2)
	for i, b := range h {
		buf[i*2] = hextable[b>>4]
		buf[i*2+1] = hextable[b&0x0f]
	}
	return string(buf)
}
