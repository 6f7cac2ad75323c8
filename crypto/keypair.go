package crypto

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/mr-tron/base58"
	"gitlab.com/NebulousLabs/errors"
	"gitlab.com/NebulousLabs/fastrand"
)

// addressVersion is the base58check version byte prepended to an address
// before its checksum is computed.
const addressVersion = 0x00

// ErrInvalidWIF is returned when a WIF string cannot be decoded into a
// private scalar.
var ErrInvalidWIF = errors.New("invalid WIF-encoded private key")

// KeyPair is an immutable secp256k1 key pair: the private scalar, its
// compressed public point, and the base58check address derived from the
// point. A KeyPair's lifetime is the process; it is never
// mutated after construction.
type KeyPair struct {
	priv *secp256k1.PrivateKey
	pub  *secp256k1.PublicKey
	addr string
}

// NewKeyPair generates a new KeyPair from cryptographically secure
// randomness.
func NewKeyPair() (*KeyPair, error) {
	var seed [32]byte
	fastrand.Read(seed[:])
	priv := secp256k1.PrivKeyFromBytes(seed[:])
	return keyPairFromPrivate(priv), nil
}

// KeyPairFromWIF reconstructs a KeyPair from a base58check-encoded scalar.
func KeyPairFromWIF(wif string) (*KeyPair, error) {
	decoded, err := base58.Decode(wif)
	if err != nil {
		return nil, errors.Extend(err, ErrInvalidWIF)
	}
	if len(decoded) < 1+32+4 {
		return nil, ErrInvalidWIF
	}
	payload := decoded[:len(decoded)-4]
	checksum := decoded[len(decoded)-4:]
	if !verifyChecksum(payload, checksum) {
		return nil, ErrInvalidWIF
	}
	scalar := payload[1:]
	if len(scalar) != 32 {
		return nil, ErrInvalidWIF
	}
	priv := secp256k1.PrivKeyFromBytes(scalar)
	return keyPairFromPrivate(priv), nil
}

func keyPairFromPrivate(priv *secp256k1.PrivateKey) *KeyPair {
	pub := priv.PubKey()
	addr := deriveAddress(pub)
	return &KeyPair{priv: priv, pub: pub, addr: addr}
}

func deriveAddress(pub *secp256k1.PublicKey) string {
	digest := Hash160(pub.SerializeCompressed())
	payload := append([]byte{addressVersion}, digest...)
	return base58.Encode(append(payload, checksum(payload)...))
}

func checksum(payload []byte) []byte {
	sum := SHA256(SHA256(payload).Bytes())
	return sum[:4]
}

func verifyChecksum(payload, want []byte) bool {
	got := checksum(payload)
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// Address returns the base58check address derived from the public key:
// base58check(RIPEMD160(SHA256(pubkey))).
func (kp *KeyPair) Address() string {
	return kp.addr
}

// PublicKey returns the 33-byte compressed public key.
func (kp *KeyPair) PublicKey() []byte {
	return kp.pub.SerializeCompressed()
}

// NodeID returns RIPEMD160(SHA256(pubkey)), the 160-bit peer identifier
// derived from the public key.
func (kp *KeyPair) NodeID() []byte {
	return Hash160(kp.PublicKey())
}

// WIF returns the base58check-encoded private scalar.
func (kp *KeyPair) WIF() string {
	scalar := kp.priv.Serialize()
	payload := append([]byte{addressVersion}, scalar...)
	return base58.Encode(append(payload, checksum(payload)...))
}

// Sign produces a DER-encoded ECDSA signature over digest.
func (kp *KeyPair) Sign(digest []byte) []byte {
	sig := ecdsa.Sign(kp.priv, digest)
	return sig.Serialize()
}

// Verify reports whether sig is a valid DER ECDSA signature over digest by
// pubkey (33-byte compressed).
func Verify(pubkey, digest, sig []byte) bool {
	pub, err := secp256k1.ParsePubKey(pubkey)
	if err != nil {
		return false
	}
	signature, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	return signature.Verify(digest, pub)
}

// SignRecoverable produces a compact, recoverable signature over digest:
// the peer-message protocol (§4.7) recovers the signer's public key from
// the signature alone rather than transmitting it out of band.
func (kp *KeyPair) SignRecoverable(digest []byte) []byte {
	return ecdsa.SignCompact(kp.priv, digest, true)
}

// RecoverPublicKey recovers the compressed public key that produced a
// compact, recoverable signature over digest.
func RecoverPublicKey(digest, sig []byte) ([]byte, error) {
	pub, _, err := ecdsa.RecoverCompact(sig, digest)
	if err != nil {
		return nil, errors.Extend(err, errors.New("signature recovery failed"))
	}
	return pub.SerializeCompressed(), nil
}
