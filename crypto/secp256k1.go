package crypto

import (
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	dcrecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// PrivateKey is a secp256k1 private key used for the ENR "v4" identity
// scheme. It is an alias of the decred implementation rather than a
// wrapper around crypto/ecdsa: Go's generic elliptic.Curve machinery is
// not a good fit for secp256k1 and the previous placeholder in this
// package (elliptic.P256) was never more than a stand-in for this.
type PrivateKey = secp256k1.PrivateKey

// PublicKey is a secp256k1 public key.
type PublicKey = secp256k1.PublicKey

var (
	ErrInvalidPubkeyLength = errors.New("crypto: invalid public key length")
	ErrInvalidHashLength   = errors.New("crypto: hash must be 32 bytes")
)

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*PrivateKey, error) {
	return secp256k1.GeneratePrivateKey()
}

// CompressPubkey returns the 33-byte SEC1 compressed encoding of pub.
func CompressPubkey(pub *PublicKey) []byte {
	return pub.SerializeCompressed()
}

// DecompressPubkey parses a 33-byte compressed public key.
func DecompressPubkey(data []byte) (*PublicKey, error) {
	if len(data) != 33 {
		return nil, ErrInvalidPubkeyLength
	}
	return secp256k1.ParsePubKey(data)
}

// FromECDSAPub returns the 65-byte SEC1 uncompressed encoding of pub.
func FromECDSAPub(pub *PublicKey) []byte {
	return pub.SerializeUncompressed()
}

// Sign produces an ECDSA signature over a 32-byte hash using priv. The
// returned bytes are this package's own signature encoding (DER); the
// "v4" ENR identity scheme only requires Sign and ValidateSignature to
// be inverses of one another here, since the wire-exact signature
// encoding belongs to the session/codec layer this module does not
// implement.
func Sign(hash []byte, priv *PrivateKey) ([]byte, error) {
	if len(hash) != 32 {
		return nil, ErrInvalidHashLength
	}
	sig := dcrecdsa.Sign(priv, hash)
	return sig.Serialize(), nil
}

// ValidateSignature reports whether sig is a valid signature over hash by
// the holder of the uncompressed public key pubUncompressed.
func ValidateSignature(pubUncompressed, hash, sig []byte) bool {
	pub, err := secp256k1.ParsePubKey(pubUncompressed)
	if err != nil {
		return false
	}
	parsed, err := dcrecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	return parsed.Verify(hash, pub)
}
