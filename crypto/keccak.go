// Package crypto provides the cryptographic primitives needed by the ENR
// identity scheme: Keccak-256 hashing and secp256k1 signing/verification.
package crypto

import "golang.org/x/crypto/sha3"

// Keccak256 calculates the Keccak-256 hash of the concatenation of data.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}
