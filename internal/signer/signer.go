// Package signer produces and checks detached Ed25519 signatures over a
// file digest — never over the file itself, so signing cost stays
// independent of file size and the receiver can verify without buffering
// the whole payload.
package signer

import (
	"crypto/ed25519"
)

// Size is the length in bytes of a detached Ed25519 signature.
const Size = ed25519.SignatureSize

// Sign produces a detached signature over digest using the given expanded
// private key. digest is signed as-is; no hashing happens inside Sign.
func Sign(digest [32]byte, private ed25519.PrivateKey) [Size]byte {
	sig := ed25519.Sign(private, digest[:])
	var out [Size]byte
	copy(out[:], sig)
	return out
}

// Verify reports whether sig is a valid detached signature over digest
// under public.
func Verify(digest [32]byte, sig [Size]byte, public ed25519.PublicKey) bool {
	return ed25519.Verify(public, digest[:], sig[:])
}
