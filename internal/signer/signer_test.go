package signer

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignVerify_RoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var digest [32]byte
	_, err = rand.Read(digest[:])
	require.NoError(t, err)

	sig := Sign(digest, priv)
	require.True(t, Verify(digest, sig, pub))
}

func TestVerify_RejectsTamperedSignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var digest [32]byte
	sig := Sign(digest, priv)
	sig[0] ^= 0xFF

	require.False(t, Verify(digest, sig, pub))
}

func TestVerify_RejectsWrongKey(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	otherPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var digest [32]byte
	sig := Sign(digest, priv)

	require.False(t, Verify(digest, sig, otherPub))
}

func TestVerify_AllZeroDigest(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var digest [32]byte // "\x00"*32
	sig := Sign(digest, priv)
	require.True(t, Verify(digest, sig, pub))
}
