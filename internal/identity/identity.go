// Package identity manages the long-lived Ed25519 keypair a peer signs
// transfers with, persisted as two raw-byte sibling files the way
// gosignify and libsodium's KeyManager do it — no PEM framing, no newline.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrCryptoInit is returned when key generation itself fails.
var ErrCryptoInit = errors.New("identity: key generation failed")

// ErrBadLength is returned when a loaded key file does not match the
// expected Ed25519 size.
var ErrBadLength = errors.New("identity: bad key length")

// KeyPair holds a peer's Ed25519 public and private key, raw bytes only.
type KeyPair struct {
	Public  ed25519.PublicKey  // 32 bytes
	Private ed25519.PrivateKey // 64 bytes, expanded form
}

// Generate creates a fresh Ed25519 keypair.
func Generate() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("%w: %v", ErrCryptoInit, err)
	}
	return KeyPair{Public: pub, Private: priv}, nil
}

// Save writes the public and private keys to their own raw-binary files,
// truncating any existing content. If either write fails the caller should
// treat both files as suspect — a partial save leaves no guarantee about
// which half landed.
func Save(kp KeyPair, pubPath, privPath string) error {
	if err := writeRaw(pubPath, kp.Public); err != nil {
		return fmt.Errorf("identity: save public key: %w", err)
	}
	if err := writeRaw(privPath, kp.Private); err != nil {
		return fmt.Errorf("identity: save private key: %w", err)
	}
	return nil
}

// Load reads both key files and verifies their lengths. A length mismatch
// is reported as ErrBadLength rather than silently truncating or padding.
func Load(pubPath, privPath string) (KeyPair, error) {
	pub, err := os.ReadFile(pubPath)
	if err != nil {
		return KeyPair{}, fmt.Errorf("identity: load public key: %w", err)
	}
	priv, err := os.ReadFile(privPath)
	if err != nil {
		return KeyPair{}, fmt.Errorf("identity: load private key: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize || len(priv) != ed25519.PrivateKeySize {
		return KeyPair{}, fmt.Errorf("%w: public=%d private=%d", ErrBadLength, len(pub), len(priv))
	}
	return KeyPair{Public: ed25519.PublicKey(pub), Private: ed25519.PrivateKey(priv)}, nil
}

// Dir returns the per-user directory keys (and the rest of the config) live
// under, creating it if necessary.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("identity: resolve home: %w", err)
	}
	dir := filepath.Join(home, ".pax")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("identity: create config dir: %w", err)
	}
	return dir, nil
}

// Paths returns the conventional public/private key file paths under Dir().
func Paths() (pubPath, privPath string, err error) {
	dir, err := Dir()
	if err != nil {
		return "", "", err
	}
	return filepath.Join(dir, "id_ed25519.pub"), filepath.Join(dir, "id_ed25519"), nil
}

func writeRaw(path string, data []byte) error {
	return os.WriteFile(path, data, 0o600)
}
