package audit

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Signer produces a detached hex signature over a payload.
type Signer interface {
	Sign(payload []byte) string
}

// KeyPair is the node's Ed25519 identity.
type KeyPair struct {
	priv ed25519.PrivateKey
}

// NewKeyPair derives a key pair from a 32 byte seed.
func NewKeyPair(seed []byte) (*KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("ed25519 seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &KeyPair{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// LoadOrCreateKey reads a hex seed from path, or generates one and writes it
// with 0600 permissions next to a hex public key at path+".pub". An existing
// but unreadable key file is an error; it is never overwritten.
func LoadOrCreateKey(path string) (*KeyPair, error) {
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		seed, err := hex.DecodeString(strings.TrimSpace(string(raw)))
		if err != nil {
			return nil, fmt.Errorf("decode key %q: %w", path, err)
		}
		return NewKeyPair(seed)
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read key %q: %w", path, err)
	}

	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	kp, err := NewKeyPair(seed)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create key dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(seed)+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("save key %q: %w", path, err)
	}
	if err := os.WriteFile(path+".pub", []byte(hex.EncodeToString(kp.PublicKey())+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("save public key %q: %w", path+".pub", err)
	}
	return kp, nil
}

// Sign returns the hex encoded signature of payload.
func (k *KeyPair) Sign(payload []byte) string {
	return hex.EncodeToString(ed25519.Sign(k.priv, payload))
}

func (k *KeyPair) PublicKey() ed25519.PublicKey {
	return k.priv.Public().(ed25519.PublicKey)
}

// LoadPublicKey reads a hex encoded public key file.
func LoadPublicKey(path string) (ed25519.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read public key %q: %w", path, err)
	}
	return ParsePublicKey(strings.TrimSpace(string(raw)))
}

// ParsePublicKey decodes a hex public key.
func ParsePublicKey(s string) (ed25519.PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(b))
	}
	return ed25519.PublicKey(b), nil
}

// VerifySignature reports whether sigHex is a valid signature of payload.
func VerifySignature(pub ed25519.PublicKey, payload []byte, sigHex string) bool {
	sig, err := hex.DecodeString(sigHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, payload, sig)
}
