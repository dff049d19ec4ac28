package crypto

import (
	"crypto/ed25519"
	cryptorand "crypto/rand"
	"fmt"
)

// Signer produces detached Ed25519 signatures and exposes its base58
// public key.
type Signer interface {
	Sign(message []byte) []byte
	PublicKeyB58() string
}

// Ed25519Signer is the default Signer backed by an in-process private
// key.
type Ed25519Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewEd25519Signer generates a fresh random keypair.
func NewEd25519Signer() (*Ed25519Signer, error) {
	pub, priv, err := ed25519.GenerateKey(cryptorand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return &Ed25519Signer{priv: priv, pub: pub}, nil
}

// NewEd25519SignerFromSeed derives a deterministic keypair from a
// 32-byte seed, for fixture generation and tests.
func NewEd25519SignerFromSeed(seed []byte) (*Ed25519Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Ed25519Signer{priv: priv, pub: priv.Public().(ed25519.PublicKey)}, nil
}

func (s *Ed25519Signer) Sign(message []byte) []byte {
	return ed25519.Sign(s.priv, message)
}

func (s *Ed25519Signer) PublicKeyB58() string {
	return Base58Encode(s.pub)
}

// PublicKey returns the raw Ed25519 public key bytes.
func (s *Ed25519Signer) PublicKey() ed25519.PublicKey {
	return s.pub
}

// SignB58 signs message and returns the signature as a base58 string,
// the representation used on the wire by an Envelope.
func (s *Ed25519Signer) SignB58(message []byte) string {
	return Base58Encode(s.Sign(message))
}

// Ed25519Verify verifies a detached signature over message against a
// base58-encoded public key and a base58-encoded signature.
func Ed25519Verify(publicKeyB58, signatureB58 string, message []byte) (bool, error) {
	pubBytes, err := Base58Decode(publicKeyB58)
	if err != nil {
		return false, fmt.Errorf("decode public key: %w", err)
	}
	if len(pubBytes) != ed25519.PublicKeySize {
		return false, fmt.Errorf("invalid public key size: %d", len(pubBytes))
	}
	sigBytes, err := Base58Decode(signatureB58)
	if err != nil {
		return false, fmt.Errorf("decode signature: %w", err)
	}
	if len(sigBytes) != ed25519.SignatureSize {
		return false, fmt.Errorf("invalid signature size: %d", len(sigBytes))
	}
	return ed25519.Verify(ed25519.PublicKey(pubBytes), message, sigBytes), nil
}
