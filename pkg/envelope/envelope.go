// Package envelope wraps an arbitrary message with a detached Ed25519
// signature over its canonical SHA-256 hash.
package envelope

import (
	"errors"
	"fmt"

	"github.com/pactaudit/pactaudit/pkg/canon"
	"github.com/pactaudit/pactaudit/pkg/crypto"
)

// ErrHashMismatch is returned when an envelope's declared message_hash_hex
// does not match the recomputed canonical hash of its message.
var ErrHashMismatch = errors.New("ENVELOPE_HASH_MISMATCH")

// ErrSignatureInvalid is returned when the declared signature does not
// verify against the declared public key and recomputed hash.
var ErrSignatureInvalid = errors.New("ENVELOPE_SIG_INVALID")

// Envelope wraps a message with its canonical hash and a detached
// Ed25519 signature over that hash.
type Envelope struct {
	Message            map[string]interface{} `json:"message"`
	MessageHashHex     string                  `json:"message_hash_hex"`
	SignerPublicKeyB58 string                  `json:"signer_public_key_b58"`
	SignatureB58       string                  `json:"signature_b58"`
	SignedAtMs         int64                   `json:"signed_at_ms"`
}

// Sign canonicalizes message, hashes it, signs the hash bytes with
// signer, and returns the resulting Envelope. now_ms is caller-supplied
// (an injectable clock) rather than generated internally.
func Sign(message map[string]interface{}, signer *crypto.Ed25519Signer, nowMs int64) (*Envelope, error) {
	hashHex, err := canon.Hash(message)
	if err != nil {
		return nil, fmt.Errorf("envelope: canonicalize message: %w", err)
	}

	sigB58 := signer.SignB58([]byte(hashHex))

	return &Envelope{
		Message:            message,
		MessageHashHex:     hashHex,
		SignerPublicKeyB58: signer.PublicKeyB58(),
		SignatureB58:       sigB58,
		SignedAtMs:         nowMs,
	}, nil
}

// Verify recomputes the canonical hash of env.Message, checks it
// against the declared message_hash_hex, then verifies the declared
// signature over the hash bytes with the declared public key.
func Verify(env *Envelope) (bool, error) {
	hashHex, err := canon.Hash(env.Message)
	if err != nil {
		return false, fmt.Errorf("envelope: canonicalize message: %w", err)
	}
	if hashHex != env.MessageHashHex {
		return false, ErrHashMismatch
	}

	ok, err := crypto.Ed25519Verify(env.SignerPublicKeyB58, env.SignatureB58, []byte(hashHex))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	if !ok {
		return false, ErrSignatureInvalid
	}
	return true, nil
}
