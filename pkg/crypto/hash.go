// Package crypto provides the core cryptographic primitives: SHA-256
// hashing (synchronous and async-facade), Ed25519 detached sign/verify,
// and base58 encode/decode over the standard Bitcoin alphabet.
package crypto

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/mr-tron/base58"
)

// Hasher computes SHA-256 digests. Every hashing call the replay engine
// makes goes through this interface (or AsyncHasher) rather than
// calling sha256.Sum256 directly, so a deployment without a synchronous
// primitive can supply an async implementation. The bundle generator
// and verifier in pkg/evidence and pkg/verifier do not use it: they
// hash with canon.HashBytes directly.
type Hasher interface {
	Sum256(data []byte) [32]byte
}

// AsyncHasher is the asynchronous counterpart of Hasher for runtimes
// that expose only an async SHA-256 (for example a subtle-crypto
// binding behind a channel or RPC call). The replay engine threads this
// facade through every hash call (the DBL resolver computes no hashes);
// ordering within a single transcript is preserved regardless of which
// implementation is wired in.
type AsyncHasher interface {
	Sum256Async(ctx context.Context, data []byte) (<-chan [32]byte, <-chan error)
}

// SyncHasher is the default, in-process Hasher.
type SyncHasher struct{}

// NewSyncHasher returns the default synchronous hasher.
func NewSyncHasher() SyncHasher { return SyncHasher{} }

func (SyncHasher) Sum256(data []byte) [32]byte { return sha256.Sum256(data) }

// ChannelAsyncHasher adapts a SyncHasher (or any Hasher) into an
// AsyncHasher by running the hash on its own goroutine and delivering
// the result over a channel. It exists so tests can exercise the
// suspension points the replay engine is required to tolerate without
// needing a real asynchronous crypto backend.
type ChannelAsyncHasher struct {
	Sync Hasher
}

// NewChannelAsyncHasher wraps h as an AsyncHasher.
func NewChannelAsyncHasher(h Hasher) ChannelAsyncHasher {
	return ChannelAsyncHasher{Sync: h}
}

func (c ChannelAsyncHasher) Sum256Async(ctx context.Context, data []byte) (<-chan [32]byte, <-chan error) {
	out := make(chan [32]byte, 1)
	errc := make(chan error, 1)
	// Exactly one of out or errc receives a value, and neither is closed,
	// so a caller selecting on both never sees a spurious zero value.
	go func() {
		select {
		case <-ctx.Done():
			errc <- ctx.Err()
			return
		default:
		}
		out <- c.Sync.Sum256(data)
	}()
	return out, errc
}

// Sha256Hex returns the lowercase hex SHA-256 digest of data using the
// default synchronous hasher. Most call sites that don't need the
// async facade use this directly.
func Sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Base58Encode encodes data using the standard Bitcoin alphabet.
func Base58Encode(data []byte) string {
	return base58.Encode(data)
}

// Base58Decode decodes a base58 string using the standard Bitcoin
// alphabet.
func Base58Decode(s string) ([]byte, error) {
	return base58.Decode(s)
}
