// Package fixtures builds deterministic signed transcripts for tests
// and documentation. Nothing here is
// imported by the verifier or resolver packages — it exists purely to
// manufacture inputs.
package fixtures

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/pactaudit/pactaudit/pkg/crypto"
)

// masterSeed is a fixed, non-secret development seed. Every identity
// used in generated fixtures derives from it via HKDF so that fixture
// output (and the hashes frozen into test expectations) is stable
// across machines and runs.
var masterSeed = []byte("pactaudit-fixture-master-seed-v1")

// DeriveSigner returns a deterministic Ed25519 signer for identity
// name (e.g. "buyer-1", "provider-1", "arbiter"), derived via
// HKDF-SHA256 over the fixed master seed.
func DeriveSigner(name string) (*crypto.Ed25519Signer, error) {
	r := hkdf.New(sha256.New, masterSeed, []byte("pactaudit-fixture-kdf"), []byte(name))
	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(r, seed); err != nil {
		return nil, fmt.Errorf("fixtures: derive signer %q: %w", name, err)
	}
	return crypto.NewEd25519SignerFromSeed(seed)
}
