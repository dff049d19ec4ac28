package crypto

import (
	"fmt"
	"sort"
	"sync"
)

// KeyRing holds a set of named signers (one per negotiation identity —
// "buyer", "provider", or an arbiter), used by fixture generation and
// multi-identity test harnesses. Selection of a default signer is
// deterministic (lexicographically last name) so fixture output is
// reproducible across runs.
type KeyRing struct {
	mu      sync.RWMutex
	signers map[string]*Ed25519Signer
}

// NewKeyRing returns an empty KeyRing.
func NewKeyRing() *KeyRing {
	return &KeyRing{signers: make(map[string]*Ed25519Signer)}
}

// Add registers a signer under name (e.g. "buyer", "provider").
func (k *KeyRing) Add(name string, s *Ed25519Signer) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.signers[name] = s
}

// Get returns the signer registered under name.
func (k *KeyRing) Get(name string) (*Ed25519Signer, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	s, ok := k.signers[name]
	return s, ok
}

// Names returns the registered identity names in sorted order.
func (k *KeyRing) Names() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	names := make([]string, 0, len(k.signers))
	for n := range k.signers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Default returns the signer with the lexicographically last name, so
// that a KeyRing with a single caller-chosen "active" identity behaves
// deterministically without requiring an explicit name everywhere.
func (k *KeyRing) Default() (*Ed25519Signer, error) {
	names := k.Names()
	if len(names) == 0 {
		return nil, fmt.Errorf("keyring: no signers registered")
	}
	return k.signers[names[len(names)-1]], nil
}
