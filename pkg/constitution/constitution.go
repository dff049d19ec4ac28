// Package constitution loads the rulebook text that the DBL resolver,
// GC view renderer, and insurer summary all cite by hash: canonicalize
// the text, hash it, and check the hash against an in-binary allowlist.
// Adapted from the Pack Trust Fabric's version-and-publisher registry
// (github.com/Masterminds/semver/v3); the supply-chain pieces (TUF,
// Rekor, SLSA attestation) had no transcript-judging counterpart and
// were dropped rather than ported.
package constitution

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/pactaudit/pactaudit/pkg/canon"
)

//go:embed embedded/CONSTITUTION_v1.md
var defaultText string

// Canonicalize normalizes CRLF to LF, strips trailing whitespace from
// every line, and rejoins with LF. This is the only normalization the
// hash is computed over; anything else (leading whitespace, blank
// lines, Markdown structure) is significant.
func Canonicalize(text string) string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(normalized, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// Hash returns the hex SHA-256 digest of the canonical form of text.
func Hash(text string) string {
	return canon.HashBytes([]byte(Canonicalize(text)))
}

// Entry is one accepted version of the constitution.
type Entry struct {
	Version  *semver.Version
	Hash     string
	Accepted bool
}

// Registry is an in-binary, read-only table of known constitution
// hashes, addressed by hash rather than by version so a loader can
// classify an arbitrary document without knowing its provenance.
type Registry struct {
	byHash map[string]Entry
}

// NewRegistry builds a registry from entries, keyed by hash. A later
// duplicate hash overwrites an earlier one.
func NewRegistry(entries ...Entry) *Registry {
	r := &Registry{byHash: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		r.byHash[e.Hash] = e
	}
	return r
}

// DefaultRegistry returns the registry shipped in-binary: the embedded
// v1 text, accepted under version 1.0.0.
func DefaultRegistry() *Registry {
	v1 := semver.MustParse("1.0.0")
	return NewRegistry(Entry{Version: v1, Hash: Hash(defaultText), Accepted: true})
}

// IsAccepted reports whether hash is a known, accepted constitution
// hash.
func (r *Registry) IsAccepted(hash string) bool {
	e, ok := r.byHash[hash]
	return ok && e.Accepted
}

// Lookup returns the registry entry for hash, if any.
func (r *Registry) Lookup(hash string) (Entry, bool) {
	e, ok := r.byHash[hash]
	return e, ok
}

// Hashes returns every known hash, sorted, for deterministic display.
func (r *Registry) Hashes() []string {
	out := make([]string, 0, len(r.byHash))
	for h := range r.byHash {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// Loaded is a constitution that has been read, canonicalized, and
// hashed, along with its acceptance status against a Registry.
type Loaded struct {
	Text           string
	CanonicalText  string
	Hash           string
	Accepted       bool
	NonStandard    bool
	RegistryEntry  Entry
	hasRegistryHit bool
}

// Load canonicalizes and hashes text, classifying it against reg. A
// nil reg is treated as DefaultRegistry().
func Load(text string, reg *Registry) *Loaded {
	if reg == nil {
		reg = DefaultRegistry()
	}
	canonicalText := Canonicalize(text)
	hash := canon.HashBytes([]byte(canonicalText))
	entry, ok := reg.Lookup(hash)
	accepted := ok && entry.Accepted
	return &Loaded{
		Text:           text,
		CanonicalText:  canonicalText,
		Hash:           hash,
		Accepted:       accepted,
		NonStandard:    !accepted,
		RegistryEntry:  entry,
		hasRegistryHit: ok,
	}
}

// LoadDefault loads the constitution embedded in this binary against
// the default registry; it is always Accepted.
func LoadDefault() *Loaded {
	return Load(defaultText, DefaultRegistry())
}

// DefaultText exposes the embedded constitution text, for the evidence
// bundle generator (C11) to write into constitution/CONSTITUTION_v1.md.
func DefaultText() string {
	return defaultText
}

// CheckHash is a convenience for components (C8, C9, C12) that only
// need the accept/reject verdict for a hash they already computed,
// without holding onto the full Loaded value.
func CheckHash(hash string, reg *Registry) error {
	if reg == nil {
		reg = DefaultRegistry()
	}
	if reg.IsAccepted(hash) {
		return nil
	}
	return fmt.Errorf("NON_STANDARD_RULES: constitution hash %s is not in the accepted registry", hash)
}
