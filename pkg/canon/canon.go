// Package canon provides RFC 8785 (JSON Canonicalization Scheme) compliant
// serialization for deterministic hashing of transcript, judgment, and
// evidence-bundle artifacts.
package canon

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/gowebpki/jcs"
)

// ErrInvalidCanonical is returned for cyclic structures, NaN/Infinity
// floats, or any value that cannot be represented as canonical JSON.
var ErrInvalidCanonical = errors.New("INVALID_CANONICAL")

// maxDepth bounds recursion so a cyclic map/slice produces a typed error
// instead of exhausting the stack. No legitimate transcript or bundle
// artifact nests anywhere near this deep.
const maxDepth = 5000

// Canonicalize returns the RFC 8785 canonical JSON encoding of v: sorted
// object keys (UTF-16 code unit order), no insignificant whitespace, and
// numbers in their shortest round-trip decimal form.
func Canonicalize(v interface{}) ([]byte, error) {
	if err := checkValue(v, 0); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCanonical, err)
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCanonical, err)
	}
	return out, nil
}

// String returns the canonical form as a string.
func String(v interface{}) (string, error) {
	b, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Hash returns the lowercase hex SHA-256 digest of the canonical form.
func Hash(v interface{}) (string, error) {
	b, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// HashBytes returns the lowercase hex SHA-256 digest of raw bytes.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Parse decodes canonical (or any valid) JSON bytes into a generic value
// suitable for re-canonicalization, preserving number literals via
// json.Number so the round-trip law in the test suite holds exactly.
func Parse(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCanonical, err)
	}
	return v, nil
}

// WithoutField returns a shallow copy of a map-shaped canonical value with
// the named top-level field removed. Used for self-referential hashing
// (a round's own round_hash, a manifest's own bundle_id, a round's own
// signature) where the hash must exclude the field it produces.
func WithoutField(v map[string]interface{}, field string) map[string]interface{} {
	return WithoutFields(v, field)
}

// WithoutFields returns a shallow copy of v with every named top-level
// field removed. round_hash's own domain must drop both round_hash and
// signature (the signature is derived from round_hash, so it cannot be
// part of round_hash's own input); signature's domain then drops only
// signature, binding it to the now-fixed round_hash.
func WithoutFields(v map[string]interface{}, fields ...string) map[string]interface{} {
	drop := make(map[string]bool, len(fields))
	for _, f := range fields {
		drop[f] = true
	}
	out := make(map[string]interface{}, len(v))
	for k, val := range v {
		if drop[k] {
			continue
		}
		out[k] = val
	}
	return out
}

func checkValue(v interface{}, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("%w: exceeded maximum nesting depth (possible cycle)", ErrInvalidCanonical)
	}
	switch t := v.(type) {
	case map[string]interface{}:
		for _, vv := range t {
			if err := checkValue(vv, depth+1); err != nil {
				return err
			}
		}
	case []interface{}:
		for _, vv := range t {
			if err := checkValue(vv, depth+1); err != nil {
				return err
			}
		}
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("%w: NaN or Infinity is not representable", ErrInvalidCanonical)
		}
	}
	return nil
}
