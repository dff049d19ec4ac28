//go:build property
// +build property

package canon_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/pactaudit/pactaudit/pkg/canon"
)

// TestHashDeterministic verifies Hash produces the same digest for the
// same object regardless of how many times it is canonicalized.
// Property: Hash(obj) == Hash(obj) for any obj built from the same keys/values.
func TestHashDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("canonical hash is deterministic across repeated calls", prop.ForAll(
		func(keys []string, values []string) bool {
			obj := make(map[string]interface{})
			for i := 0; i < len(keys) && i < len(values); i++ {
				if keys[i] != "" {
					obj[keys[i]] = values[i]
				}
			}
			if len(obj) == 0 {
				return true
			}

			h1, err1 := canon.Hash(obj)
			h2, err2 := canon.Hash(obj)
			if err1 != nil && err2 != nil {
				return true
			}
			if err1 != nil || err2 != nil {
				return false
			}
			return h1 == h2
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

// TestWithoutFieldIdempotent verifies removing a field that is already
// absent leaves the canonical form unchanged.
// Property: Hash(WithoutField(WithoutField(obj, f), f)) == Hash(WithoutField(obj, f))
func TestWithoutFieldIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("WithoutField is idempotent", prop.ForAll(
		func(keys []string, values []string, field string) bool {
			obj := make(map[string]interface{})
			for i := 0; i < len(keys) && i < len(values); i++ {
				if keys[i] != "" {
					obj[keys[i]] = values[i]
				}
			}
			if len(obj) == 0 || field == "" {
				return true
			}

			once := canon.WithoutField(obj, field)
			twice := canon.WithoutField(once, field)

			h1, err1 := canon.Hash(once)
			h2, err2 := canon.Hash(twice)
			if err1 != nil || err2 != nil {
				return false
			}
			return h1 == h2
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
