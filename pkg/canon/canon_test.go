package canon

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalizeSortsKeys(t *testing.T) {
	v := map[string]interface{}{
		"zebra": 1,
		"alpha": 2,
		"mid":   3,
	}
	out, err := String(v)
	require.NoError(t, err)
	require.Equal(t, `{"alpha":2,"mid":3,"zebra":1}`, out)
}

func TestCanonicalizeNoInsignificantWhitespace(t *testing.T) {
	v := map[string]interface{}{"a": []interface{}{1, 2, 3}}
	out, err := String(v)
	require.NoError(t, err)
	require.NotContains(t, out, " ")
	require.NotContains(t, out, "\n")
}

func TestCanonicalizeRejectsNaN(t *testing.T) {
	v := map[string]interface{}{"x": math.NaN()}
	_, err := Canonicalize(v)
	require.ErrorIs(t, err, ErrInvalidCanonical)
}

func TestCanonicalizeRejectsInfinity(t *testing.T) {
	v := map[string]interface{}{"x": math.Inf(1)}
	_, err := Canonicalize(v)
	require.ErrorIs(t, err, ErrInvalidCanonical)
}

func TestHashIsStableAcrossKeyOrder(t *testing.T) {
	a := map[string]interface{}{"b": 1, "a": 2}
	b := map[string]interface{}{"a": 2, "b": 1}
	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)
	require.Equal(t, ha, hb)
}

func TestRoundTrip(t *testing.T) {
	v := map[string]interface{}{
		"transcript_id": "intent-success1-test",
		"created_at_ms": 1000000000000,
		"rounds":        []interface{}{"a", "b"},
	}
	first, err := Canonicalize(v)
	require.NoError(t, err)

	parsed, err := Parse(first)
	require.NoError(t, err)

	second, err := Canonicalize(parsed)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestWithoutFieldDropsOnlyNamedKey(t *testing.T) {
	v := map[string]interface{}{"round_hash": "abc", "round_number": 0.0}
	out := WithoutField(v, "round_hash")
	_, present := out["round_hash"]
	require.False(t, present)
	require.Equal(t, 0.0, out["round_number"])
}

func TestGenesisHashMatchesSpecScenario(t *testing.T) {
	// Scenario 1 from the property suite: genesis hash for
	// intent_id="intent-success1-test", created_at_ms=1000000000000.
	h := HashBytes([]byte("intent-success1-test:1000000000000"))
	require.Equal(t, "ee7e4e8263cfcd2d25783caa3dfff65e2dcb609c65024b7079fd1a5d96084eb4", h)
}
