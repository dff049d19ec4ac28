package constitution_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pactaudit/pactaudit/pkg/constitution"
)

func TestCanonicalizeNormalizesLineEndingsAndTrailingWhitespace(t *testing.T) {
	in := "line one  \r\nline two\t\r\nline three\n"
	got := constitution.Canonicalize(in)
	assert.Equal(t, "line one\nline two\nline three\n", got)
}

func TestHashIsStableAcrossLineEndingVariants(t *testing.T) {
	crlf := "Article 1\r\nArticle 2 \r\n"
	lf := "Article 1\nArticle 2\n"
	assert.Equal(t, constitution.Hash(crlf), constitution.Hash(lf))
}

func TestLoadDefaultIsAccepted(t *testing.T) {
	loaded := constitution.LoadDefault()
	assert.True(t, loaded.Accepted)
	assert.False(t, loaded.NonStandard)
	assert.NotEmpty(t, loaded.Hash)
}

func TestLoadRejectsUnknownText(t *testing.T) {
	loaded := constitution.Load("a completely different rulebook", nil)
	assert.False(t, loaded.Accepted)
	assert.True(t, loaded.NonStandard)
}

func TestCheckHashAcceptsDefaultRegistryHash(t *testing.T) {
	loaded := constitution.LoadDefault()
	require.NoError(t, constitution.CheckHash(loaded.Hash, nil))
}

func TestCheckHashRejectsForeignHash(t *testing.T) {
	err := constitution.CheckHash("not-a-real-hash", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NON_STANDARD_RULES")
}

func TestRegistryHashesAreSorted(t *testing.T) {
	reg := constitution.DefaultRegistry()
	hashes := reg.Hashes()
	for i := 1; i < len(hashes); i++ {
		assert.LessOrEqual(t, hashes[i-1], hashes[i])
	}
}
