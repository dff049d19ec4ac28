package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pactaudit/pactaudit/pkg/config"
	"github.com/pactaudit/pactaudit/pkg/constitution"
)

func TestLoadConstitutionRegistry_EmptyPathReturnsDefault(t *testing.T) {
	reg, err := config.LoadConstitutionRegistry("")
	require.NoError(t, err)
	assert.Equal(t, constitution.DefaultRegistry().Hashes(), reg.Hashes())
}

func TestLoadConstitutionRegistry_MergesAdditionalHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.yaml")
	contents := `
entries:
  - version: "0.9.0"
    hash: "legacyhash1234"
    accepted: true
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	reg, err := config.LoadConstitutionRegistry(path)
	require.NoError(t, err)
	assert.True(t, reg.IsAccepted("legacyhash1234"))
	for _, h := range constitution.DefaultRegistry().Hashes() {
		assert.True(t, reg.IsAccepted(h))
	}
}
